// Package metrics exposes Prometheus counters for each workflow stage
// and an optional /metrics HTTP server.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_searches_total",
			Help: "Provider search calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	SearchURLsFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_search_urls_found_total",
			Help: "Candidate URLs returned per provider before aggregation",
		},
		[]string{"provider"},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_scrapes_total",
			Help: "Page scrape attempts by outcome",
		},
		[]string{"outcome"},
	)

	ScrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outreach_scrape_duration_seconds",
			Help:    "Wall time of page scrapes including retries",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_extractions_total",
			Help: "Evidence extraction calls by outcome",
		},
		[]string{"outcome"},
	)

	UsersExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_users_extracted_total",
			Help: "ProductUser rows produced across all runs",
		},
	)
)

// Outcome label values shared across the counters above.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Server serves Prometheus metrics over HTTP.
type Server struct {
	srv *http.Server
}

// Start listens on the given port and exposes /metrics. Listen errors
// other than graceful shutdown surface via errCh if non-nil.
func Start(port int, errCh chan<- error) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if errCh != nil {
				errCh <- err
			}
		}
	}()
	return &Server{srv: srv}
}

// Stop shuts the server down, waiting at most five seconds.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
