// Package workflow sequences the discovery run: fan search out to every
// configured provider, aggregate the returned URLs, scrape pages with a
// bounded worker pool, then extract user evidence page by page. Any
// single provider or page may fail without failing the run.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/outreach/internal/aggregate"
	"github.com/FranksOps/outreach/internal/analyzer"
	"github.com/FranksOps/outreach/internal/extract"
	"github.com/FranksOps/outreach/internal/metrics"
	"github.com/FranksOps/outreach/internal/scraper"
	"github.com/FranksOps/outreach/internal/search"
	"github.com/FranksOps/outreach/internal/storage"
)

// ErrNoURLsFound is returned, alongside a complete Summary, when every
// provider came back empty. The command surface maps it to a non-zero
// exit.
var ErrNoURLsFound = errors.New("no candidate urls found across providers")

// ConfigurationError aborts a run before any network call: no provider
// configured, or the target product does not exist.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Reason }

// Scraper is the page-fetching dependency, satisfied by
// scraper.PageScraper and by test fakes.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (*scraper.Page, error)
}

// Options tunes a run. Zero values get defaults.
type Options struct {
	MaxURLsPerProvider int           // default 10
	ProviderTimeout    time.Duration // per-provider search timeout, default 90s
	ScrapeWorkers      int           // concurrent page fetches, default 4
}

func (o Options) withDefaults() Options {
	if o.MaxURLsPerProvider <= 0 {
		o.MaxURLsPerProvider = 10
	}
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = 90 * time.Second
	}
	if o.ScrapeWorkers <= 0 {
		o.ScrapeWorkers = 4
	}
	return o
}

// Summary is the user-visible result of one run.
type Summary struct {
	Product        string        `json:"product"`
	URLsFound      int           `json:"urls_found"`
	PagesScraped   int           `json:"pages_scraped"`
	PagesFailed    int           `json:"pages_failed"`
	UsersExtracted int           `json:"users_extracted"`
	Duration       time.Duration `json:"duration"`
}

// Orchestrator wires providers, scraper, extractor and store together.
type Orchestrator struct {
	providers []search.Provider
	scraper   Scraper
	extractor extract.Extractor
	store     storage.Store
	opts      Options
	logger    *slog.Logger
}

func New(providers []search.Provider, sc Scraper, ex extract.Extractor, store storage.Store, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		providers: providers,
		scraper:   sc,
		extractor: ex,
		store:     store,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

// Run executes the full workflow for productName. The product must
// already exist. The returned Summary is non-nil whenever the run got
// past configuration checks, including when it is returned alongside
// ErrNoURLsFound.
func (o *Orchestrator) Run(ctx context.Context, productName string) (*Summary, error) {
	start := time.Now()

	if len(o.providers) == 0 {
		return nil, &ConfigurationError{Reason: "no search provider configured"}
	}
	product, err := o.store.ProductByName(ctx, productName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("product %q not found", productName)}
		}
		return nil, fmt.Errorf("look up product: %w", err)
	}

	summary := &Summary{Product: product.Name}

	urls := o.searchAll(ctx, product.Name)
	summary.URLsFound = len(urls)
	o.logger.Info("aggregation complete", "product", product.Name, "urls", len(urls))

	if len(urls) == 0 {
		summary.Duration = time.Since(start)
		return summary, ErrNoURLsFound
	}

	pages := o.scrapeAll(ctx, product.ID, urls, summary)
	o.extractAll(ctx, product.Name, pages, summary)

	summary.Duration = time.Since(start)
	return summary, nil
}

// searchAll queries every provider concurrently, each under its own
// timeout, and merges the results in fixed provider order so the final
// URL sequence does not depend on response timing.
func (o *Orchestrator) searchAll(ctx context.Context, productName string) []string {
	groups := make([][]string, len(o.providers))

	var wg sync.WaitGroup
	for i, p := range o.providers {
		wg.Add(1)
		go func(i int, p search.Provider) {
			defer wg.Done()

			pctx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
			defer cancel()

			found, err := p.FindCandidateURLs(pctx, productName, o.opts.MaxURLsPerProvider)
			if err != nil {
				o.logger.Warn("search provider failed", "provider", p.Name(), "err", err)
				metrics.SearchesTotal.WithLabelValues(p.Name(), metrics.OutcomeFailed).Inc()
				return
			}
			o.logger.Info("search provider done", "provider", p.Name(), "urls", len(found))
			metrics.SearchesTotal.WithLabelValues(p.Name(), metrics.OutcomeOK).Inc()
			metrics.SearchURLsFound.WithLabelValues(p.Name()).Add(float64(len(found)))
			groups[i] = found
		}(i, p)
	}
	wg.Wait()

	return aggregate.Merge(groups)
}

// scrapeAll fetches every URL with a bounded worker pool, upserting a
// ProductPage per URL regardless of outcome, and returns the pages that
// scraped successfully.
func (o *Orchestrator) scrapeAll(ctx context.Context, productID string, urls []string, summary *Summary) []*storage.ProductPage {
	var mu sync.Mutex
	var scraped []*storage.ProductPage

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.ScrapeWorkers)

	for _, pageURL := range urls {
		g.Go(func() error {
			start := time.Now()
			page, err := o.scraper.Scrape(gctx, pageURL)
			metrics.ScrapeDuration.Observe(time.Since(start).Seconds())

			upsert := storage.PageUpsert{
				URL:       pageURL,
				Subreddit: storage.SubredditFromURL(pageURL),
			}
			if err != nil {
				o.logger.Warn("scrape failed", "url", pageURL, "err", err)
				metrics.ScrapesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
				upsert.Status = storage.StatusFailed
			} else {
				metrics.ScrapesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
				upsert.Status = storage.StatusScraped
				upsert.RawHTML = page.HTML
				upsert.ExtractedText = page.Text
			}

			row, uerr := o.store.UpsertPage(gctx, productID, upsert)
			if uerr != nil {
				o.logger.Error("page upsert failed", "url", pageURL, "err", uerr)
				return nil
			}

			mu.Lock()
			if err != nil {
				summary.PagesFailed++
			} else {
				summary.PagesScraped++
				scraped = append(scraped, row)
			}
			mu.Unlock()
			return nil
		})
	}
	// Workers only return nil; the group exists for the limit and the
	// shared cancellation context.
	_ = g.Wait()

	return scraped
}

// extractAll runs evidence extraction sequentially over scraped pages.
// Pages that never mention the product are skipped without an LLM call.
func (o *Orchestrator) extractAll(ctx context.Context, productName string, pages []*storage.ProductPage, summary *Summary) {
	for _, page := range pages {
		if ctx.Err() != nil {
			o.logger.Warn("extraction stage canceled", "remaining", len(pages))
			return
		}

		mention := analyzer.Analyze(page.ExtractedText, page.URL, productName)
		if mention.Count == 0 {
			o.logger.Debug("no product mention, skipping extraction", "url", page.URL)
			metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
			continue
		}

		users, err := o.extractor.ExtractUsers(ctx, productName, page.ExtractedText)
		if err != nil {
			var ee *extract.ExtractionError
			if errors.As(err, &ee) {
				o.logger.Warn("extraction output unusable", "page_id", page.ID, "url", page.URL, "err", err)
			} else {
				o.logger.Warn("extraction call failed", "page_id", page.ID, "url", page.URL, "err", err)
			}
			metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			continue
		}
		metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeOK).Inc()

		for _, u := range users {
			if _, err := o.store.UpsertUser(ctx, page.ID, storage.UserUpsert{
				Username:     u.Username,
				ProfileURL:   u.ProfileURL,
				EvidenceText: u.EvidenceText,
			}); err != nil {
				o.logger.Error("user upsert failed", "page_id", page.ID, "username", u.Username, "err", err)
				continue
			}
			summary.UsersExtracted++
			metrics.UsersExtracted.Inc()
		}
	}
}
