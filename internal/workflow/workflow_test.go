package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/outreach/internal/extract"
	"github.com/FranksOps/outreach/internal/scraper"
	"github.com/FranksOps/outreach/internal/search"
	"github.com/FranksOps/outreach/internal/storage"
	"github.com/FranksOps/outreach/internal/storage/memory"
)

type fakeProvider struct {
	name  string
	urls  []string
	err   error
	delay time.Duration
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) FindCandidateURLs(ctx context.Context, productName string, maxResults int) ([]string, error) {
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.urls, nil
}

type fakeScraper struct {
	failing map[string]bool
	text    string
	calls   atomic.Int32

	mu    sync.Mutex
	order []string
}

func (s *fakeScraper) Scrape(ctx context.Context, pageURL string) (*scraper.Page, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.order = append(s.order, pageURL)
	s.mu.Unlock()
	if s.failing[pageURL] {
		return nil, &scraper.FetchError{URL: pageURL, StatusCode: 404, Reason: "page gone"}
	}
	text := s.text
	if text == "" {
		text = "u/gopher_dev: I use Acme Widget every day. Works great."
	}
	return &scraper.Page{URL: pageURL, HTML: "<html>" + text + "</html>", Text: text}, nil
}

type fakeExtractor struct {
	users []extract.User
	err   error
	calls atomic.Int32
}

func (e *fakeExtractor) ExtractUsers(ctx context.Context, productName, pageText string) ([]extract.User, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.users, nil
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func fastOpts() Options {
	return Options{MaxURLsPerProvider: 10, ProviderTimeout: time.Second, ScrapeWorkers: 2}
}

func seedProduct(t *testing.T, store storage.Store, name string) *storage.Product {
	t.Helper()
	p, err := store.CreateProduct(context.Background(), name)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestRunHappyPath(t *testing.T) {
	store := memory.New()
	product := seedProduct(t, store, "Acme Widget")

	providers := []search.Provider{
		&fakeProvider{name: "openai", urls: []string{
			"https://www.reddit.com/r/golang/comments/a/x",
			"https://www.reddit.com/r/devops/comments/b/y",
		}},
		&fakeProvider{name: "gemini", urls: []string{
			"https://www.reddit.com/r/golang/comments/a/x/", // dup after normalization
			"https://www.reddit.com/r/selfhosted/comments/c/z",
		}},
	}
	ex := &fakeExtractor{users: []extract.User{
		{Username: "gopher_dev", ProfileURL: "https://www.reddit.com/user/gopher_dev", EvidenceText: "I use Acme Widget every day"},
	}}

	o := New(providers, &fakeScraper{}, ex, store, fastOpts(), discard())
	summary, err := o.Run(context.Background(), "Acme Widget")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.URLsFound != 3 {
		t.Errorf("URLsFound = %d, want 3 after dedupe", summary.URLsFound)
	}
	if summary.PagesScraped != 3 {
		t.Errorf("PagesScraped = %d, want 3", summary.PagesScraped)
	}
	if summary.PagesFailed != 0 {
		t.Errorf("PagesFailed = %d, want 0", summary.PagesFailed)
	}
	if summary.UsersExtracted != 3 {
		t.Errorf("UsersExtracted = %d, want 3 (one per page)", summary.UsersExtracted)
	}

	pages, err := store.PagesByProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("PagesByProduct() error = %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("stored pages = %d, want 3", len(pages))
	}
	for _, p := range pages {
		if p.FetchStatus != storage.StatusScraped {
			t.Errorf("page %s status = %q, want scraped", p.URL, p.FetchStatus)
		}
		if p.Subreddit == "unknown" {
			t.Errorf("page %s subreddit not extracted", p.URL)
		}
	}
}

func TestRunNoProviders(t *testing.T) {
	store := memory.New()
	seedProduct(t, store, "Acme Widget")

	o := New(nil, &fakeScraper{}, &fakeExtractor{}, store, fastOpts(), discard())
	_, err := o.Run(context.Background(), "Acme Widget")

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
}

func TestRunUnknownProduct(t *testing.T) {
	o := New([]search.Provider{&fakeProvider{name: "openai"}}, &fakeScraper{}, &fakeExtractor{}, memory.New(), fastOpts(), discard())
	_, err := o.Run(context.Background(), "Nonexistent")

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
	if !strings.Contains(ce.Reason, "Nonexistent") {
		t.Errorf("Reason = %q, want product name included", ce.Reason)
	}
}

func TestRunNoURLsFound(t *testing.T) {
	store := memory.New()
	seedProduct(t, store, "Acme Widget")

	providers := []search.Provider{
		&fakeProvider{name: "openai"},
		&fakeProvider{name: "gemini", err: errors.New("quota exceeded")},
	}
	o := New(providers, &fakeScraper{}, &fakeExtractor{}, store, fastOpts(), discard())

	summary, err := o.Run(context.Background(), "Acme Widget")
	if !errors.Is(err, ErrNoURLsFound) {
		t.Fatalf("Run() error = %v, want ErrNoURLsFound", err)
	}
	if summary == nil || summary.URLsFound != 0 {
		t.Errorf("summary = %+v, want zero URLs with non-nil summary", summary)
	}
}

func TestRunProviderFailureTolerated(t *testing.T) {
	store := memory.New()
	seedProduct(t, store, "Acme Widget")

	providers := []search.Provider{
		&fakeProvider{name: "openai", err: errors.New("401 unauthorized")},
		&fakeProvider{name: "gemini", urls: []string{"https://www.reddit.com/r/golang/comments/a/x"}},
	}
	o := New(providers, &fakeScraper{}, &fakeExtractor{}, store, fastOpts(), discard())

	summary, err := o.Run(context.Background(), "Acme Widget")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.URLsFound != 1 {
		t.Errorf("URLsFound = %d, want 1 from surviving provider", summary.URLsFound)
	}
}

func TestRunSlowProviderTimedOutOthersSurvive(t *testing.T) {
	store := memory.New()
	seedProduct(t, store, "Acme Widget")

	opts := fastOpts()
	opts.ProviderTimeout = 50 * time.Millisecond

	providers := []search.Provider{
		&fakeProvider{name: "openai", delay: 5 * time.Second, urls: []string{"https://www.reddit.com/r/slow/comments/s/s"}},
		&fakeProvider{name: "gemini", urls: []string{"https://www.reddit.com/r/golang/comments/a/x"}},
	}
	o := New(providers, &fakeScraper{}, &fakeExtractor{}, store, opts, discard())

	start := time.Now()
	summary, err := o.Run(context.Background(), "Acme Widget")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.URLsFound != 1 {
		t.Errorf("URLsFound = %d, want 1", summary.URLsFound)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("run took %v, slow provider not cut off", elapsed)
	}
}

func TestRunScrapeFailureRecorded(t *testing.T) {
	store := memory.New()
	product := seedProduct(t, store, "Acme Widget")

	providers := []search.Provider{
		&fakeProvider{name: "openai", urls: []string{
			"https://www.reddit.com/r/golang/comments/ok/x",
			"https://www.reddit.com/r/golang/comments/dead/y",
		}},
	}
	sc := &fakeScraper{failing: map[string]bool{
		"https://www.reddit.com/r/golang/comments/dead/y": true,
	}}
	ex := &fakeExtractor{}

	o := New(providers, sc, ex, store, fastOpts(), discard())
	summary, err := o.Run(context.Background(), "Acme Widget")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.PagesScraped != 1 || summary.PagesFailed != 1 {
		t.Errorf("scraped/failed = %d/%d, want 1/1", summary.PagesScraped, summary.PagesFailed)
	}

	pages, _ := store.PagesByProduct(context.Background(), product.ID)
	var failed *storage.ProductPage
	for _, p := range pages {
		if p.FetchStatus == storage.StatusFailed {
			failed = p
		}
	}
	if failed == nil {
		t.Fatal("failed page not persisted")
	}
	if failed.RawHTML != "" {
		t.Error("failed page should have no HTML")
	}
	// Failed pages never reach the extractor.
	if got := ex.calls.Load(); got != 1 {
		t.Errorf("extractor calls = %d, want 1", got)
	}
}

func TestRunExtractionFailureTolerated(t *testing.T) {
	store := memory.New()
	seedProduct(t, store, "Acme Widget")

	providers := []search.Provider{
		&fakeProvider{name: "openai", urls: []string{"https://www.reddit.com/r/golang/comments/a/x"}},
	}
	ex := &fakeExtractor{err: &extract.ExtractionError{Raw: "not json", Err: errors.New("invalid character")}}

	o := New(providers, &fakeScraper{}, ex, store, fastOpts(), discard())
	summary, err := o.Run(context.Background(), "Acme Widget")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.UsersExtracted != 0 {
		t.Errorf("UsersExtracted = %d, want 0", summary.UsersExtracted)
	}
	if summary.PagesScraped != 1 {
		t.Errorf("PagesScraped = %d, want 1", summary.PagesScraped)
	}
}

func TestRunSkipsPagesWithoutMention(t *testing.T) {
	store := memory.New()
	seedProduct(t, store, "Acme Widget")

	providers := []search.Provider{
		&fakeProvider{name: "openai", urls: []string{"https://www.reddit.com/r/golang/comments/a/x"}},
	}
	sc := &fakeScraper{text: "A long thread about something else entirely, no product here at all."}
	ex := &fakeExtractor{}

	o := New(providers, sc, ex, store, fastOpts(), discard())
	if _, err := o.Run(context.Background(), "Acme Widget"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := ex.calls.Load(); got != 0 {
		t.Errorf("extractor calls = %d, want 0 for mention-free page", got)
	}
}

func TestRunIdempotent(t *testing.T) {
	store := memory.New()
	product := seedProduct(t, store, "Acme Widget")

	providers := []search.Provider{
		&fakeProvider{name: "openai", urls: []string{"https://www.reddit.com/r/golang/comments/a/x"}},
	}
	ex := &fakeExtractor{users: []extract.User{
		{Username: "gopher_dev", ProfileURL: "https://www.reddit.com/user/gopher_dev", EvidenceText: "I use it"},
	}}

	o := New(providers, &fakeScraper{}, ex, store, fastOpts(), discard())
	for i := 0; i < 2; i++ {
		if _, err := o.Run(context.Background(), "Acme Widget"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	pages, _ := store.PagesByProduct(context.Background(), product.ID)
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1 after two runs", len(pages))
	}
	users, _ := store.UsersByPage(context.Background(), pages[0].ID)
	if len(users) != 1 {
		t.Errorf("users = %d, want 1 after two runs", len(users))
	}
}

func TestRunDeterministicOrderAcrossTimings(t *testing.T) {
	store := memory.New()
	product := seedProduct(t, store, "Acme Widget")

	// Second provider answers first; aggregation must still follow
	// provider declaration order.
	providers := []search.Provider{
		&fakeProvider{name: "openai", delay: 50 * time.Millisecond, urls: []string{"https://www.reddit.com/r/first/comments/a/x"}},
		&fakeProvider{name: "gemini", urls: []string{"https://www.reddit.com/r/second/comments/b/y"}},
	}
	opts := fastOpts()
	opts.ScrapeWorkers = 1
	sc := &fakeScraper{}

	o := New(providers, sc, &fakeExtractor{}, store, opts, discard())
	if _, err := o.Run(context.Background(), "Acme Widget"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pages, _ := store.PagesByProduct(context.Background(), product.ID)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if len(sc.order) != 2 || !strings.Contains(sc.order[0], "/r/first/") {
		t.Errorf("scrape order = %v, want the first provider's URL first", sc.order)
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Reason: "no search provider configured"}
	if got := err.Error(); got != "configuration: no search provider configured" {
		t.Errorf("Error() = %q", got)
	}
	_ = fmt.Sprintf("%v", err)
}
