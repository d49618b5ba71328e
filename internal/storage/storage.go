package storage

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// ErrNotFound is returned by lookups when no matching record exists.
var ErrNotFound = errors.New("storage: not found")

// FetchStatus records the outcome of scraping a page.
type FetchStatus string

const (
	StatusPending FetchStatus = "pending"
	StatusScraped FetchStatus = "scraped"
	StatusFailed  FetchStatus = "failed"
)

// Product is something we want to find Reddit users for. Created via the
// admin surface before a workflow run; the workflow never mutates it.
type Product struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductPage is a scraped Reddit page (post/thread) tied to a product.
// One row per normalized URL per product.
type ProductPage struct {
	ID            string
	ProductID     string
	URL           string
	Subreddit     string
	RawHTML       string
	ExtractedText string
	FetchStatus   FetchStatus
	FetchedAt     time.Time
}

// ProductUser is a Reddit user extracted from a ProductPage, with the text
// that evidences actual product usage.
type ProductUser struct {
	ID            string
	ProductPageID string
	Username      string
	ProfileURL    string
	EvidenceText  string
	CreatedAt     time.Time
}

// PageUpsert carries the fields written when creating or refreshing a page.
type PageUpsert struct {
	URL           string
	Subreddit     string
	RawHTML       string
	ExtractedText string
	Status        FetchStatus
}

// UserUpsert carries the fields written when recording an extracted user.
type UserUpsert struct {
	Username     string
	ProfileURL   string
	EvidenceText string
}

// Store is the persistence interface consumed by the workflow and the admin
// surface. Upserts are atomic and keyed by natural key: (product, url) for
// pages, (page, username) for users, so repeated runs converge instead of
// duplicating rows.
type Store interface {
	CreateProduct(ctx context.Context, name string) (*Product, error)
	ProductByName(ctx context.Context, name string) (*Product, error)
	Products(ctx context.Context) ([]*Product, error)

	UpsertPage(ctx context.Context, productID string, page PageUpsert) (*ProductPage, error)
	PagesByProduct(ctx context.Context, productID string) ([]*ProductPage, error)

	UpsertUser(ctx context.Context, pageID string, user UserUpsert) (*ProductUser, error)
	UsersByPage(ctx context.Context, pageID string) ([]*ProductUser, error)

	Close() error
}

var subredditRe = regexp.MustCompile(`/r/([^/]+)`)

// SubredditFromURL extracts the subreddit name from a Reddit URL, or
// "unknown" when the URL is not an /r/ path (user profiles, redd.it links).
func SubredditFromURL(url string) string {
	if m := subredditRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return "unknown"
}
