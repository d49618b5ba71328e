package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/outreach/internal/storage"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ensure sqliteStore implements storage.Store
var _ storage.Store = (*sqliteStore)(nil)

type sqliteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL COLLATE NOCASE UNIQUE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS product_pages (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	subreddit TEXT NOT NULL,
	raw_html TEXT NOT NULL,
	extracted_text TEXT NOT NULL,
	fetch_status TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	UNIQUE(product_id, url)
);

CREATE TABLE IF NOT EXISTS product_users (
	id TEXT PRIMARY KEY,
	product_page_id TEXT NOT NULL REFERENCES product_pages(id) ON DELETE CASCADE,
	username TEXT NOT NULL,
	profile_url TEXT NOT NULL,
	evidence_text TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE(product_page_id, username)
);
`

// New creates a SQLite-backed storage.Store. Use ":memory:" or a file path
// as the DSN; this is the default backend when no Postgres DSN is set.
func New(dsn string) (storage.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) CreateProduct(ctx context.Context, name string) (*storage.Product, error) {
	now := time.Now().UTC()
	query := `
	INSERT INTO products (id, name, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.New().String(), name, now, now); err != nil {
		return nil, fmt.Errorf("upsert product: %w", err)
	}
	return s.ProductByName(ctx, name)
}

func (s *sqliteStore) ProductByName(ctx context.Context, name string) (*storage.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM products WHERE name = ?`, name)

	var p storage.Product
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (s *sqliteStore) Products(ctx context.Context) ([]*storage.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM products ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []*storage.Product
	for rows.Next() {
		var p storage.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpsertPage(ctx context.Context, productID string, page storage.PageUpsert) (*storage.ProductPage, error) {
	now := time.Now().UTC()
	query := `
	INSERT INTO product_pages (id, product_id, url, subreddit, raw_html, extracted_text, fetch_status, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(product_id, url) DO UPDATE SET
		subreddit = excluded.subreddit,
		raw_html = excluded.raw_html,
		extracted_text = excluded.extracted_text,
		fetch_status = excluded.fetch_status,
		fetched_at = excluded.fetched_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), productID, page.URL, page.Subreddit,
		page.RawHTML, page.ExtractedText, string(page.Status), now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert page: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
	SELECT id, product_id, url, subreddit, raw_html, extracted_text, fetch_status, fetched_at
	FROM product_pages WHERE product_id = ? AND url = ?`, productID, page.URL)

	var p storage.ProductPage
	var status string
	if err := row.Scan(&p.ID, &p.ProductID, &p.URL, &p.Subreddit, &p.RawHTML, &p.ExtractedText, &status, &p.FetchedAt); err != nil {
		return nil, fmt.Errorf("read back page: %w", err)
	}
	p.FetchStatus = storage.FetchStatus(status)
	return &p, nil
}

func (s *sqliteStore) PagesByProduct(ctx context.Context, productID string) ([]*storage.ProductPage, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, product_id, url, subreddit, raw_html, extracted_text, fetch_status, fetched_at
	FROM product_pages WHERE product_id = ? ORDER BY url`, productID)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var out []*storage.ProductPage
	for rows.Next() {
		var p storage.ProductPage
		var status string
		if err := rows.Scan(&p.ID, &p.ProductID, &p.URL, &p.Subreddit, &p.RawHTML, &p.ExtractedText, &status, &p.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		p.FetchStatus = storage.FetchStatus(status)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpsertUser(ctx context.Context, pageID string, user storage.UserUpsert) (*storage.ProductUser, error) {
	now := time.Now().UTC()
	query := `
	INSERT INTO product_users (id, product_page_id, username, profile_url, evidence_text, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(product_page_id, username) DO UPDATE SET
		profile_url = excluded.profile_url,
		evidence_text = excluded.evidence_text
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), pageID, user.Username, user.ProfileURL, user.EvidenceText, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
	SELECT id, product_page_id, username, profile_url, evidence_text, created_at
	FROM product_users WHERE product_page_id = ? AND username = ?`, pageID, user.Username)

	var u storage.ProductUser
	if err := row.Scan(&u.ID, &u.ProductPageID, &u.Username, &u.ProfileURL, &u.EvidenceText, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("read back user: %w", err)
	}
	return &u, nil
}

func (s *sqliteStore) UsersByPage(ctx context.Context, pageID string) ([]*storage.ProductUser, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, product_page_id, username, profile_url, evidence_text, created_at
	FROM product_users WHERE product_page_id = ? ORDER BY username`, pageID)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []*storage.ProductUser
	for rows.Next() {
		var u storage.ProductUser
		if err := rows.Scan(&u.ID, &u.ProductPageID, &u.Username, &u.ProfileURL, &u.EvidenceText, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
