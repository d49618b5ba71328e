package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/outreach/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresStore implements storage.Store
var _ storage.Store = (*postgresStore)(nil)

type postgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS products_name_lower_key ON products (lower(name));

CREATE TABLE IF NOT EXISTS product_pages (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	subreddit TEXT NOT NULL,
	raw_html TEXT NOT NULL,
	extracted_text TEXT NOT NULL,
	fetch_status TEXT NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	UNIQUE(product_id, url)
);

CREATE TABLE IF NOT EXISTS product_users (
	id TEXT PRIMARY KEY,
	product_page_id TEXT NOT NULL REFERENCES product_pages(id) ON DELETE CASCADE,
	username TEXT NOT NULL,
	profile_url TEXT NOT NULL,
	evidence_text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE(product_page_id, username)
);
`

// New creates a Postgres-backed storage.Store and applies the schema.
func New(ctx context.Context, dsn string) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) CreateProduct(ctx context.Context, name string) (*storage.Product, error) {
	now := time.Now().UTC()
	query := `
	INSERT INTO products (id, name, created_at, updated_at)
	VALUES ($1, $2, $3, $3)
	ON CONFLICT (lower(name)) DO UPDATE SET updated_at = excluded.updated_at
	RETURNING id, name, created_at, updated_at
	`
	var p storage.Product
	err := s.pool.QueryRow(ctx, query, uuid.New().String(), name, now).
		Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert product: %w", err)
	}
	return &p, nil
}

func (s *postgresStore) ProductByName(ctx context.Context, name string) (*storage.Product, error) {
	var p storage.Product
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM products WHERE lower(name) = lower($1)`, name).
		Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (s *postgresStore) Products(ctx context.Context) ([]*storage.Product, error) {
	rows, err := s.pool.Query(ctx,
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

func (s *postgresStore) UpsertPage(ctx context.Context, productID string, page storage.PageUpsert) (*storage.ProductPage, error) {
	now := time.Now().UTC()
	query := `
	INSERT INTO product_pages (id, product_id, url, subreddit, raw_html, extracted_text, fetch_status, fetched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (product_id, url) DO UPDATE SET
		subreddit = excluded.subreddit,
		raw_html = excluded.raw_html,
		extracted_text = excluded.extracted_text,
		fetch_status = excluded.fetch_status,
		fetched_at = excluded.fetched_at
	RETURNING id, product_id, url, subreddit, raw_html, extracted_text, fetch_status, fetched_at
	`
	var p storage.ProductPage
	var status string
	err := s.pool.QueryRow(ctx, query,
		uuid.New().String(), productID, page.URL, page.Subreddit,
		page.RawHTML, page.ExtractedText, string(page.Status), now,
	).Scan(&p.ID, &p.ProductID, &p.URL, &p.Subreddit, &p.RawHTML, &p.ExtractedText, &status, &p.FetchedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert page: %w", err)
	}
	p.FetchStatus = storage.FetchStatus(status)
	return &p, nil
}

func (s *postgresStore) PagesByProduct(ctx context.Context, productID string) ([]*storage.ProductPage, error) {
	rows, err := s.pool.Query(ctx, `
	SELECT id, product_id, url, subreddit, raw_html, extracted_text, fetch_status, fetched_at
	FROM product_pages WHERE product_id = $1 ORDER BY url`, productID)
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

func (s *postgresStore) UpsertUser(ctx context.Context, pageID string, user storage.UserUpsert) (*storage.ProductUser, error) {
	now := time.Now().UTC()
	query := `
	INSERT INTO product_users (id, product_page_id, username, profile_url, evidence_text, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (product_page_id, username) DO UPDATE SET
		profile_url = excluded.profile_url,
		evidence_text = excluded.evidence_text
	RETURNING id, product_page_id, username, profile_url, evidence_text, created_at
	`
	var u storage.ProductUser
	err := s.pool.QueryRow(ctx, query,
		uuid.New().String(), pageID, user.Username, user.ProfileURL, user.EvidenceText, now,
	).Scan(&u.ID, &u.ProductPageID, &u.Username, &u.ProfileURL, &u.EvidenceText, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

func (s *postgresStore) UsersByPage(ctx context.Context, pageID string) ([]*storage.ProductUser, error) {
	rows, err := s.pool.Query(ctx, `
	SELECT id, product_page_id, username, profile_url, evidence_text, created_at
	FROM product_users WHERE product_page_id = $1 ORDER BY username`, pageID)
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

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}
