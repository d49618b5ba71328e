// Package memory provides an in-memory storage.Store. It backs tests and
// dry runs where no database is configured; upsert semantics match the SQL
// backends.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/outreach/internal/storage"
	"github.com/google/uuid"
)

// ensure memStore implements storage.Store
var _ storage.Store = (*memStore)(nil)

type memStore struct {
	mu       sync.Mutex
	products map[string]*storage.Product     // by id
	pages    map[string]*storage.ProductPage // by id
	users    map[string]*storage.ProductUser // by id
}

// New creates an empty in-memory store.
func New() storage.Store {
	return &memStore{
		products: make(map[string]*storage.Product),
		pages:    make(map[string]*storage.ProductPage),
		users:    make(map[string]*storage.ProductUser),
	}
}

func (s *memStore) CreateProduct(ctx context.Context, name string) (*storage.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.findProduct(name); p != nil {
		cp := *p
		return &cp, nil
	}

	now := time.Now().UTC()
	p := &storage.Product{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.products[p.ID] = p
	cp := *p
	return &cp, nil
}

func (s *memStore) ProductByName(ctx context.Context, name string) (*storage.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.findProduct(name); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) Products(ctx context.Context) ([]*storage.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*storage.Product, 0, len(s.products))
	for _, p := range s.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) UpsertPage(ctx context.Context, productID string, page storage.PageUpsert) (*storage.ProductPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return nil, storage.ErrNotFound
	}

	for _, existing := range s.pages {
		if existing.ProductID == productID && existing.URL == page.URL {
			existing.Subreddit = page.Subreddit
			existing.RawHTML = page.RawHTML
			existing.ExtractedText = page.ExtractedText
			existing.FetchStatus = page.Status
			existing.FetchedAt = time.Now().UTC()
			cp := *existing
			return &cp, nil
		}
	}

	p := &storage.ProductPage{
		ID:            uuid.New().String(),
		ProductID:     productID,
		URL:           page.URL,
		Subreddit:     page.Subreddit,
		RawHTML:       page.RawHTML,
		ExtractedText: page.ExtractedText,
		FetchStatus:   page.Status,
		FetchedAt:     time.Now().UTC(),
	}
	s.pages[p.ID] = p
	cp := *p
	return &cp, nil
}

func (s *memStore) PagesByProduct(ctx context.Context, productID string) ([]*storage.ProductPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*storage.ProductPage
	for _, p := range s.pages {
		if p.ProductID == productID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

func (s *memStore) UpsertUser(ctx context.Context, pageID string, user storage.UserUpsert) (*storage.ProductUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[pageID]; !ok {
		return nil, storage.ErrNotFound
	}

	for _, existing := range s.users {
		if existing.ProductPageID == pageID && existing.Username == user.Username {
			existing.ProfileURL = user.ProfileURL
			existing.EvidenceText = user.EvidenceText
			cp := *existing
			return &cp, nil
		}
	}

	u := &storage.ProductUser{
		ID:            uuid.New().String(),
		ProductPageID: pageID,
		Username:      user.Username,
		ProfileURL:    user.ProfileURL,
		EvidenceText:  user.EvidenceText,
		CreatedAt:     time.Now().UTC(),
	}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *memStore) UsersByPage(ctx context.Context, pageID string) ([]*storage.ProductUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*storage.ProductUser
	for _, u := range s.users {
		if u.ProductPageID == pageID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *memStore) Close() error { return nil }

// findProduct matches by name case-insensitively; caller holds the lock.
func (s *memStore) findProduct(name string) *storage.Product {
	for _, p := range s.products {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}
