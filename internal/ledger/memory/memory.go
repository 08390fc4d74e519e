package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
)

type Store struct {
	mu    sync.Mutex
	now   func() time.Time
	cats  []core.Category
	items []core.Transaction

	// Failure hooks for tests exercising batch error paths.
	FailSaveCategories   error
	FailSaveTransactions error
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewWithCategories seeds the store with the given titles, skipping blanks
// and duplicates.
func NewWithCategories(titles ...string) *Store {
	s := New()
	for _, t := range dedupe(titles) {
		s.cats = append(s.cats, s.newCategory(core.Category{Title: t}))
	}
	return s
}

// CreateTransaction stores t, assigning an ID when it has none.
func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTransaction(t); err != nil {
		return core.Transaction{}, err
	}
	t = s.stamp(t)
	s.items = append(s.items, t)
	return t, nil
}

// SaveTransactions validates the whole batch before storing any of it.
func (s *Store) SaveTransactions(_ context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaveTransactions != nil {
		return nil, s.FailSaveTransactions
	}
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		if err := s.checkTransaction(t); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = s.stamp(t)
	}
	s.items = append(s.items, out...)
	return out, nil
}

func (s *Store) FindTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return s.withCategory(t), nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *Store) RemoveTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	for i, t := range s.items {
		out[i] = s.withCategory(t)
	}
	return out, nil
}

func (s *Store) Balance(_ context.Context) (core.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.ComputeBalance(s.items), nil
}

func (s *Store) FindCategoryByTitle(_ context.Context, title string) (*core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.Title == title {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) FindCategoriesByTitles(_ context.Context, titles []string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		want[t] = struct{}{}
	}
	var out []core.Category
	for _, c := range s.cats {
		if _, ok := want[c.Title]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if s.hasTitle(c.Title) {
		return core.Category{}, fmt.Errorf("%w: %s", core.ErrCategoryExists, c.Title)
	}
	c = s.newCategory(c)
	s.cats = append(s.cats, c)
	return c, nil
}

func (s *Store) SaveCategories(_ context.Context, cs []core.Category) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaveCategories != nil {
		return nil, s.FailSaveCategories
	}
	seen := map[string]struct{}{}
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[c.Title]; dup || s.hasTitle(c.Title) {
			return nil, fmt.Errorf("%w: %s", core.ErrCategoryExists, c.Title)
		}
		seen[c.Title] = struct{}{}
	}
	out := make([]core.Category, len(cs))
	for i, c := range cs {
		out[i] = s.newCategory(c)
	}
	s.cats = append(s.cats, out...)
	return out, nil
}

// Categories returns the stored categories sorted by title.
func (s *Store) Categories() []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Category(nil), s.cats...)
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (s *Store) checkTransaction(t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	for _, c := range s.cats {
		if c.ID == t.CategoryID {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown category %s", core.ErrMissingCategory, t.CategoryID)
}

func (s *Store) stamp(t core.Transaction) core.Transaction {
	if t.ID == "" {
		t.ID = core.NewID()
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	return s.withCategory(t)
}

func (s *Store) withCategory(t core.Transaction) core.Transaction {
	for _, c := range s.cats {
		if c.ID == t.CategoryID {
			c := c
			t.Category = &c
			break
		}
	}
	return t
}

func (s *Store) newCategory(c core.Category) core.Category {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	return c
}

func (s *Store) hasTitle(title string) bool {
	for _, c := range s.cats {
		if c.Title == title {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
