package cache

import (
	"context"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// Store fronts a ledger.Store with a title-keyed category cache. Categories
// are never renamed or removed, so a cached hit stays valid; misses are not
// cached because another writer may create the title at any time.
type Store struct {
	ledger.Store
	categories Cache[core.Category]
}

// NewStore wraps next with an LRU cache holding up to size categories.
func NewStore(next ledger.Store, size int) *Store {
	return &Store{
		Store:      next,
		categories: NewLRUCache[core.Category](size),
	}
}

// FindCategoryByTitle implements ledger.CategoryStore
func (s *Store) FindCategoryByTitle(ctx context.Context, title string) (*core.Category, error) {
	if c, ok := s.categories.Get(title); ok {
		return &c, nil
	}

	c, err := s.Store.FindCategoryByTitle(ctx, title)
	if err != nil || c == nil {
		return c, err
	}
	s.categories.Set(c.Title, *c)
	return c, nil
}

// FindCategoriesByTitles implements ledger.CategoryStore. Only the titles
// missing from the cache reach the wrapped store.
func (s *Store) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	var (
		out  []core.Category
		miss []string
	)
	for _, t := range titles {
		if c, ok := s.categories.Get(t); ok {
			out = append(out, c)
			continue
		}
		miss = append(miss, t)
	}
	if len(miss) == 0 {
		return out, nil
	}

	found, err := s.Store.FindCategoriesByTitles(ctx, miss)
	if err != nil {
		return nil, err
	}
	s.remember(found)
	return append(out, found...), nil
}

// CreateCategory implements ledger.CategoryStore
func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	created, err := s.Store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.categories.Set(created.Title, created)
	return created, nil
}

// SaveCategories implements ledger.CategoryStore
func (s *Store) SaveCategories(ctx context.Context, cs []core.Category) ([]core.Category, error) {
	saved, err := s.Store.SaveCategories(ctx, cs)
	if err != nil {
		return nil, err
	}
	s.remember(saved)
	return saved, nil
}

func (s *Store) remember(cs []core.Category) {
	for _, c := range cs {
		s.categories.Set(c.Title, c)
	}
}

// Size returns the number of cached categories.
func (s *Store) Size() int {
	return s.categories.Size()
}
