package services

import (
	"context"
	"errors"
	"sync"

	"ledger/internal/core"
	"ledger/internal/ledger/memory"
)

// countingStore wraps the memory store and counts round trips.
type countingStore struct {
	*memory.Store

	mu                sync.Mutex
	findByTitles      int
	saveCategories    int
	saveTransactions  int
	createCategory    int
	conflictOnceTitle string
}

func newCountingStore(titles ...string) *countingStore {
	return &countingStore{Store: memory.NewWithCategories(titles...)}
}

func (c *countingStore) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	c.mu.Lock()
	c.findByTitles++
	c.mu.Unlock()
	return c.Store.FindCategoriesByTitles(ctx, titles)
}

func (c *countingStore) CreateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	c.mu.Lock()
	c.createCategory++
	c.mu.Unlock()
	return c.Store.CreateCategory(ctx, cat)
}

// SaveCategories simulates a concurrent writer: the first batch containing
// conflictOnceTitle sees that title created underneath it.
func (c *countingStore) SaveCategories(ctx context.Context, cs []core.Category) ([]core.Category, error) {
	c.mu.Lock()
	c.saveCategories++
	conflict := c.conflictOnceTitle
	c.conflictOnceTitle = ""
	c.mu.Unlock()

	if conflict != "" {
		for _, cat := range cs {
			if cat.Title == conflict {
				if _, err := c.Store.CreateCategory(ctx, core.Category{Title: conflict}); err != nil {
					return nil, err
				}
				return nil, core.ErrCategoryExists
			}
		}
	}
	return c.Store.SaveCategories(ctx, cs)
}

func (c *countingStore) SaveTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	c.mu.Lock()
	c.saveTransactions++
	c.mu.Unlock()
	return c.Store.SaveTransactions(ctx, txs)
}

type publishedEvent struct {
	kind  string
	id    string
	count int
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishTransactionCreated(_ context.Context, t core.Transaction) error {
	return p.record(publishedEvent{kind: "created", id: t.ID})
}

func (p *fakePublisher) PublishTransactionDeleted(_ context.Context, id string) error {
	return p.record(publishedEvent{kind: "deleted", id: id})
}

func (p *fakePublisher) PublishTransactionsImported(_ context.Context, count int) error {
	return p.record(publishedEvent{kind: "imported", count: count})
}

func (p *fakePublisher) record(e publishedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

var errStorageDown = errors.New("storage down")

// brokenBalanceStore fails every balance query.
type brokenBalanceStore struct {
	*memory.Store
}

func (brokenBalanceStore) Balance(context.Context) (core.Balance, error) {
	return core.Balance{}, errStorageDown
}
