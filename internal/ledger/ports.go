package ledger

import (
	"context"

	"ledger/internal/core"
)

// Ports for the storage and event adapters.
type (
	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// SaveTransactions persists a batch in one write; either every row
		// is stored or none is.
		SaveTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
		// FindTransaction returns core.ErrNotFound when no row matches id.
		FindTransaction(ctx context.Context, id string) (core.Transaction, error)
		RemoveTransaction(ctx context.Context, id string) error
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		Balance(ctx context.Context) (core.Balance, error)
	}

	CategoryStore interface {
		// FindCategoryByTitle returns (nil, nil) when no category has that title.
		FindCategoryByTitle(ctx context.Context, title string) (*core.Category, error)
		// FindCategoriesByTitles returns every category whose title is in titles,
		// in one round trip.
		FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error)
		// CreateCategory returns core.ErrCategoryExists when the title is taken.
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		SaveCategories(ctx context.Context, cs []core.Category) ([]core.Category, error)
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionStore
		CategoryStore
	}

	// EventPublisher announces ledger changes to interested consumers.
	EventPublisher interface {
		PublishTransactionCreated(ctx context.Context, t core.Transaction) error
		PublishTransactionDeleted(ctx context.Context, id string) error
		PublishTransactionsImported(ctx context.Context, count int) error
	}
)
