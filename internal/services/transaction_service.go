package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
)

// DefaultCategoryTitle is used for transactions that name no category.
const DefaultCategoryTitle = "Uncategorized"

// ServiceConfig holds settings shared by the transaction and import services
type ServiceConfig struct {
	// DefaultCategory replaces an empty category name (default: Uncategorized)
	DefaultCategory string
}

// DefaultServiceConfig returns sensible defaults
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{DefaultCategory: DefaultCategoryTitle}
}

// CreateTransactionRequest is the input of TransactionService.Create.
type CreateTransactionRequest struct {
	Title    string
	Value    decimal.Decimal
	Type     core.TransactionType
	Category string
}

// TransactionService orchestrates single-transaction operations over the
// ledger stores and publishes change events.
type TransactionService struct {
	transactions ledger.TransactionStore
	categories   ledger.CategoryStore
	publisher    ledger.EventPublisher
	config       ServiceConfig

	// Collapses concurrent creation of the same category title.
	group singleflight.Group
}

// NewTransactionService wires the service. publisher may be nil.
func NewTransactionService(
	transactions ledger.TransactionStore,
	categories ledger.CategoryStore,
	publisher ledger.EventPublisher,
	config ServiceConfig,
) *TransactionService {
	if config.DefaultCategory == "" {
		config.DefaultCategory = DefaultCategoryTitle
	}
	return &TransactionService{
		transactions: transactions,
		categories:   categories,
		publisher:    publisher,
		config:       config,
	}
}

// Create validates and persists one transaction, creating its category when
// no category with that title exists yet.
func (s *TransactionService) Create(ctx context.Context, req CreateTransactionRequest) (core.Transaction, error) {
	if !req.Type.IsValid() {
		return core.Transaction{}, core.ErrInvalidType
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return core.Transaction{}, core.ErrEmptyTitle
	}
	if req.Value.IsNegative() {
		return core.Transaction{}, core.ErrInvalidValue
	}

	balance, err := s.transactions.Balance(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load balance: %w", err)
	}

	if req.Type == core.Outcome && !balance.CanAfford(req.Value) {
		slog.WarnContext(ctx, "Outcome rejected",
			applog.FieldComponent, applog.ComponentTransaction,
			applog.FieldValue, req.Value.String(),
			"balance", balance.Total.String())
		return core.Transaction{}, core.ErrInsufficientBalance
	}

	category, err := s.resolveCategory(ctx, req.Category)
	if err != nil {
		return core.Transaction{}, err
	}

	t, err := s.transactions.CreateTransaction(ctx, core.Transaction{
		Title:      title,
		Value:      req.Value,
		Type:       req.Type,
		CategoryID: category.ID,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.Category = &category

	slog.InfoContext(ctx, "Transaction created",
		applog.NewFields().
			WithComponent(applog.ComponentTransaction).
			WithOperation(applog.OpCreate).
			WithTransaction(t.ID, t.Title, t.Value.String(), t.Type.String(), t.CategoryID).
			ToSlice()...)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionCreated(ctx, t); err != nil {
			// Don't fail the request - the transaction is stored
			slog.ErrorContext(ctx, "Failed to publish created event", "id", t.ID, "error", err)
		}
	}

	return t, nil
}

// Delete removes the transaction with the given id. Its category stays.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ErrNotFound
	}

	if _, err := s.transactions.FindTransaction(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrNotFound
		}
		return fmt.Errorf("find transaction: %w", err)
	}

	if err := s.transactions.RemoveTransaction(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrNotFound
		}
		return fmt.Errorf("remove transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		applog.FieldComponent, applog.ComponentTransaction,
		applog.FieldTransactionID, id)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionDeleted(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish deleted event", "id", id, "error", err)
		}
	}

	return nil
}

// Balance returns income, outcome and net total over the whole ledger.
func (s *TransactionService) Balance(ctx context.Context) (core.Balance, error) {
	b, err := s.transactions.Balance(ctx)
	if err != nil {
		return core.Balance{}, fmt.Errorf("load balance: %w", err)
	}
	return b, nil
}

// List returns every transaction, oldest first.
func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.transactions.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) resolveCategory(ctx context.Context, raw string) (core.Category, error) {
	title := categoryTitle(raw, s.config.DefaultCategory)

	v, err, _ := s.group.Do(title, func() (any, error) {
		return findOrCreateCategory(ctx, s.categories, title)
	})
	if err != nil {
		return core.Category{}, err
	}
	return v.(core.Category), nil
}

// findOrCreateCategory is an insert-or-fetch: a unique-constraint conflict
// means another writer created the row first, so it is read back.
func findOrCreateCategory(ctx context.Context, store ledger.CategoryStore, title string) (core.Category, error) {
	existing, err := store.FindCategoryByTitle(ctx, title)
	if err != nil {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}

	created, err := store.CreateCategory(ctx, core.Category{Title: title})
	if err == nil {
		slog.InfoContext(ctx, "Category created",
			applog.FieldComponent, applog.ComponentTransaction,
			applog.FieldCategoryID, created.ID,
			applog.FieldCategory, created.Title)
		return created, nil
	}
	if !errors.Is(err, core.ErrCategoryExists) {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	existing, err = store.FindCategoryByTitle(ctx, title)
	if err != nil {
		return core.Category{}, fmt.Errorf("find category after conflict: %w", err)
	}
	if existing == nil {
		return core.Category{}, fmt.Errorf("%w: %s", core.ErrUnresolvedCategory, title)
	}
	return *existing, nil
}

func categoryTitle(raw, fallback string) string {
	if t := strings.TrimSpace(raw); t != "" {
		return t
	}
	return fallback
}
