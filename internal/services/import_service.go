package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
)

// maxCategoryAttempts bounds the retries after a concurrent importer wins the
// race to create a category title.
const maxCategoryAttempts = 3

// ImportConfig holds configuration for the import service
type ImportConfig struct {
	ServiceConfig

	// UploadDir is where uploaded import files are looked up (default: ./tmp)
	UploadDir string

	// RemoveAfterImport deletes the file once its rows are stored
	RemoveAfterImport bool
}

// DefaultImportConfig returns sensible defaults
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		ServiceConfig: DefaultServiceConfig(),
		UploadDir:     "./tmp",
	}
}

// ImportResult describes the outcome of a bulk import.
type ImportResult struct {
	// Transactions are the stored rows in file order.
	Transactions []core.Transaction
	// Skipped counts malformed rows that were dropped.
	Skipped int
	// CreatedCategories are the categories the import had to create.
	CreatedCategories []core.Category
}

// ImportService bulk-loads transactions from CSV files.
type ImportService struct {
	transactions ledger.TransactionStore
	categories   ledger.CategoryStore
	publisher    ledger.EventPublisher
	config       ImportConfig
}

// NewImportService wires the service. publisher may be nil.
func NewImportService(
	transactions ledger.TransactionStore,
	categories ledger.CategoryStore,
	publisher ledger.EventPublisher,
	config ImportConfig,
) *ImportService {
	if config.DefaultCategory == "" {
		config.DefaultCategory = DefaultCategoryTitle
	}
	return &ImportService{
		transactions: transactions,
		categories:   categories,
		publisher:    publisher,
		config:       config,
	}
}

// pendingTransaction is a parsed row waiting for its category.
type pendingTransaction struct {
	line     int
	title    string
	typ      core.TransactionType
	value    decimal.Decimal
	category string
}

// Import reads fileName from the upload directory and stores its rows.
// fileName must be a bare file name.
func (s *ImportService) Import(ctx context.Context, fileName string) (ImportResult, error) {
	if fileName == "" || fileName == "." || fileName == ".." || filepath.Base(fileName) != fileName {
		return ImportResult{}, fmt.Errorf("%w: %q", core.ErrInvalidFileName, fileName)
	}
	path := filepath.Join(s.config.UploadDir, fileName)

	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	result, err := s.ImportReader(ctx, f)
	if err != nil {
		return ImportResult{}, err
	}

	slog.InfoContext(ctx, "Import file processed",
		append(applog.NewFields().
			WithComponent(applog.ComponentImport).
			WithImport(fileName, len(result.Transactions), result.Skipped, len(result.CreatedCategories)).
			ToSlice(), applog.FieldDuration, time.Since(start).Milliseconds())...)

	if s.config.RemoveAfterImport {
		f.Close()
		if err := os.Remove(path); err != nil {
			slog.WarnContext(ctx, "Failed to remove imported file", applog.FieldFile, path, "error", err)
		}
	}

	return result, nil
}

// ImportReader stores every valid row read from r. Categories are looked up
// with one query and created with one batch write; transactions are then
// written in a second batch.
func (s *ImportService) ImportReader(ctx context.Context, r io.Reader) (ImportResult, error) {
	var (
		pending []pendingTransaction
		names   []string
		skipped int
	)

	err := readImportRows(r, func(row importRow) error {
		p, reason := s.parseRow(row)
		if reason != "" {
			skipped++
			slog.DebugContext(ctx, "Import row skipped",
				applog.FieldComponent, applog.ComponentImport,
				applog.FieldLine, row.Line,
				applog.FieldReason, reason)
			return nil
		}
		pending = append(pending, p)
		names = append(names, p.category)
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	if len(pending) == 0 {
		return ImportResult{Skipped: skipped}, nil
	}

	pool, created, err := s.reconcileCategories(ctx, names)
	if err != nil {
		return ImportResult{}, err
	}

	txs := make([]core.Transaction, len(pending))
	for i, p := range pending {
		c, ok := pool[p.category]
		if !ok {
			return ImportResult{}, fmt.Errorf("line %d: %w: %s", p.line, core.ErrUnresolvedCategory, p.category)
		}
		txs[i] = core.Transaction{
			Title:      p.title,
			Value:      p.value,
			Type:       p.typ,
			CategoryID: c.ID,
		}
	}

	saved, err := s.transactions.SaveTransactions(ctx, txs)
	if err != nil {
		return ImportResult{}, fmt.Errorf("save imported transactions: %w", err)
	}
	for i := range saved {
		c := pool[pending[i].category]
		saved[i].Category = &c
	}

	slog.InfoContext(ctx, "Transactions imported",
		applog.FieldComponent, applog.ComponentImport,
		applog.FieldCount, len(saved),
		applog.FieldSkipped, skipped,
		applog.FieldCreated, len(created))

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionsImported(ctx, len(saved)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish imported event", "count", len(saved), "error", err)
		}
	}

	return ImportResult{
		Transactions:      saved,
		Skipped:           skipped,
		CreatedCategories: created,
	}, nil
}

// parseRow returns the pending transaction, or a non-empty reason when the
// row has to be dropped.
func (s *ImportService) parseRow(row importRow) (pendingTransaction, string) {
	if row.Title == "" || row.Type == "" || row.Value == "" {
		return pendingTransaction{}, "missing title, type or value"
	}
	typ, err := core.ParseTransactionType(row.Type)
	if err != nil {
		return pendingTransaction{}, "unknown type " + row.Type
	}
	value, err := core.ParseValue(row.Value)
	if err != nil {
		return pendingTransaction{}, "invalid value " + row.Value
	}
	return pendingTransaction{
		line:     row.Line,
		title:    row.Title,
		typ:      typ,
		value:    value,
		category: categoryTitle(row.Category, s.config.DefaultCategory),
	}, ""
}

// reconcileCategories returns the working pool keyed by title and the
// categories created for it.
func (s *ImportService) reconcileCategories(ctx context.Context, names []string) (map[string]core.Category, []core.Category, error) {
	pool := make(map[string]core.Category)
	var created []core.Category

	for attempt := 1; ; attempt++ {
		existing, err := s.categories.FindCategoriesByTitles(ctx, missingTitles(names, pool))
		if err != nil {
			return nil, nil, fmt.Errorf("find categories: %w", err)
		}
		for _, c := range existing {
			pool[c.Title] = c
		}

		toCreate := missingTitles(names, pool)
		if len(toCreate) == 0 {
			return pool, created, nil
		}

		batch := make([]core.Category, len(toCreate))
		for i, title := range toCreate {
			batch[i] = core.Category{Title: title}
		}

		saved, err := s.categories.SaveCategories(ctx, batch)
		if err == nil {
			for _, c := range saved {
				pool[c.Title] = c
			}
			created = append(created, saved...)
			return pool, created, nil
		}
		if !errors.Is(err, core.ErrCategoryExists) || attempt >= maxCategoryAttempts {
			return nil, nil, fmt.Errorf("save categories: %w", err)
		}

		slog.WarnContext(ctx, "Category batch conflicted, reloading",
			applog.FieldComponent, applog.ComponentImport,
			"attempt", attempt,
			"error", err)
	}
}

// missingTitles returns the titles in names that are not in pool,
// deduplicated by first occurrence.
func missingTitles(names []string, pool map[string]core.Category) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, n := range names {
		if _, ok := pool[n]; ok {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
