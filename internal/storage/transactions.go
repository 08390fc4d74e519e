package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

const transactionSelect = `
	SELECT t.id, t.title, t.value, t.type, t.category_id, t.created_at, t.updated_at,
	       c.id, c.title, c.created_at, c.updated_at
	FROM transactions t
	JOIN categories c ON c.id = t.category_id`

// CreateTransaction implements ledger.TransactionStore.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t = r.newTransaction(t)

	if err := insertTransaction(ctx, r.db, t); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"title", t.Title,
		"value", t.Value.String(),
		"type", t.Type,
		"category_id", t.CategoryID)

	return t, nil
}

// SaveTransactions implements ledger.TransactionStore. The batch is written
// in a single SQL transaction.
func (r *SQLiteRepository) SaveTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = r.newTransaction(t)
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertTransactionSQL)
		if err != nil {
			return fmt.Errorf("prepare transaction insert: %w", err)
		}
		defer stmt.Close()

		for i, t := range out {
			if _, err := stmt.ExecContext(ctx, transactionArgs(t)...); err != nil {
				return fmt.Errorf("insert row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(out))
	return out, nil
}

// FindTransaction implements ledger.TransactionStore.
func (r *SQLiteRepository) FindTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id)

	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("find transaction %s: %w", id, err)
	}
	return t, nil
}

// RemoveTransaction implements ledger.TransactionStore.
func (r *SQLiteRepository) RemoveTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction removed from SQLite", "id", id)
	return nil
}

// ListTransactions implements ledger.TransactionStore, oldest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, transactionSelect+` ORDER BY t.created_at, t.rowid`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Balance implements ledger.TransactionStore. Values are stored as decimal
// text, so the sums are taken in Go rather than with SQL SUM, which would
// go through floating point.
func (r *SQLiteRepository) Balance(ctx context.Context) (core.Balance, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, value FROM transactions`)
	if err != nil {
		return core.Balance{}, fmt.Errorf("query balance: %w", err)
	}
	defer rows.Close()

	income, outcome := decimal.Zero, decimal.Zero
	for rows.Next() {
		var typ, raw string
		if err := rows.Scan(&typ, &raw); err != nil {
			return core.Balance{}, fmt.Errorf("scan balance row: %w", err)
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return core.Balance{}, fmt.Errorf("parse stored value %q: %w", raw, err)
		}
		switch core.TransactionType(typ) {
		case core.Income:
			income = income.Add(v)
		case core.Outcome:
			outcome = outcome.Add(v)
		}
	}
	if err := rows.Err(); err != nil {
		return core.Balance{}, fmt.Errorf("iterate balance rows: %w", err)
	}

	return core.NewBalance(income, outcome), nil
}

const insertTransactionSQL = `
	INSERT INTO transactions (id, title, value, type, category_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

func insertTransaction(ctx context.Context, db execer, t core.Transaction) error {
	_, err := db.ExecContext(ctx, insertTransactionSQL, transactionArgs(t)...)
	return err
}

func transactionArgs(t core.Transaction) []any {
	return []any{
		t.ID,
		t.Title,
		t.Value.String(),
		string(t.Type),
		t.CategoryID,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	}
}

func (r *SQLiteRepository) newTransaction(t core.Transaction) core.Transaction {
	if t.ID == "" {
		t.ID = core.NewID()
	}
	now := r.now()
	t.CreatedAt, t.UpdatedAt = now, now
	return t
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                      core.Transaction
		c                      core.Category
		value, typ             string
		created, updated       string
		catCreated, catUpdated string
	)
	if err := s.Scan(
		&t.ID, &t.Title, &value, &typ, &t.CategoryID, &created, &updated,
		&c.ID, &c.Title, &catCreated, &catUpdated,
	); err != nil {
		return core.Transaction{}, err
	}

	v, err := decimal.NewFromString(value)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored value %q: %w", value, err)
	}
	t.Value = v
	t.Type = core.TransactionType(typ)

	for _, p := range []struct {
		dst *time.Time
		raw string
	}{
		{&t.CreatedAt, created},
		{&t.UpdatedAt, updated},
		{&c.CreatedAt, catCreated},
		{&c.UpdatedAt, catUpdated},
	} {
		if *p.dst, err = parseTime(p.raw); err != nil {
			return core.Transaction{}, err
		}
	}

	t.Category = &c
	return t, nil
}
