package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"ledger/internal/core"
)

const categoryColumns = `id, title, created_at, updated_at`

// FindCategoryByTitle implements ledger.CategoryStore. A missing category is
// reported as (nil, nil).
func (r *SQLiteRepository) FindCategoryByTitle(ctx context.Context, title string) (*core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE title = ?`, title)

	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", title, err)
	}
	return &c, nil
}

// FindCategoriesByTitles implements ledger.CategoryStore.
func (r *SQLiteRepository) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	var out []core.Category
	for _, part := range chunk(uniqueStrings(titles), maxInParams) {
		args := make([]any, len(part))
		for i, t := range part {
			args[i] = t
		}

		rows, err := r.db.QueryContext(ctx,
			`SELECT `+categoryColumns+` FROM categories WHERE title IN (`+placeholders(len(part))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("query categories by title: %w", err)
		}

		for rows.Next() {
			c, err := scanCategory(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan category: %w", err)
			}
			out = append(out, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate categories: %w", err)
		}
		rows.Close()
	}

	slog.DebugContext(ctx, "Categories looked up by title", "requested", len(titles), "found", len(out))
	return out, nil
}

// CreateCategory implements ledger.CategoryStore.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c = r.newCategory(c)

	if err := insertCategory(ctx, r.db, c); err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, fmt.Errorf("%w: %s", core.ErrCategoryExists, c.Title)
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category saved to SQLite", "id", c.ID, "title", c.Title)
	return c, nil
}

// SaveCategories implements ledger.CategoryStore. The batch is written in a
// single SQL transaction.
func (r *SQLiteRepository) SaveCategories(ctx context.Context, cs []core.Category) ([]core.Category, error) {
	if len(cs) == 0 {
		return nil, nil
	}

	out := make([]core.Category, len(cs))
	for i, c := range cs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out[i] = r.newCategory(c)
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare category insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range out {
			if _, err := stmt.ExecContext(ctx, c.ID, c.Title, formatTime(c.CreatedAt), formatTime(c.UpdatedAt)); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: %s", core.ErrCategoryExists, c.Title)
				}
				return fmt.Errorf("insert category %q: %w", c.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save categories: %w", err)
	}

	slog.InfoContext(ctx, "Categories saved to SQLite", "count", len(out))
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCategory(ctx context.Context, db execer, c core.Category) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	return err
}

func (r *SQLiteRepository) newCategory(c core.Category) core.Category {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now
	return c
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		c                core.Category
		created, updated string
	)
	if err := s.Scan(&c.ID, &c.Title, &created, &updated); err != nil {
		return core.Category{}, err
	}
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return core.Category{}, err
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
