package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

type (
	TransactionType string

	Category struct {
		ID        string
		Title     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Transaction struct {
		ID         string
		Title      string
		Value      decimal.Decimal
		Type       TransactionType
		CategoryID string
		Category   *Category // populated on reads and by the services
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}
)

var (
	ErrInvalidType         = errors.New("this transaction type is not allowed")
	ErrInsufficientBalance = errors.New("you're not able to outcome this value")
	ErrNotFound            = errors.New("this transaction does not exist")
	ErrEmptyTitle          = errors.New("empty title")
	ErrInvalidValue        = errors.New("invalid value")
	ErrEmptyCategory       = errors.New("empty category title")
	ErrMissingCategory     = errors.New("transaction has no category")
	ErrCategoryExists      = errors.New("category already exists")
	ErrUnresolvedCategory  = errors.New("category could not be resolved")
	ErrInvalidFileName     = errors.New("invalid import file name")
)

func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the recognized transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Outcome:
		return true
	default:
		return false
	}
}

// ParseTransactionType maps raw input onto a TransactionType. Matching is
// exact, so "Income" is rejected.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Validate checks the fields a transaction needs before it can be persisted.
func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.Value.IsNegative() {
		return ErrInvalidValue
	}
	if t.CategoryID == "" {
		return ErrMissingCategory
	}
	return nil
}
