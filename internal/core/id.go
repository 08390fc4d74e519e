package core

import "github.com/google/uuid"

// NewID returns a random identifier for a transaction or category row.
func NewID() string {
	return uuid.NewString()
}
