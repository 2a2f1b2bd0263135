// Package tx provides transaction management abstractions.
// Domain code depends on these interfaces; the PostgreSQL and in-memory
// stores provide the implementations.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested transaction support.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Row locks taken inside fn are held until the transaction ends.
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// ReadOnly executes fn within a transaction that rejects writes.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
