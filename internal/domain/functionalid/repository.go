package functionalid

import "context"

// Repository persists generator records keyed by label.
//
// Mutating calls take the record's exclusive lock and must run inside a
// transaction opened by the tx.Manager the service was built with; the lock is
// held until that transaction ends.
type Repository interface {
	// FindByLabel returns the committed (or in-transaction) record.
	// Returns an apperror NOT_FOUND error if the label has no generator.
	FindByLabel(ctx context.Context, label string) (*Generator, error)

	// GetForUpdate is FindByLabel plus the exclusive row lock.
	GetForUpdate(ctx context.Context, label string) (*Generator, error)

	// List returns all generators ordered by label.
	List(ctx context.Context) ([]*Generator, error)

	// Create inserts a new record. Returns DUPLICATE_ENTRY if the label exists.
	Create(ctx context.Context, g *Generator) error

	// Update replaces prefix, sequence and uid of an existing record.
	Update(ctx context.Context, g *Generator) error

	// Delete removes the record. Returns NOT_FOUND if absent.
	Delete(ctx context.Context, label string) error
}
