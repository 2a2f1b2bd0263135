package functionalid

import (
	"context"

	"funcid/internal/core/apperror"
)

// MockRepository is a test implementation of Repository.
// Unset functions behave like an empty store.
type MockRepository struct {
	FindByLabelFunc  func(ctx context.Context, label string) (*Generator, error)
	GetForUpdateFunc func(ctx context.Context, label string) (*Generator, error)
	ListFunc         func(ctx context.Context) ([]*Generator, error)
	CreateFunc       func(ctx context.Context, g *Generator) error
	UpdateFunc       func(ctx context.Context, g *Generator) error
	DeleteFunc       func(ctx context.Context, label string) error
}

// FindByLabel implements Repository.
func (m *MockRepository) FindByLabel(ctx context.Context, label string) (*Generator, error) {
	if m.FindByLabelFunc != nil {
		return m.FindByLabelFunc(ctx, label)
	}
	return nil, apperror.NewNotFound("functional id generator", label)
}

// GetForUpdate implements Repository.
func (m *MockRepository) GetForUpdate(ctx context.Context, label string) (*Generator, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, label)
	}
	return nil, apperror.NewNotFound("functional id generator", label)
}

// List implements Repository.
func (m *MockRepository) List(ctx context.Context) ([]*Generator, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// Create implements Repository.
func (m *MockRepository) Create(ctx context.Context, g *Generator) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, g)
	}
	return nil
}

// Update implements Repository.
func (m *MockRepository) Update(ctx context.Context, g *Generator) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, g)
	}
	return nil
}

// Delete implements Repository.
func (m *MockRepository) Delete(ctx context.Context, label string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, label)
	}
	return apperror.NewNotFound("functional id generator", label)
}

// Ensure compile-time interface compliance.
var _ Repository = (*MockRepository)(nil)

// PassthroughTx is a tx.Manager that runs fn directly. Pair it with
// MockRepository when transaction boundaries are irrelevant to the test.
type PassthroughTx struct{}

// RunInTransaction implements tx.Manager.
func (PassthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ReadOnly implements tx.Manager.
func (PassthroughTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
