// Package memory provides an in-process generator store.
//
// Each label has its own lock, taken by GetForUpdate, Create, Update and Delete
// and held until the surrounding transaction ends. A lock slot lives only while
// some transaction holds or waits for it. Writes are buffered per
// transaction and applied together on commit, so readers never observe a
// half-applied transaction. Used for tests and single-process deployments
// (STORE=memory); state is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"funcid/internal/core/apperror"
	"funcid/internal/core/tx"
	"funcid/internal/domain/functionalid"
)

const entityName = "functional id generator"

// Store keeps generator records in memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]functionalid.Generator

	locksMu sync.Mutex
	locks   map[string]*lockSlot
}

// lockSlot is a per-label lock; refs counts holders and waiters.
type lockSlot struct {
	ch   chan struct{}
	refs int
}

// Compile-time interface checks.
var (
	_ functionalid.Repository = (*Store)(nil)
	_ tx.Manager              = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]functionalid.Generator),
		locks:   make(map[string]*lockSlot),
	}
}

type txKey struct{}

type pendingWrite struct {
	gen     functionalid.Generator
	deleted bool
}

type txState struct {
	held     map[string]*lockSlot
	pending  map[string]pendingWrite
	readOnly bool
}

func txFromContext(ctx context.Context) *txState {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return st
	}
	return nil
}

// RunInTransaction executes fn in a transaction. Nested calls reuse the
// transaction already in ctx.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, false, fn)
}

// ReadOnly executes fn in a transaction that rejects writes.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	st := &txState{
		held:     make(map[string]*lockSlot),
		pending:  make(map[string]pendingWrite),
		readOnly: readOnly,
	}
	defer s.release(st)

	if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		return err
	}

	s.commit(st)
	return nil
}

func (s *Store) commit(st *txState) {
	if len(st.pending) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for label, w := range st.pending {
		if w.deleted {
			delete(s.records, label)
			continue
		}
		s.records[label] = w.gen
	}
}

func (s *Store) release(st *txState) {
	for label, l := range st.held {
		<-l.ch
		s.unref(label, l)
	}
}

// unref drops one reference to the slot and forgets it once unused.
func (s *Store) unref(label string, l *lockSlot) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, label)
	}
}

// lock takes the label lock for the transaction, waiting until it is free or ctx is done.
func (s *Store) lock(ctx context.Context, st *txState, label string) error {
	if _, ok := st.held[label]; ok {
		return nil
	}

	s.locksMu.Lock()
	l, ok := s.locks[label]
	if !ok {
		l = &lockSlot{ch: make(chan struct{}, 1)}
		s.locks[label] = l
	}
	l.refs++
	s.locksMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		st.held[label] = l
		return nil
	case <-ctx.Done():
		s.unref(label, l)
		return apperror.NewTransient(fmt.Errorf("wait for lock on %q: %w", label, ctx.Err()))
	}
}

// writable returns the transaction in ctx, failing inside a read-only one.
func writable(ctx context.Context, op, label string) (*txState, error) {
	st := txFromContext(ctx)
	if st.readOnly {
		return nil, fmt.Errorf("%s %q: read-only transaction", op, label)
	}
	return st, nil
}

// lookup returns the record visible to st: its own pending writes first, then committed state.
func (s *Store) lookup(st *txState, label string) (functionalid.Generator, bool) {
	if st != nil {
		if w, ok := st.pending[label]; ok {
			return w.gen, !w.deleted
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.records[label]
	return g, ok
}

// FindByLabel implements functionalid.Repository.
func (s *Store) FindByLabel(ctx context.Context, label string) (*functionalid.Generator, error) {
	g, ok := s.lookup(txFromContext(ctx), label)
	if !ok {
		return nil, apperror.NewNotFound(entityName, label)
	}
	return &g, nil
}

// GetForUpdate implements functionalid.Repository.
func (s *Store) GetForUpdate(ctx context.Context, label string) (*functionalid.Generator, error) {
	st := txFromContext(ctx)
	if st == nil {
		return nil, fmt.Errorf("get for update %q: no transaction in context", label)
	}
	if err := s.lock(ctx, st, label); err != nil {
		return nil, err
	}
	return s.FindByLabel(ctx, label)
}

// List implements functionalid.Repository.
func (s *Store) List(ctx context.Context) ([]*functionalid.Generator, error) {
	s.mu.RLock()
	visible := make(map[string]functionalid.Generator, len(s.records))
	for label, g := range s.records {
		visible[label] = g
	}
	s.mu.RUnlock()

	if st := txFromContext(ctx); st != nil {
		for label, w := range st.pending {
			if w.deleted {
				delete(visible, label)
				continue
			}
			visible[label] = w.gen
		}
	}

	items := make([]*functionalid.Generator, 0, len(visible))
	for _, g := range visible {
		items = append(items, &g)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items, nil
}

// Create implements functionalid.Repository.
func (s *Store) Create(ctx context.Context, g *functionalid.Generator) error {
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		st, err := writable(ctx, "create", g.Label)
		if err != nil {
			return err
		}
		if err := s.lock(ctx, st, g.Label); err != nil {
			return err
		}
		if _, exists := s.lookup(st, g.Label); exists {
			return apperror.NewDuplicate(entityName, "label", g.Label)
		}
		st.pending[g.Label] = pendingWrite{gen: *g}
		return nil
	})
}

// Update implements functionalid.Repository.
func (s *Store) Update(ctx context.Context, g *functionalid.Generator) error {
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		st, err := writable(ctx, "update", g.Label)
		if err != nil {
			return err
		}
		if err := s.lock(ctx, st, g.Label); err != nil {
			return err
		}
		if _, exists := s.lookup(st, g.Label); !exists {
			return apperror.NewNotFound(entityName, g.Label)
		}
		st.pending[g.Label] = pendingWrite{gen: *g}
		return nil
	})
}

// Delete implements functionalid.Repository.
func (s *Store) Delete(ctx context.Context, label string) error {
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		st, err := writable(ctx, "delete", label)
		if err != nil {
			return err
		}
		if err := s.lock(ctx, st, label); err != nil {
			return err
		}
		if _, exists := s.lookup(st, label); !exists {
			return apperror.NewNotFound(entityName, label)
		}
		st.pending[label] = pendingWrite{deleted: true}
		return nil
	})
}

// Ping implements the health check contract; the memory store is always ready.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Stats reports store size for health endpoints.
type Stats struct {
	Generators int `json:"generators"`
	LockSlots  int `json:"lockSlots"`
}

// Stats returns current store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	n := len(s.records)
	s.mu.RUnlock()

	s.locksMu.Lock()
	slots := len(s.locks)
	s.locksMu.Unlock()

	return Stats{Generators: n, LockSlots: slots}
}
