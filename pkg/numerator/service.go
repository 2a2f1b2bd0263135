// Package numerator hands out functional ids to in-process callers.
//
// StrategyStrict asks the generator for every identifier. StrategyCached
// reserves a range with one batch allocation and serves it from memory;
// identifiers left in a range are lost when the process exits, so numbering
// may have gaps but never repeats.
package numerator

import (
	"context"
	"fmt"
	"sync"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict allocates every identifier in the store.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of identifiers and serves them from memory.
	StrategyCached
)

// DefaultRangeSize is used when Options.RangeSize is not positive.
const DefaultRangeSize = 50

// Options configuration for number generation.
type Options struct {
	Strategy Strategy

	// RangeSize is the number of ids reserved at once in Cached strategy.
	RangeSize int64

	// Numeric issues bare decimal sequence numbers instead of encoded ids.
	Numeric bool
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() Options {
	return Options{Strategy: StrategyStrict}
}

// Allocator is the subset of functionalid.Service the numerator needs.
type Allocator interface {
	Next(ctx context.Context, label string, numeric bool) (string, error)
	NextBatch(ctx context.Context, label string, batchSize int64, numeric bool) ([]string, error)
	SetSequence(ctx context.Context, label string, value int64, numeric bool) (string, error)
}

type cachedRange struct {
	mu  sync.Mutex
	ids []string
}

// Service issues identifiers for many labels with one strategy.
type Service struct {
	alloc Allocator
	opts  Options

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// New creates a numerator on top of alloc.
func New(alloc Allocator, opts Options) *Service {
	if opts.RangeSize <= 0 {
		opts.RangeSize = DefaultRangeSize
	}
	return &Service{
		alloc:  alloc,
		opts:   opts,
		ranges: make(map[string]*cachedRange),
	}
}

// Next returns the next identifier for label.
func (s *Service) Next(ctx context.Context, label string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	if s.opts.Strategy == StrategyCached {
		return s.nextCached(ctx, label)
	}
	return s.alloc.Next(ctx, label, s.opts.Numeric)
}

// nextCached serves from the label's range, refilling it with one batch when empty.
// Callers on different labels do not wait for each other.
func (s *Service) nextCached(ctx context.Context, label string) (string, error) {
	rng := s.rangeFor(label)

	rng.mu.Lock()
	defer rng.mu.Unlock()

	if len(rng.ids) == 0 {
		ids, err := s.alloc.NextBatch(ctx, label, s.opts.RangeSize, s.opts.Numeric)
		if err != nil {
			return "", fmt.Errorf("reserve range for %q: %w", label, err)
		}
		rng.ids = ids
	}

	id := rng.ids[0]
	rng.ids = rng.ids[1:]
	return id, nil
}

func (s *Service) rangeFor(label string) *cachedRange {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[label]
	if !ok {
		rng = &cachedRange{}
		s.ranges[label] = rng
	}
	return rng
}

// Remaining reports how many reserved ids are cached for label.
func (s *Service) Remaining(label string) int {
	s.cacheMu.Lock()
	rng, ok := s.ranges[label]
	s.cacheMu.Unlock()
	if !ok {
		return 0
	}

	rng.mu.Lock()
	defer rng.mu.Unlock()
	return len(rng.ids)
}

// SetSequence moves the stored sequence and discards any cached range for label.
func (s *Service) SetSequence(ctx context.Context, label string, value int64) (string, error) {
	id, err := s.alloc.SetSequence(ctx, label, value, s.opts.Numeric)
	s.Invalidate(label)
	return id, err
}

// Invalidate drops the cached range for label.
func (s *Service) Invalidate(label string) {
	s.cacheMu.Lock()
	delete(s.ranges, label)
	s.cacheMu.Unlock()
}
