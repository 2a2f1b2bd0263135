package functionalid

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"funcid/internal/core/apperror"
	"funcid/internal/core/idcodec"
	"funcid/internal/core/tx"
	"funcid/pkg/logger"
)

var tracer = otel.Tracer("funcid/functionalid")

// Service allocates functional ids and manages generator definitions.
//
// Every mutation runs in one transaction and locks only the generator row it
// touches, so callers working on different labels never wait for each other.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new functional id service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// --- Allocation ---

// Next issues one identifier for label.
func (s *Service) Next(ctx context.Context, label string, numeric bool) (string, error) {
	ids, err := s.NextBatch(ctx, label, 1, numeric)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// NextBatch issues batchSize consecutive identifiers for label, oldest first.
// The batch is all-or-nothing: on error the stored sequence is unchanged.
func (s *Service) NextBatch(ctx context.Context, label string, batchSize int64, numeric bool) ([]string, error) {
	if batchSize > MaxBatchSize {
		return nil, apperror.NewBatchSizeExceeded(batchSize, MaxBatchSize)
	}
	if batchSize < 1 {
		return nil, apperror.NewInvalidInput(apperror.CodeInvalidBatchSize, "The batch size must be at least 1").
			WithDetail("batchSize", batchSize)
	}

	ctx, span := tracer.Start(ctx, "functionalid.allocate",
		trace.WithAttributes(
			attribute.String("functionalid.label", label),
			attribute.Int64("functionalid.batch_size", batchSize),
			attribute.Bool("functionalid.numeric", numeric),
		))
	defer span.End()

	var ids []string
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		g, err := s.lockGenerator(ctx, label)
		if err != nil {
			return err
		}

		ids, err = g.Advance(batchSize, numeric)
		if err != nil {
			return err
		}

		return s.repo.Update(ctx, g)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation failed")
		if apperror.HasCode(err, apperror.CodeSequenceExhausted) {
			logger.Warn(ctx, "functional id sequence exhausted", "label", label, "batch_size", batchSize)
		}
		return nil, err
	}

	logger.Debug(ctx, "functional ids allocated", "label", label, "count", len(ids), "last", ids[len(ids)-1])
	return ids, nil
}

// SetSequence moves the sequence of label to value (not value+1) and returns
// the identifier for value in the requested form.
func (s *Service) SetSequence(ctx context.Context, label string, value int64, numeric bool) (string, error) {
	if value < 0 {
		return "", apperror.NewInvalidInput(apperror.CodeInvalidSequence, "Sequence number may not be negative").
			WithDetail("number", value)
	}

	var uid string
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		g, err := s.lockGenerator(ctx, label)
		if err != nil {
			return err
		}

		g.Reset(value)
		uid = g.UID
		return s.repo.Update(ctx, g)
	})
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "functional id sequence set", "label", label, "sequence", value)

	if numeric {
		return strconv.FormatInt(value, 10), nil
	}
	return uid, nil
}

// lockGenerator loads label with its row lock, mapping a missing row to GENERATOR_NOT_DEFINED.
func (s *Service) lockGenerator(ctx context.Context, label string) (*Generator, error) {
	g, err := s.repo.GetForUpdate(ctx, label)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewGeneratorNotDefined(label)
		}
		return nil, fmt.Errorf("lock generator %q: %w", label, err)
	}
	return g, nil
}

// --- Lifecycle ---

// Create defines a generator for label starting at startFrom.
// An existing label is reported as ALREADY_DEFINED before the arguments
// are validated.
func (s *Service) Create(ctx context.Context, label, prefix string, startFrom int64) (*Generator, error) {
	var g *Generator
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.FindByLabel(ctx, label); err == nil {
			return apperror.NewAlreadyDefined(label)
		} else if !apperror.IsNotFound(err) {
			return fmt.Errorf("check generator %q: %w", label, err)
		}

		var err error
		if g, err = NewGenerator(label, prefix, startFrom); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, g); err != nil {
			if apperror.IsDuplicate(err) {
				return apperror.NewAlreadyDefined(label)
			}
			return fmt.Errorf("create generator %q: %w", label, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "functional id generator created", "label", label, "prefix", prefix, "start_from", startFrom)
	return g, nil
}

// Drop removes the generator for label. A missing generator is not an
// error; the result says whether anything was deleted.
func (s *Service) Drop(ctx context.Context, label string) (DropResult, error) {
	var result DropResult
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, label); err != nil {
			if apperror.IsNotFound(err) {
				result = nothingToDropResult(label)
				return nil
			}
			return fmt.Errorf("lock generator %q: %w", label, err)
		}

		if err := s.repo.Delete(ctx, label); err != nil {
			return fmt.Errorf("delete generator %q: %w", label, err)
		}
		result = droppedResult(label)
		return nil
	})
	if err != nil {
		return DropResult{}, err
	}

	if result.Deleted {
		logger.Info(ctx, "functional id generator dropped", "label", label)
	}
	return result, nil
}

// Get returns the generator for label, or a zero Generator if none is defined.
func (s *Service) Get(ctx context.Context, label string) (*Generator, error) {
	var g *Generator
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		g, err = s.repo.FindByLabel(ctx, label)
		return err
	})
	if err != nil {
		if apperror.IsNotFound(err) {
			return &Generator{}, nil
		}
		return nil, err
	}
	return g, nil
}

// List returns all defined generators.
func (s *Service) List(ctx context.Context) ([]*Generator, error) {
	var items []*Generator
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Generator{}
	}
	return items, nil
}

// Decode turns an encoded identifier suffix (without prefix) back into its sequence number.
func (s *Service) Decode(encoded string) (int64, error) {
	return idcodec.Decode(encoded)
}
