// Package functionalid allocates human-readable, monotonically increasing
// identifiers for entity labels. Each label owns one generator record holding
// a prefix, the last issued sequence number and the last issued identifier.
package functionalid

import (
	"math"
	"strconv"
	"strings"

	"funcid/internal/core/apperror"
	"funcid/internal/core/idcodec"
)

const (
	// MaxBatchSize bounds a single batch allocation.
	MaxBatchSize int64 = 100_000

	// MinFreeSpace is the number of sequence values that must remain
	// available above the start value of a new generator.
	MinFreeSpace int64 = 10_000
)

// Generator is the persisted counter state for one label.
type Generator struct {
	// Label is the entity class this generator serves (unique).
	Label string `db:"label" json:"label"`

	// Prefix is prepended to encoded identifiers. Immutable after creation.
	Prefix string `db:"prefix" json:"prefix"`

	// Sequence is the last issued sequence number.
	Sequence int64 `db:"sequence" json:"sequence"`

	// UID is the most recently issued identifier.
	UID string `db:"uid" json:"uid"`
}

// NewGenerator validates the definition and returns a generator positioned at startFrom.
// Checks run in order: label, start value, free space margin, prefix.
func NewGenerator(label, prefix string, startFrom int64) (*Generator, error) {
	if strings.TrimSpace(label) == "" {
		return nil, apperror.NewInvalidInput(apperror.CodeInvalidLabel, "Label may not be empty").
			WithDetail("field", "label")
	}
	if startFrom < 0 {
		return nil, apperror.NewInvalidInput(apperror.CodeInvalidStartValue, "Start value may not be negative").
			WithDetail("startFrom", startFrom)
	}
	if math.MaxInt64-startFrom < MinFreeSpace {
		return nil, apperror.NewStartValueTooLarge(startFrom, MinFreeSpace)
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, apperror.NewInvalidPrefix()
	}

	g := &Generator{Label: label, Prefix: prefix}
	g.Reset(startFrom)
	return g, nil
}

// IsDefined reports whether g holds a stored generator rather than the zero value.
func (g *Generator) IsDefined() bool {
	return g != nil && g.Label != ""
}

// EncodedID returns the prefixed identifier for seq.
func (g *Generator) EncodedID(seq int64) string {
	return g.Prefix + idcodec.Encode(seq)
}

// Reset moves the sequence to value and recomputes UID in encoded form.
func (g *Generator) Reset(value int64) {
	g.Sequence = value
	g.UID = g.EncodedID(value)
}

// Advance reserves the next n sequence values and returns their identifiers
// oldest first. Only the final sequence and identifier are kept on g.
// Nothing changes when the range would pass math.MaxInt64.
func (g *Generator) Advance(n int64, numeric bool) ([]string, error) {
	if math.MaxInt64-g.Sequence < n {
		return nil, apperror.NewSequenceExhausted(g.Label).
			WithDetail("sequence", g.Sequence).
			WithDetail("requested", n)
	}

	ids := make([]string, n)
	first := g.Sequence + 1
	for i := range n {
		v := first + i
		if numeric {
			ids[i] = strconv.FormatInt(v, 10)
		} else {
			ids[i] = g.EncodedID(v)
		}
	}

	g.Sequence += n
	g.UID = ids[n-1]
	return ids, nil
}

// DropResult describes the outcome of removing a generator definition.
type DropResult struct {
	Label   string `json:"label"`
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

func droppedResult(label string) DropResult {
	return DropResult{
		Label:   label,
		Deleted: true,
		Message: "Functional id generator defined for label " + label + " is deleted.",
	}
}

func nothingToDropResult(label string) DropResult {
	return DropResult{
		Label:   label,
		Deleted: false,
		Message: "No functional id generator defined for label " + label + ", nothing to delete.",
	}
}
