// Package dto defines the request and response bodies of the v1 API.
package dto

import "funcid/internal/domain/functionalid"

// CreateGeneratorRequest defines a generator for a label.
type CreateGeneratorRequest struct {
	Label     string `json:"label" binding:"required"`
	Prefix    string `json:"prefix" binding:"required"`
	StartFrom int64  `json:"startFrom"`
}

// NextBatchRequest asks for BatchSize identifiers.
type NextBatchRequest struct {
	BatchSize int64 `json:"batchSize"`
}

// SetSequenceRequest moves the sequence of a generator.
type SetSequenceRequest struct {
	Number    *int64 `json:"number" binding:"required"`
	IsNumeric bool   `json:"isNumeric"`
}

// GeneratorResponse is the stored state of one generator.
// Label is empty when no generator is defined.
type GeneratorResponse struct {
	Label    string `json:"label"`
	Prefix   string `json:"prefix"`
	Sequence int64  `json:"sequence"`
	UID      string `json:"uid"`
}

// FromGenerator maps a domain generator to its response body.
func FromGenerator(g *functionalid.Generator) GeneratorResponse {
	if g == nil {
		return GeneratorResponse{}
	}
	return GeneratorResponse{
		Label:    g.Label,
		Prefix:   g.Prefix,
		Sequence: g.Sequence,
		UID:      g.UID,
	}
}

// GeneratorListResponse lists all generators.
type GeneratorListResponse struct {
	Items []GeneratorResponse `json:"items"`
}

// IDResponse carries one issued identifier.
type IDResponse struct {
	ID string `json:"id"`
}

// IDsResponse carries a batch of identifiers, oldest first.
type IDsResponse struct {
	IDs []string `json:"ids"`
}

// DropResponse reports whether a generator was deleted.
type DropResponse struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

// DecodeResponse is the sequence number behind an encoded identifier.
type DecodeResponse struct {
	Encoded string `json:"encoded"`
	Value   int64  `json:"value"`
}
