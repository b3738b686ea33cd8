package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks malformed or missing request input. Handlers map it to
// a 400 response; no external call is made after a validation failure.
var ErrValidation = errors.New("invalid request")

const (
	// DefaultTopK is used when a query omits top_k.
	DefaultTopK = 5
	// MaxTopK caps top_k to keep result payloads bounded.
	MaxTopK = 100
)

// Query is a retrieval request.
type Query struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate checks the query and normalizes top_k. An omitted top_k defaults
// to DefaultTopK; an explicitly non-positive value is rejected.
func (q *Query) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrValidation)
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrValidation)
	}
	if q.TopK > MaxTopK {
		q.TopK = MaxTopK
	}
	return nil
}
