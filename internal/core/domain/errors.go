package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures by how they are handled.
type ErrorKind string

const (
	// KindValidation: malformed caller input. The only kind surfaced to the
	// end user.
	KindValidation ErrorKind = "validation"
	// KindUpstream: the vision model was unreachable, timed out, or returned
	// garbage. Recovered locally via the fallback planner.
	KindUpstream ErrorKind = "upstream_unavailable"
	// KindTerrain: the elevation source failed. The terrain gate fails
	// closed (treats terrain as complex).
	KindTerrain ErrorKind = "terrain_lookup"
	// KindCache: the cache store failed. Treated as an unconditional miss.
	KindCache ErrorKind = "cache_unavailable"
)

// PipelineError carries the failure kind and the pipeline stage it happened
// in, so metrics and logs can attribute it without string matching.
type PipelineError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError wraps err with a kind and stage.
func NewPipelineError(kind ErrorKind, stage string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

// IsValidation reports whether err is (or wraps) a validation error.
func IsValidation(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Kind == KindValidation
}
