package cluster

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidClusterCount signals a cluster count outside [1, N].
	ErrInvalidClusterCount = errors.New("invalid cluster count")
	// ErrScoring signals that one candidate cluster count could not be scored.
	ErrScoring = errors.New("scoring failed")
)

// InvalidClusterCountError wraps ErrInvalidClusterCount with the requested count and sample size.
type InvalidClusterCountError struct {
	K       int
	Samples int
}

func (e *InvalidClusterCountError) Error() string {
	return fmt.Sprintf("%s: k=%d with %d samples", ErrInvalidClusterCount.Error(), e.K, e.Samples)
}

func (e *InvalidClusterCountError) Unwrap() error { return ErrInvalidClusterCount }

// ScoringError wraps ErrScoring with the candidate k and the underlying cause.
type ScoringError struct {
	K     int
	Cause error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("%s for k=%d: %v", ErrScoring.Error(), e.K, e.Cause)
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *ScoringError) Unwrap() []error { return []error{ErrScoring, e.Cause} }
