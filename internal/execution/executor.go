// Package execution defines the boundary between the mitigation engine and whatever runs
// circuits: the in-process simulator or a remote backend.
package execution

import (
	"context"
	"fmt"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/noise"
)

// Request is one circuit submission. CouplingMap and OptimizationLevel are passed through to
// the backend untouched; the engine always submits optimisation level 0 so the backend does
// not cancel folded gate pairs.
type Request struct {
	Circuit           *circuit.Circuit
	NoiseModel        *noise.Model
	Shots             int
	CouplingMap       domain.CouplingMap
	OptimizationLevel int
}

// Validate checks the request before it is handed to a backend.
func (r Request) Validate() error {
	if r.Circuit == nil {
		return fmt.Errorf("%w: request without circuit", domain.ErrInvalidParameter)
	}
	if r.Shots < 1 {
		return fmt.Errorf("%w: shots must be >= 1, got %d", domain.ErrInvalidParameter, r.Shots)
	}
	if r.OptimizationLevel < 0 || r.OptimizationLevel > 3 {
		return fmt.Errorf("%w: optimization level %d outside [0, 3]", domain.ErrInvalidParameter, r.OptimizationLevel)
	}
	if err := r.Circuit.Validate(); err != nil {
		return err
	}
	if len(r.Circuit.Measurements) == 0 {
		return fmt.Errorf("%w: circuit has no measurements", domain.ErrInvalidParameter)
	}
	if r.NoiseModel != nil {
		if err := r.NoiseModel.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Result carries the counts returned by a backend.
type Result struct {
	Counts  domain.Counts `json:"counts"`
	Shots   int           `json:"shots"`
	Backend string        `json:"backend,omitempty"`
}

// GetCounts returns the measured distribution.
func (r *Result) GetCounts() domain.Counts {
	if r == nil {
		return nil
	}
	return r.Counts
}

// Executor runs a circuit and returns its measurement counts.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req Request) (*Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
