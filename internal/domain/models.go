// Package domain provides core domain models and types shared by the mitigation modules.
package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Stage is a step of the extrapolation state machine.
type Stage string

const (
	StageInit      Stage = "INIT"
	StageScaling   Stage = "SCALING"
	StageExecuting Stage = "EXECUTING"
	StageReducing  Stage = "REDUCING"
	StageFitting   Stage = "FITTING"
	StageDone      Stage = "DONE"
)

// Method names an extrapolation policy.
type Method string

const (
	MethodRIIM        Method = "riim"
	MethodFIIM        Method = "fiim"
	MethodRIIMSampled Method = "riim_sampled"
)

// CouplingMap lists the directed qubit pairs that support a two-qubit interaction.
// An empty map means all-to-all connectivity.
type CouplingMap [][2]int

// Allows reports whether a two-qubit gate on (a, b) is supported in either direction.
func (m CouplingMap) Allows(a, b int) bool {
	if len(m) == 0 {
		return true
	}
	for _, edge := range m {
		if (edge[0] == a && edge[1] == b) || (edge[0] == b && edge[1] == a) {
			return true
		}
	}
	return false
}

// Counts maps a measured bitstring (most significant clbit first) to its occurrence count.
type Counts map[string]int

// Total returns the number of shots actually present in the distribution.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Validate checks that every outcome is a bitstring and every count is non-negative.
// Spaces (register separators) are allowed in outcomes.
func (c Counts) Validate() error {
	for outcome, n := range c {
		if n < 0 {
			return fmt.Errorf("%w: negative count %d for outcome %q", ErrInvalidParameter, n, outcome)
		}
		if len(NormalizeOutcome(outcome)) == 0 {
			return fmt.Errorf("%w: empty outcome", ErrInvalidParameter)
		}
		for _, r := range NormalizeOutcome(outcome) {
			if r != '0' && r != '1' {
				return fmt.Errorf("%w: outcome %q is not a bitstring", ErrInvalidParameter, outcome)
			}
		}
	}
	return nil
}

// Outcomes returns the outcomes in lexical order, used wherever iteration order must be stable.
func (c Counts) Outcomes() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// NormalizeOutcome strips register separators from an outcome key.
func NormalizeOutcome(outcome string) string {
	return strings.ReplaceAll(outcome, " ", "")
}

// ValidateScaleFactor rejects factors below 1 and non-finite values.
func ValidateScaleFactor(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return fmt.Errorf("%w: %v (must be a finite value >= 1)", ErrInvalidScaleFactor, f)
	}
	return nil
}

// Point is one (scale factor, expectation value) sample of a scan.
type Point struct {
	RequestedFactor float64 `json:"requested_factor" msgpack:"requested_factor"`
	RealizedFactor  float64 `json:"realized_factor" msgpack:"realized_factor"`
	Value           float64 `json:"value" msgpack:"value"`
	Shots           int     `json:"shots" msgpack:"shots"`
}
