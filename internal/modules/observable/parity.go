// Package observable reduces measurement counts to expectation values.
package observable

import (
	"fmt"

	"github.com/aristath/riimtools/internal/domain"
)

// EstimateParity returns the Z-parity expectation over all measured bits: outcomes with an
// even number of ones count +1, the others -1, normalised by the counts actually present.
// shots is the requested shot count and is not used for normalisation.
func EstimateParity(counts domain.Counts, shots int) (float64, error) {
	return Parity{}.Estimate(counts, shots)
}

// Parity estimates the Z-parity of a subset of classical bits. Bits are clbit indices
// (0 is the rightmost character of an outcome); an empty Bits selects every bit.
type Parity struct {
	Bits []int `json:"bits,omitempty"`
}

// ParityOn returns the parity observable over the given classical bits.
func ParityOn(bits ...int) Parity {
	return Parity{Bits: bits}
}

// Estimate implements domain.Observable.
func (p Parity) Estimate(counts domain.Counts, _ int) (float64, error) {
	if err := counts.Validate(); err != nil {
		return 0, err
	}
	total := counts.Total()
	if total == 0 {
		return 0, fmt.Errorf("%w: no counts to estimate from", domain.ErrEmptyDistribution)
	}

	signed := 0
	for outcome, n := range counts {
		bits := domain.NormalizeOutcome(outcome)
		ones := 0
		if len(p.Bits) == 0 {
			for i := 0; i < len(bits); i++ {
				if bits[i] == '1' {
					ones++
				}
			}
		} else {
			for _, b := range p.Bits {
				if b < 0 || b >= len(bits) {
					return 0, fmt.Errorf("%w: clbit %d outside outcome %q", domain.ErrInvalidParameter, b, outcome)
				}
				if bits[len(bits)-1-b] == '1' {
					ones++
				}
			}
		}
		if ones%2 == 0 {
			signed += n
		} else {
			signed -= n
		}
	}
	return float64(signed) / float64(total), nil
}

// Func adapts a plain estimator function to domain.Observable.
type Func func(counts domain.Counts, shots int) (float64, error)

// Estimate calls f.
func (f Func) Estimate(counts domain.Counts, shots int) (float64, error) {
	return f(counts, shots)
}
