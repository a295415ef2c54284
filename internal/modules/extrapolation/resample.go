package extrapolation

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/riimtools/internal/domain"
)

// Resample draws a bootstrap replica of counts: draws outcomes sampled with replacement in
// proportion to their observed frequency. Outcomes are visited in sorted order so a given
// source always yields the same replica.
func Resample(counts domain.Counts, draws int, src rand.Source) (domain.Counts, error) {
	if draws < 1 {
		return nil, fmt.Errorf("%w: resample size must be >= 1, got %d", domain.ErrInvalidParameter, draws)
	}
	if err := counts.Validate(); err != nil {
		return nil, err
	}
	if counts.Total() == 0 {
		return nil, fmt.Errorf("%w: cannot resample an empty distribution", domain.ErrEmptyDistribution)
	}

	outcomes := counts.Outcomes()
	weights := make([]float64, len(outcomes))
	for i, o := range outcomes {
		weights[i] = float64(counts[o])
	}
	categorical := distuv.NewCategorical(weights, src)

	out := make(domain.Counts, len(outcomes))
	for i := 0; i < draws; i++ {
		out[outcomes[int(categorical.Rand())]]++
	}
	return out, nil
}
