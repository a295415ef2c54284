package domain

// Observable reduces one execution's counts to a scalar expectation value.
// shots is the nominal shot count of the request; implementations normalise against
// counts.Total() so dropped shots do not bias the estimate.
type Observable interface {
	Estimate(counts Counts, shots int) (float64, error)
}

// ProgressFunc receives state machine transitions of an extrapolation run.
// index is the position of the scale factor in the scan (-1 for run-level stages).
type ProgressFunc func(stage Stage, index int, scaleFactor float64)
