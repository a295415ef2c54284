// Package runs executes mitigation requests end to end and keeps their history.
package runs

import (
	"time"

	"github.com/aristath/riimtools/internal/domain"
)

// Status of a stored run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one stored extrapolation run. Failed runs keep the request parameters and the
// error; their numeric results are zero.
type Run struct {
	ID           string         `json:"id"`
	Method       domain.Method  `json:"method"`
	Status       Status         `json:"status"`
	CircuitName  string         `json:"circuit_name"`
	Backend      string         `json:"backend"`
	Shots        int            `json:"shots"`
	Seed         uint64         `json:"seed"`
	ErrorParam   *float64       `json:"error_param,omitempty"` // nil when the noise model came from a calibration
	ScaleFactors []float64      `json:"scale_factors"`
	Points       []domain.Point `json:"points,omitempty"`
	Estimate     float64        `json:"estimate"`
	Unmitigated  float64        `json:"unmitigated"`
	Samples      []float64      `json:"samples,omitempty"`
	Mean         float64        `json:"mean,omitempty"`
	StdDev       float64        `json:"std_dev,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	DurationMs   int64          `json:"duration_ms"`
}

// Request is a mitigation request as accepted by the API and the CLI.
// Zero values select the configured defaults.
type Request struct {
	Method domain.Method `json:"method"`

	// OpenQASM 2 source; empty runs the built-in demo circuit
	QASM        string `json:"qasm,omitempty"`
	CircuitName string `json:"circuit_name,omitempty"`

	Shots int    `json:"shots,omitempty"`
	Seed  uint64 `json:"seed,omitempty"`

	// Noise: a uniform two-qubit depolarizing probability, or the latest stored calibration of a backend
	ErrorParam         *float64 `json:"error_param,omitempty"`
	CalibrationBackend string   `json:"calibration_backend,omitempty"`

	ScaleFactors []float64 `json:"scale_factors,omitempty"`
	Degree       int       `json:"degree,omitempty"`
	// Parity observable bits; empty measures the parity of every clbit
	ParityBits []int `json:"parity_bits,omitempty"`

	// riim_sampled only
	ResampleCount  int  `json:"resample_count,omitempty"`
	NormalizeShots bool `json:"normalize_shots,omitempty"`
}

// Defaults fill the zero fields of a Request.
type Defaults struct {
	Shots         int
	Seed          uint64
	Workers       int
	ErrorParam    float64
	ResampleCount int
}
