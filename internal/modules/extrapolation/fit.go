package extrapolation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/riimtools/internal/domain"
)

// maxCondition rejects fits whose design matrix is numerically singular.
const maxCondition = 1e12

// Fit is a least-squares polynomial in the scale factor. Coefficients[i] multiplies x^i.
type Fit struct {
	Degree       int       `json:"degree" msgpack:"degree"`
	Coefficients []float64 `json:"coefficients" msgpack:"coefficients"`
	// Residual is the sum of squared residuals at the fitted points.
	Residual float64 `json:"residual" msgpack:"residual"`
}

// Eval evaluates the polynomial at x.
func (f Fit) Eval(x float64) float64 {
	y := 0.0
	for i := len(f.Coefficients) - 1; i >= 0; i-- {
		y = y*x + f.Coefficients[i]
	}
	return y
}

// ZeroNoise returns the fitted value at scale factor 0.
func (f Fit) ZeroNoise() float64 {
	if len(f.Coefficients) == 0 {
		return math.NaN()
	}
	return f.Coefficients[0]
}

// FitPolynomial fits ys ≈ Σ c_i·xs^i of the given degree by QR least squares.
// With degree = distinct(xs)-1 the fit interpolates (Richardson extrapolation).
func FitPolynomial(xs, ys []float64, degree int) (Fit, error) {
	if len(xs) != len(ys) {
		return Fit{}, fmt.Errorf("%w: %d scale factors but %d values", domain.ErrInvalidParameter, len(xs), len(ys))
	}
	if degree < 0 {
		return Fit{}, fmt.Errorf("%w: negative degree %d", domain.ErrInvalidParameter, degree)
	}
	distinct := distinctCount(xs)
	if distinct < 2 {
		return Fit{}, fmt.Errorf("%w: need at least 2 distinct scale factors, got %d", domain.ErrInsufficientData, distinct)
	}
	if degree >= distinct {
		return Fit{}, fmt.Errorf("%w: degree %d needs more than %d distinct scale factors", domain.ErrInsufficientData, degree, distinct)
	}
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return Fit{}, fmt.Errorf("%w: value %d is not finite", domain.ErrInvalidParameter, i)
		}
	}

	n, cols := len(xs), degree+1
	design := mat.NewDense(n, cols, nil)
	for r, x := range xs {
		v := 1.0
		for c := 0; c < cols; c++ {
			design.Set(r, c, v)
			v *= x
		}
	}
	b := mat.NewDense(n, 1, append([]float64(nil), ys...))

	var qr mat.QR
	qr.Factorize(design)
	if cond := qr.Cond(); math.IsInf(cond, 0) || cond > maxCondition {
		return Fit{}, fmt.Errorf("%w: ill-conditioned fit (condition number %.3g)", domain.ErrInsufficientData, cond)
	}
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, b); err != nil {
		return Fit{}, fmt.Errorf("%w: least squares solve: %v", domain.ErrInsufficientData, err)
	}

	fit := Fit{Degree: degree, Coefficients: make([]float64, cols)}
	for i := range fit.Coefficients {
		fit.Coefficients[i] = beta.At(i, 0)
	}
	for i, x := range xs {
		r := ys[i] - fit.Eval(x)
		fit.Residual += r * r
	}
	return fit, nil
}

func distinctCount(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
