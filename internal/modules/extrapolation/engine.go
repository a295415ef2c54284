// Package extrapolation implements zero-noise extrapolation: it executes a circuit at a
// series of noise scale factors, reduces each run to an expectation value and fits the
// values back to scale factor zero.
package extrapolation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/execution"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/folding"
	"github.com/aristath/riimtools/internal/modules/noise"
)

var (
	// DefaultRIIMFactors are the global folding factors used when RunConfig.ScaleFactors is empty.
	DefaultRIIMFactors = []float64{1, 2, 3}
	// DefaultFIIMFactors are the local folding factors used when RunConfig.ScaleFactors is empty.
	DefaultFIIMFactors = []float64{1, 1.5, 2, 2.5, 3}
)

// DefaultFIIMDegree is the least-squares degree of the FIIM fit.
const DefaultFIIMDegree = 2

// RunConfig parameterises one extrapolation run.
type RunConfig struct {
	Shots        int
	NoiseModel   *noise.Model
	CouplingMap  domain.CouplingMap
	ScaleFactors []float64
	// Degree of the fitted polynomial; 0 selects the method default.
	Degree int
	// Seed drives bootstrap resampling.
	Seed uint64
}

// Result is the outcome of a RIIM or FIIM run.
type Result struct {
	Method      domain.Method  `json:"method"`
	Estimate    float64        `json:"estimate"`
	Unmitigated float64        `json:"unmitigated"`
	Points      []domain.Point `json:"points"`
	Fit         Fit            `json:"fit"`
	Duration    time.Duration  `json:"duration"`
}

// SampledResult is the outcome of a RIIM-sampled run: the fit on the measured counts plus one
// zero-noise estimate per bootstrap resample.
type SampledResult struct {
	Result
	Samples        []float64 `json:"samples"`
	NormalizeShots bool      `json:"normalize_shots"`
}

// Mean returns the mean of the resampled estimates.
func (r *SampledResult) Mean() float64 {
	return stat.Mean(r.Samples, nil)
}

// StdDev returns the sample standard deviation of the resampled estimates.
func (r *SampledResult) StdDev() float64 {
	if len(r.Samples) < 2 {
		return 0
	}
	return stat.StdDev(r.Samples, nil)
}

// Engine runs extrapolation scans against an injected executor and observable.
type Engine struct {
	executor   execution.Executor
	observable domain.Observable
	workers    int
	progress   domain.ProgressFunc
	log        zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of scale factors executed concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithProgress registers a callback for state machine transitions.
func WithProgress(fn domain.ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// NewEngine creates an engine. Scale factors are executed sequentially unless WithWorkers
// is given.
func NewEngine(executor execution.Executor, observable domain.Observable, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		executor:   executor,
		observable: observable,
		workers:    1,
		log:        log.With().Str("component", "extrapolation").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunRIIM folds c globally at every scale factor (default 1, 2, 3) and extrapolates with a
// polynomial through all distinct realized factors (Richardson) unless cfg.Degree is set.
func (e *Engine) RunRIIM(ctx context.Context, c *circuit.Circuit, cfg RunConfig) (*Result, error) {
	start := time.Now()
	factors := defaultFactors(cfg.ScaleFactors, DefaultRIIMFactors)
	points, _, err := e.scan(ctx, c, cfg, factors, folding.StrategyGlobal)
	if err != nil {
		return nil, err
	}
	res, err := e.fit(domain.MethodRIIM, points, fitDegree(cfg.Degree, len(factors)-1, points))
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	e.report(domain.StageDone, -1, 0)
	return res, nil
}

// RunFIIM folds c locally at every scale factor (default 1, 1.5, 2, 2.5, 3) and fits a
// least-squares polynomial (default quadratic, lowered when fewer distinct factors are realized).
func (e *Engine) RunFIIM(ctx context.Context, c *circuit.Circuit, cfg RunConfig) (*Result, error) {
	start := time.Now()
	factors := defaultFactors(cfg.ScaleFactors, DefaultFIIMFactors)
	points, _, err := e.scan(ctx, c, cfg, factors, folding.StrategyLocal)
	if err != nil {
		return nil, err
	}
	res, err := e.fit(domain.MethodFIIM, points, fitDegree(cfg.Degree, DefaultFIIMDegree, points))
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	e.report(domain.StageDone, -1, 0)
	return res, nil
}

// RunRIIMSampled executes the RIIM scan once and then bootstraps it resampleCount times:
// every distribution is resampled (to cfg.Shots outcomes when normalizeShots is set,
// otherwise to its returned total), re-reduced and re-fitted.
func (e *Engine) RunRIIMSampled(ctx context.Context, c *circuit.Circuit, resampleCount int, normalizeShots bool, cfg RunConfig) (*SampledResult, error) {
	start := time.Now()
	if resampleCount < 1 {
		return nil, domain.NewStageError(domain.StageInit, 0, domain.ErrInvalidParameter,
			fmt.Errorf("%w: resample count must be >= 1, got %d", domain.ErrInvalidParameter, resampleCount))
	}
	factors := defaultFactors(cfg.ScaleFactors, DefaultRIIMFactors)

	points, counts, err := e.scan(ctx, c, cfg, factors, folding.StrategyGlobal)
	if err != nil {
		return nil, err
	}
	degree := fitDegree(cfg.Degree, len(factors)-1, points)
	base, err := e.fit(domain.MethodRIIMSampled, points, degree)
	if err != nil {
		return nil, err
	}

	e.report(domain.StageReducing, -1, 0)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d))
	xs := realizedFactors(points)
	ys := make([]float64, len(points))
	samples := make([]float64, 0, resampleCount)
	for r := 0; r < resampleCount; r++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewStageError(domain.StageReducing, 0, domain.ErrExecutionFailed, err)
		}
		for i, p := range points {
			draws := counts[i].Total()
			if normalizeShots {
				draws = cfg.Shots
			}
			replica, err := Resample(counts[i], draws, rng)
			if err != nil {
				return nil, domain.NewStageError(domain.StageReducing, p.RequestedFactor, domain.ErrExecutionFailed, err)
			}
			ys[i], err = e.observable.Estimate(replica, draws)
			if err != nil {
				return nil, domain.NewStageError(domain.StageReducing, p.RequestedFactor, domain.ErrExecutionFailed, err)
			}
		}
		fit, err := FitPolynomial(xs, ys, degree)
		if err != nil {
			return nil, domain.NewStageError(domain.StageFitting, 0, domain.ErrInsufficientData, err)
		}
		samples = append(samples, fit.ZeroNoise())
	}

	res := &SampledResult{Result: *base, Samples: samples, NormalizeShots: normalizeShots}
	res.Duration = time.Since(start)
	e.log.Info().
		Int("resamples", resampleCount).
		Bool("normalize_shots", normalizeShots).
		Float64("mean", res.Mean()).
		Float64("std_dev", res.StdDev()).
		Msg("Bootstrap complete")
	e.report(domain.StageDone, -1, 0)
	return res, nil
}

// scan executes the folded circuit at every factor. It returns one point and one count
// distribution per factor, in factor order.
func (e *Engine) scan(ctx context.Context, c *circuit.Circuit, cfg RunConfig, factors []float64, strategy folding.Strategy) ([]domain.Point, []domain.Counts, error) {
	e.report(domain.StageInit, -1, 0)
	if err := validate(c, cfg, factors); err != nil {
		return nil, nil, err
	}

	points := make([]domain.Point, len(factors))
	counts := make([]domain.Counts, len(factors))

	if e.workers <= 1 || len(factors) == 1 {
		for i, f := range factors {
			p, cnt, err := e.runFactor(ctx, c, cfg, i, f, strategy)
			if err != nil {
				return nil, nil, err
			}
			points[i], counts[i] = p, cnt
		}
		return points, counts, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, e.workers)
	for i, f := range factors {
		wg.Add(1)
		go func(i int, f float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			p, cnt, err := e.runFactor(ctx, c, cfg, i, f, strategy)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil || isCancellation(firstErr) {
					firstErr = err
				}
				cancel()
				return
			}
			points[i], counts[i] = p, cnt
		}(i, f)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, nil, firstErr
	}
	return points, counts, nil
}

func (e *Engine) runFactor(ctx context.Context, c *circuit.Circuit, cfg RunConfig, index int, f float64, strategy folding.Strategy) (domain.Point, domain.Counts, error) {
	e.report(domain.StageScaling, index, f)
	folded, err := folding.Scale(c, f, strategy)
	if err != nil {
		return domain.Point{}, nil, domain.NewStageError(domain.StageScaling, f, domain.ErrInvalidScaleFactor, err)
	}

	e.report(domain.StageExecuting, index, f)
	if err := ctx.Err(); err != nil {
		return domain.Point{}, nil, &domain.StageError{Stage: domain.StageExecuting, ScaleFactor: f, Kind: domain.ErrExecutionFailed, Err: err}
	}
	res, err := e.executor.Execute(ctx, execution.Request{
		Circuit:           folded,
		NoiseModel:        cfg.NoiseModel.Clone(),
		Shots:             cfg.Shots,
		CouplingMap:       cfg.CouplingMap,
		OptimizationLevel: 0,
	})
	if err != nil {
		return domain.Point{}, nil, &domain.StageError{Stage: domain.StageExecuting, ScaleFactor: f, Kind: domain.ErrExecutionFailed, Err: err}
	}
	if res == nil {
		return domain.Point{}, nil, &domain.StageError{Stage: domain.StageExecuting, ScaleFactor: f, Kind: domain.ErrExecutionFailed,
			Err: errors.New("executor returned no result")}
	}
	counts := res.GetCounts()
	if err := counts.Validate(); err != nil {
		return domain.Point{}, nil, &domain.StageError{Stage: domain.StageExecuting, ScaleFactor: f, Kind: domain.ErrExecutionFailed, Err: err}
	}

	e.report(domain.StageReducing, index, f)
	value, err := e.observable.Estimate(counts, cfg.Shots)
	if err != nil {
		return domain.Point{}, nil, domain.NewStageError(domain.StageReducing, f, domain.ErrExecutionFailed, err)
	}

	p := domain.Point{
		RequestedFactor: f,
		RealizedFactor:  folding.RealizedFactor(c, folded),
		Value:           value,
		Shots:           counts.Total(),
	}
	e.log.Debug().
		Float64("scale_factor", f).
		Float64("realized_factor", p.RealizedFactor).
		Int("two_qubit_gates", folding.CountTwoQubitGates(folded)).
		Int("shots", p.Shots).
		Float64("value", value).
		Msg("Scale factor executed")
	return p, counts, nil
}

func (e *Engine) fit(method domain.Method, points []domain.Point, degree int) (*Result, error) {
	e.report(domain.StageFitting, -1, 0)
	ys := make([]float64, len(points))
	for i, p := range points {
		ys[i] = p.Value
	}
	fit, err := FitPolynomial(realizedFactors(points), ys, degree)
	if err != nil {
		return nil, domain.NewStageError(domain.StageFitting, 0, domain.ErrInsufficientData, err)
	}

	res := &Result{
		Method:      method,
		Estimate:    fit.ZeroNoise(),
		Unmitigated: unmitigated(points),
		Points:      points,
		Fit:         fit,
	}
	e.log.Info().
		Str("method", string(method)).
		Int("points", len(points)).
		Int("degree", degree).
		Float64("unmitigated", res.Unmitigated).
		Float64("estimate", res.Estimate).
		Msg("Extrapolation complete")
	return res, nil
}

func (e *Engine) report(stage domain.Stage, index int, f float64) {
	if e.progress != nil {
		e.progress(stage, index, f)
	}
}

func validate(c *circuit.Circuit, cfg RunConfig, factors []float64) error {
	if c == nil {
		return domain.NewStageError(domain.StageInit, 0, domain.ErrInvalidParameter,
			fmt.Errorf("%w: no circuit", domain.ErrInvalidParameter))
	}
	if err := c.Validate(); err != nil {
		return domain.NewStageError(domain.StageInit, 0, domain.ErrInvalidParameter, err)
	}
	if cfg.Shots < 1 {
		return domain.NewStageError(domain.StageInit, 0, domain.ErrInvalidParameter,
			fmt.Errorf("%w: shots must be >= 1, got %d", domain.ErrInvalidParameter, cfg.Shots))
	}
	if cfg.Degree < 0 {
		return domain.NewStageError(domain.StageInit, 0, domain.ErrInvalidParameter,
			fmt.Errorf("%w: negative degree %d", domain.ErrInvalidParameter, cfg.Degree))
	}
	if cfg.NoiseModel != nil {
		if err := cfg.NoiseModel.Validate(); err != nil {
			return domain.NewStageError(domain.StageInit, 0, domain.ErrInvalidParameter, err)
		}
	}
	for _, f := range factors {
		if err := domain.ValidateScaleFactor(f); err != nil {
			return domain.NewStageError(domain.StageInit, f, domain.ErrInvalidScaleFactor, err)
		}
	}
	return nil
}

func defaultFactors(factors, defaults []float64) []float64 {
	if len(factors) == 0 {
		factors = defaults
	}
	return append([]float64(nil), factors...)
}

// fitDegree returns the configured degree, or the method default capped at one less than
// the number of distinct realized factors. Small circuits can realize the same factor for
// different requests (one CX at 2 and 3 both fold to 3 applications).
func fitDegree(configured, methodDefault int, points []domain.Point) int {
	if configured > 0 {
		return configured
	}
	if d := distinctCount(realizedFactors(points)) - 1; d >= 1 && d < methodDefault {
		return d
	}
	return methodDefault
}

func realizedFactors(points []domain.Point) []float64 {
	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.RealizedFactor
	}
	return xs
}

// unmitigated is the value measured at the smallest requested factor.
func unmitigated(points []domain.Point) float64 {
	sorted := append([]domain.Point(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RequestedFactor < sorted[j].RequestedFactor })
	return sorted[0].Value
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
