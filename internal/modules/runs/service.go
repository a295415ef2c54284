package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/execution"
	"github.com/aristath/riimtools/internal/modules/calibration"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/extrapolation"
	"github.com/aristath/riimtools/internal/modules/noise"
	"github.com/aristath/riimtools/internal/modules/observable"
)

// CalibrationSource provides the latest stored calibration of a backend.
type CalibrationSource interface {
	Latest(backend string) (*calibration.Calibration, error)
}

// Service turns mitigation requests into stored runs.
type Service struct {
	repo         *Repository
	executor     execution.Executor
	calibrations CalibrationSource
	backend      string
	defaults     Defaults
	log          zerolog.Logger
}

// NewService creates a runs service. backend names the executor in stored runs.
func NewService(
	repo *Repository,
	executor execution.Executor,
	calibrations CalibrationSource,
	backend string,
	defaults Defaults,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		executor:     executor,
		calibrations: calibrations,
		backend:      backend,
		defaults:     defaults,
		log:          log.With().Str("service", "runs").Logger(),
	}
}

// Execute runs the request and stores the outcome.
//
// Requests that cannot be set up (unknown method, bad circuit, unknown calibration) are
// rejected without a stored run. Once the engine has started, the run is stored either way:
// a failed run is returned together with the engine error.
func (s *Service) Execute(ctx context.Context, req Request) (*Run, error) {
	switch req.Method {
	case domain.MethodRIIM, domain.MethodFIIM, domain.MethodRIIMSampled:
	default:
		return nil, fmt.Errorf("%w: unknown method %q", domain.ErrInvalidParameter, req.Method)
	}

	c, name, err := s.circuit(req)
	if err != nil {
		return nil, err
	}
	model, coupling, errorParam, err := s.noiseModel(req, c.NumQubits)
	if err != nil {
		return nil, err
	}
	obs, err := parityObservable(req.ParityBits, c.NumClbits)
	if err != nil {
		return nil, err
	}

	cfg := extrapolation.RunConfig{
		Shots:        req.Shots,
		NoiseModel:   model,
		CouplingMap:  coupling,
		ScaleFactors: append([]float64(nil), req.ScaleFactors...),
		Degree:       req.Degree,
		Seed:         req.Seed,
	}
	if cfg.Shots == 0 {
		cfg.Shots = s.defaults.Shots
	}
	if cfg.Seed == 0 {
		cfg.Seed = s.defaults.Seed
	}
	if len(cfg.ScaleFactors) == 0 {
		if req.Method == domain.MethodFIIM {
			cfg.ScaleFactors = append(cfg.ScaleFactors, extrapolation.DefaultFIIMFactors...)
		} else {
			cfg.ScaleFactors = append(cfg.ScaleFactors, extrapolation.DefaultRIIMFactors...)
		}
	}

	run := &Run{
		Method:       req.Method,
		CircuitName:  name,
		Backend:      s.backend,
		Shots:        cfg.Shots,
		Seed:         cfg.Seed,
		ErrorParam:   errorParam,
		ScaleFactors: cfg.ScaleFactors,
	}

	log := s.log.With().Str("method", string(req.Method)).Str("circuit", name).Logger()
	log.Info().Int("shots", cfg.Shots).Floats64("scale_factors", cfg.ScaleFactors).Msg("Starting mitigation run")

	engine := extrapolation.NewEngine(s.executor, obs, s.log, extrapolation.WithWorkers(s.defaults.Workers))
	start := time.Now()
	runErr := s.runEngine(ctx, engine, c, req, cfg, run)
	run.DurationMs = time.Since(start).Milliseconds()

	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
		log.Warn().Err(runErr).Msg("Mitigation run failed")
	} else {
		run.Status = StatusCompleted
		log.Info().
			Float64("estimate", run.Estimate).
			Float64("unmitigated", run.Unmitigated).
			Int64("duration_ms", run.DurationMs).
			Msg("Mitigation run completed")
	}

	if err := s.repo.Create(run); err != nil {
		log.Error().Err(err).Msg("Failed to store run")
		if runErr == nil {
			return nil, err
		}
	}
	return run, runErr
}

func (s *Service) runEngine(ctx context.Context, engine *extrapolation.Engine, c *circuit.Circuit, req Request, cfg extrapolation.RunConfig, run *Run) error {
	var res *extrapolation.Result
	switch req.Method {
	case domain.MethodRIIM:
		r, err := engine.RunRIIM(ctx, c, cfg)
		if err != nil {
			return err
		}
		res = r
	case domain.MethodFIIM:
		r, err := engine.RunFIIM(ctx, c, cfg)
		if err != nil {
			return err
		}
		res = r
	case domain.MethodRIIMSampled:
		count := req.ResampleCount
		if count == 0 {
			count = s.defaults.ResampleCount
		}
		r, err := engine.RunRIIMSampled(ctx, c, count, req.NormalizeShots, cfg)
		if err != nil {
			return err
		}
		res = &r.Result
		run.Samples = r.Samples
		run.Mean = r.Mean()
		run.StdDev = r.StdDev()
	}

	run.Points = res.Points
	run.Estimate = res.Estimate
	run.Unmitigated = res.Unmitigated
	return nil
}

// circuit returns the request circuit and its display name.
func (s *Service) circuit(req Request) (*circuit.Circuit, string, error) {
	var c *circuit.Circuit
	if req.QASM == "" {
		c = circuit.DemoCircuit()
	} else {
		parsed, err := circuit.ParseQASM(req.QASM)
		if err != nil {
			return nil, "", err
		}
		c = parsed
	}

	name := req.CircuitName
	if name == "" {
		name = c.Name
	}
	if name == "" {
		name = "qasm"
	}
	return c, name, nil
}

// noiseModel builds the request noise model. Calibration-based models also constrain
// the coupling map; their error parameter is nil.
func (s *Service) noiseModel(req Request, qubits int) (*noise.Model, domain.CouplingMap, *float64, error) {
	if req.CalibrationBackend != "" {
		if s.calibrations == nil {
			return nil, nil, nil, fmt.Errorf("%w: calibrations are not available", domain.ErrInvalidParameter)
		}
		cal, err := s.calibrations.Latest(req.CalibrationBackend)
		if err != nil {
			return nil, nil, nil, err
		}
		if cal == nil {
			return nil, nil, nil, fmt.Errorf("%w: no calibration stored for backend %q", domain.ErrInvalidParameter, req.CalibrationBackend)
		}
		if cal.NumQubits() < qubits {
			return nil, nil, nil, fmt.Errorf("%w: circuit needs %d qubits, %s has %d",
				domain.ErrInvalidParameter, qubits, cal.Backend, cal.NumQubits())
		}
		model, err := cal.NoiseModel()
		if err != nil {
			return nil, nil, nil, err
		}
		return model, cal.CouplingMap(), nil, nil
	}

	p := s.defaults.ErrorParam
	if req.ErrorParam != nil {
		p = *req.ErrorParam
	}
	model, err := noise.GenerateDepolarizing(qubits, p)
	if err != nil {
		return nil, nil, nil, err
	}
	return model, nil, &p, nil
}

func parityObservable(bits []int, clbits int) (domain.Observable, error) {
	if len(bits) == 0 {
		return observable.Func(observable.EstimateParity), nil
	}
	for _, b := range bits {
		if b < 0 || b >= clbits {
			return nil, fmt.Errorf("%w: parity bit %d outside %d clbits", domain.ErrInvalidParameter, b, clbits)
		}
	}
	return observable.ParityOn(bits...), nil
}

// Get returns a stored run, nil if it does not exist.
func (s *Service) Get(id string) (*Run, error) {
	return s.repo.GetByID(id)
}

// List returns the most recent stored runs.
func (s *Service) List(limit int) ([]Run, error) {
	return s.repo.List(limit)
}
