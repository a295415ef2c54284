package runs

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/riimtools/internal/domain"
)

// Repository persists runs in the runs table of riim.db.
// Slices (scale factors, points, samples) are stored as msgpack BLOBs.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new runs repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

const runColumns = `id, method, status, circuit_name, backend, shots, seed, error_param,
	scale_factors, points, estimate, unmitigated, samples, mean, std_dev, error,
	created_at, duration_ms`

// Create stores a new run. An empty ID is replaced by a fresh UUID and a zero CreatedAt by now.
//
// Parameters:
//   - run: Run to store (ID and CreatedAt are filled in place)
//
// Returns:
//   - error: Error if encoding or the insert fails
func (r *Repository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	factors, err := msgpack.Marshal(run.ScaleFactors)
	if err != nil {
		return fmt.Errorf("failed to encode scale factors: %w", err)
	}
	var points, samples []byte
	if len(run.Points) > 0 {
		if points, err = msgpack.Marshal(run.Points); err != nil {
			return fmt.Errorf("failed to encode points: %w", err)
		}
	}
	if len(run.Samples) > 0 {
		if samples, err = msgpack.Marshal(run.Samples); err != nil {
			return fmt.Errorf("failed to encode samples: %w", err)
		}
	}

	var errorParam sql.NullFloat64
	if run.ErrorParam != nil {
		errorParam = sql.NullFloat64{Float64: *run.ErrorParam, Valid: true}
	}

	_, err = r.db.Exec(`INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Method), string(run.Status), run.CircuitName, run.Backend,
		run.Shots, int64(run.Seed), errorParam,
		factors, points, run.Estimate, run.Unmitigated, samples, run.Mean, run.StdDev,
		nullString(run.Error), run.CreatedAt.Unix(), run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	r.log.Debug().Str("run_id", run.ID).Str("method", string(run.Method)).Str("status", string(run.Status)).Msg("Run stored")
	return nil
}

// GetByID returns a run by ID.
// Returns nil if the run does not exist (not an error).
func (r *Repository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. limit <= 0 returns every run.
func (r *Repository) List(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes runs created before cutoff and returns how many were removed.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM runs WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run                      Run
		method, status           string
		circuitName, errText     sql.NullString
		seed, createdAt          int64
		errorParam               sql.NullFloat64
		estimate, unmitigated    sql.NullFloat64
		mean, stdDev             sql.NullFloat64
		factors, points, samples []byte
	)

	err := s.Scan(&run.ID, &method, &status, &circuitName, &run.Backend, &run.Shots, &seed, &errorParam,
		&factors, &points, &estimate, &unmitigated, &samples, &mean, &stdDev, &errText,
		&createdAt, &run.DurationMs)
	if err != nil {
		return nil, err
	}

	run.Method = domain.Method(method)
	run.Status = Status(status)
	run.CircuitName = circuitName.String
	run.Seed = uint64(seed)
	run.Estimate = estimate.Float64
	run.Unmitigated = unmitigated.Float64
	run.Mean = mean.Float64
	run.StdDev = stdDev.Float64
	run.Error = errText.String
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	if errorParam.Valid {
		p := errorParam.Float64
		run.ErrorParam = &p
	}

	if err := msgpack.Unmarshal(factors, &run.ScaleFactors); err != nil {
		return nil, fmt.Errorf("failed to decode scale factors of run %s: %w", run.ID, err)
	}
	if len(points) > 0 {
		if err := msgpack.Unmarshal(points, &run.Points); err != nil {
			return nil, fmt.Errorf("failed to decode points of run %s: %w", run.ID, err)
		}
	}
	if len(samples) > 0 {
		if err := msgpack.Unmarshal(samples, &run.Samples); err != nil {
			return nil, fmt.Errorf("failed to decode samples of run %s: %w", run.ID, err)
		}
	}

	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
