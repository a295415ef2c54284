package calibration

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Repository stores calibration snapshots in the calibrations table of riim.db.
// Snapshots are keyed by (backend, last_update); storing the same snapshot again replaces it.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new calibration repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "calibration").Logger(),
	}
}

// Save stores a snapshot.
//
// Parameters:
//   - cal: Parsed calibration snapshot
//
// Returns:
//   - error: Error if encoding or the insert fails
func (r *Repository) Save(cal *Calibration) error {
	if cal == nil || cal.Backend == "" {
		return fmt.Errorf("calibration without backend cannot be stored")
	}

	data, err := msgpack.Marshal(cal)
	if err != nil {
		return fmt.Errorf("failed to encode calibration for %s: %w", cal.Backend, err)
	}

	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO calibrations (backend, last_update, data, stored_at)
		VALUES (?, ?, ?, ?)
	`, cal.Backend, cal.LastUpdate.Unix(), data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store calibration for %s: %w", cal.Backend, err)
	}

	r.log.Info().
		Str("backend", cal.Backend).
		Time("last_update", cal.LastUpdate).
		Int("qubits", cal.NumQubits()).
		Msg("Calibration stored")
	return nil
}

// Latest returns the most recent snapshot of backend.
// Returns nil if the backend has no stored snapshot (not an error).
func (r *Repository) Latest(backend string) (*Calibration, error) {
	var data []byte
	err := r.db.QueryRow(`
		SELECT data FROM calibrations
		WHERE backend = ?
		ORDER BY last_update DESC
		LIMIT 1
	`, backend).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration for %s: %w", backend, err)
	}

	var cal Calibration
	if err := msgpack.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("failed to decode calibration for %s: %w", backend, err)
	}
	cal.LastUpdate = cal.LastUpdate.UTC()
	return &cal, nil
}

// ListBackends returns the backends with at least one stored snapshot, sorted by name.
func (r *Repository) ListBackends() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT backend FROM calibrations ORDER BY backend")
	if err != nil {
		return nil, fmt.Errorf("failed to list calibration backends: %w", err)
	}
	defer rows.Close()

	var backends []string
	for rows.Next() {
		var backend string
		if err := rows.Scan(&backend); err != nil {
			return nil, fmt.Errorf("failed to scan backend: %w", err)
		}
		backends = append(backends, backend)
	}
	return backends, rows.Err()
}
