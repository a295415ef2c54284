package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/riimtools/internal/database"
	"github.com/rs/zerolog"
)

// CheckDatabaseHealthJob verifies integrity of the SQLite databases
type CheckDatabaseHealthJob struct {
	log       zerolog.Logger
	databases []*database.DB
	timeout   time.Duration
}

// NewCheckDatabaseHealthJob creates a new CheckDatabaseHealthJob
func NewCheckDatabaseHealthJob(databases []*database.DB, log zerolog.Logger) *CheckDatabaseHealthJob {
	return &CheckDatabaseHealthJob{
		log:       log.With().Str("job", "check_database_health").Logger(),
		databases: databases,
		timeout:   time.Minute,
	}
}

// Name returns the job name
func (j *CheckDatabaseHealthJob) Name() string {
	return "check_database_health"
}

// Run executes the integrity check. Corruption cannot be repaired automatically,
// so the first failing database aborts the run.
func (j *CheckDatabaseHealthJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	for _, db := range j.databases {
		if db == nil {
			j.log.Warn().Msg("Database not initialized, skipping")
			continue
		}

		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().
				Err(err).
				Str("database", db.Name()).
				Msg("Database integrity check failed")
			return fmt.Errorf("database %s is unhealthy: %w", db.Name(), err)
		}

		j.log.Debug().Str("database", db.Name()).Msg("Database integrity OK")
	}

	j.log.Info().Int("checked", len(j.databases)).Msg("Database integrity check passed")
	return nil
}
