// Package cleanup provides data retention and maintenance jobs.
package cleanup

import (
	"fmt"
	"time"

	"github.com/aristath/riimtools/internal/utils"
	"github.com/rs/zerolog"
)

// RunPruner deletes stored runs created before a cutoff
type RunPruner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// RunsCleanupJob removes mitigation runs older than the retention window
// Runs daily; the schedule is configured through RIIM_CLEANUP_SCHEDULE
type RunsCleanupJob struct {
	runs          RunPruner
	retentionDays int
	now           func() time.Time
	log           zerolog.Logger
}

// NewRunsCleanupJob creates a new runs cleanup job
func NewRunsCleanupJob(runs RunPruner, retentionDays int, log zerolog.Logger) *RunsCleanupJob {
	return &RunsCleanupJob{
		runs:          runs,
		retentionDays: retentionDays,
		now:           time.Now,
		log:           log.With().Str("job", "runs_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *RunsCleanupJob) Name() string {
	return "runs_cleanup"
}

// Run executes the cleanup job
func (j *RunsCleanupJob) Run() error {
	if j.retentionDays <= 0 {
		j.log.Debug().Msg("Run retention disabled, nothing to clean up")
		return nil
	}

	cutoff := j.now().UTC().AddDate(0, 0, -j.retentionDays)
	j.log.Info().
		Int("retention_days", j.retentionDays).
		Time("cutoff", cutoff).
		Msg("Starting runs cleanup job")

	done := utils.MeasureDBQuery("delete_old_runs", j.log)
	removed, err := j.runs.DeleteOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete old runs: %w", err)
	}
	done(removed)

	j.log.Info().
		Int64("removed", removed).
		Msg("Runs cleanup completed")

	return nil
}
