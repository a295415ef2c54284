package di

import (
	"fmt"

	"github.com/aristath/riimtools/internal/config"
	"github.com/aristath/riimtools/internal/database"
	"github.com/aristath/riimtools/internal/modules/cleanup"
	"github.com/aristath/riimtools/internal/reliability"
	"github.com/aristath/riimtools/internal/scheduler"
	"github.com/rs/zerolog"
)

// Fixed maintenance schedules (seconds-enabled cron)
const (
	walCheckpointSchedule  = "0 0 * * * *"    // hourly
	databaseHealthSchedule = "0 15 4 * * *"   // 04:15 daily
	diskSpaceSchedule      = "0 */30 * * * *" // every 30 minutes
)

type scheduledJob struct {
	schedule string
	job      scheduler.Job
}

// RegisterJobs creates the maintenance jobs and registers them with the scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("container scheduler not initialized")
	}

	databases := []*database.DB{container.DB}
	instances := &JobInstances{
		RunsCleanup:         cleanup.NewRunsCleanupJob(container.RunRepo, cfg.RunRetentionDays, log),
		CheckWALCheckpoints: scheduler.NewCheckWALCheckpointsJob(databases, log),
		CheckDatabaseHealth: scheduler.NewCheckDatabaseHealthJob(databases, log),
		DiskSpace:           reliability.NewDiskSpaceJob(cfg.DataDir, log),
	}
	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.R2.RetentionDays, log)
	}

	schedules := []scheduledJob{
		{cfg.CleanupSchedule, instances.RunsCleanup},
		{walCheckpointSchedule, instances.CheckWALCheckpoints},
		{databaseHealthSchedule, instances.CheckDatabaseHealth},
		{diskSpaceSchedule, instances.DiskSpace},
	}
	if instances.Backup != nil {
		schedules = append(schedules, scheduledJob{cfg.R2.BackupSchedule, instances.Backup})
	}

	for _, s := range schedules {
		if err := container.Scheduler.AddJob(s.schedule, s.job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", s.job.Name(), err)
		}
	}

	return instances, nil
}
