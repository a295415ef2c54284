// Package di wires configuration, storage, executors, services and jobs together.
package di

import (
	"github.com/aristath/riimtools/internal/clients/backend"
	"github.com/aristath/riimtools/internal/database"
	"github.com/aristath/riimtools/internal/execution"
	"github.com/aristath/riimtools/internal/modules/calibration"
	"github.com/aristath/riimtools/internal/modules/runs"
	"github.com/aristath/riimtools/internal/modules/simulator"
	"github.com/aristath/riimtools/internal/reliability"
	"github.com/aristath/riimtools/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire and handed to the server and the CLI.
type Container struct {
	DB *database.DB // riim.db: calibration snapshots and run history

	// Executors
	Simulator     *simulator.Simulator // In-process backend, also served to remote peers
	BackendClient *backend.Client      // Remote backend (nil unless RIIM_BACKEND=remote)
	Executor      execution.Executor   // Whichever of the two mitigation runs use

	// Repositories
	CalibrationRepo *calibration.Repository
	RunRepo         *runs.Repository

	// Services
	RunService    *runs.Service
	R2Client      *reliability.R2Client      // optional
	BackupService *reliability.BackupService // optional, requires R2Client

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the scheduled jobs so they can also be triggered by hand
type JobInstances struct {
	RunsCleanup         scheduler.Job
	CheckWALCheckpoints scheduler.Job
	CheckDatabaseHealth scheduler.Job
	DiskSpace           scheduler.Job
	Backup              scheduler.Job // nil when R2 is not configured
}

// All returns the registered jobs
func (j *JobInstances) All() []scheduler.Job {
	all := []scheduler.Job{j.RunsCleanup, j.CheckWALCheckpoints, j.CheckDatabaseHealth, j.DiskSpace, j.Backup}
	jobs := make([]scheduler.Job, 0, len(all))
	for _, job := range all {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// Find returns the job with the given name
func (j *JobInstances) Find(name string) (scheduler.Job, bool) {
	for _, job := range j.All() {
		if job.Name() == name {
			return job, true
		}
	}
	return nil, false
}

// Close releases the backend connection and the database
func (c *Container) Close() error {
	if c.BackendClient != nil {
		_ = c.BackendClient.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
