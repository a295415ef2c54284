package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// BackupJob uploads a fresh archive and then rotates old ones
type BackupJob struct {
	service       *BackupService
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		timeout:       30 * time.Minute,
		log:           log.With().Str("job", "r2_backup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "r2_backup"
}

// Run executes the backup job. A failed rotation is logged; the upload already succeeded.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// Disk space thresholds in GB
const (
	diskCriticalGB = 0.5
	diskErrorGB    = 5.0
	diskWarnGB     = 10.0
)

// DiskSpaceJob checks free space on the volume that holds the data directory
type DiskSpaceJob struct {
	dataDir string
	usage   func(path string) (*disk.UsageStat, error)
	log     zerolog.Logger
}

// NewDiskSpaceJob creates a new disk space job
func NewDiskSpaceJob(dataDir string, log zerolog.Logger) *DiskSpaceJob {
	return &DiskSpaceJob{
		dataDir: dataDir,
		usage:   disk.Usage,
		log:     log.With().Str("job", "disk_space").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *DiskSpaceJob) Name() string {
	return "disk_space"
}

// Run fails when less than 500MB is free; lower levels only log
func (j *DiskSpaceJob) Run() error {
	stat, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(stat.Free) / 1e9
	j.log.Debug().
		Float64("available_gb", availableGB).
		Float64("used_percent", stat.UsedPercent).
		Msg("Disk space check")

	switch {
	case availableGB < diskCriticalGB:
		j.log.Error().
			Float64("available_gb", availableGB).
			Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %.2f GB free on %s", availableGB, j.dataDir)
	case availableGB < diskErrorGB:
		j.log.Error().
			Float64("available_gb", availableGB).
			Msg("Low disk space - consider lowering RIIM_RUN_RETENTION_DAYS")
	case availableGB < diskWarnGB:
		j.log.Warn().
			Float64("available_gb", availableGB).
			Msg("Disk space running low")
	}

	return nil
}
