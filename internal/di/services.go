package di

import (
	"context"
	"fmt"

	"github.com/aristath/riimtools/internal/clients/backend"
	"github.com/aristath/riimtools/internal/config"
	"github.com/aristath/riimtools/internal/database"
	"github.com/aristath/riimtools/internal/modules/runs"
	"github.com/aristath/riimtools/internal/modules/simulator"
	"github.com/aristath/riimtools/internal/reliability"
	"github.com/aristath/riimtools/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices creates the executors and services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.Simulator = simulator.New(cfg.Seed, log)
	backendName := simulator.BackendName
	container.Executor = container.Simulator

	if cfg.Backend == config.BackendRemote {
		var opts []backend.Option
		if cfg.RemoteMsgpack {
			opts = append(opts, backend.WithMsgpack())
		}
		container.BackendClient = backend.NewClient(cfg.RemoteURL, log, opts...)
		container.Executor = container.BackendClient
		backendName = cfg.RemoteURL
	}

	container.RunService = runs.NewService(
		container.RunRepo,
		container.Executor,
		container.CalibrationRepo,
		backendName,
		runs.Defaults{
			Shots:         cfg.Shots,
			Seed:          cfg.Seed,
			Workers:       cfg.Workers,
			ErrorParam:    cfg.ErrorParam,
			ResampleCount: cfg.ResampleCount,
		},
		log,
	)

	if cfg.R2.Enabled() {
		r2Client, err := reliability.NewR2Client(
			context.Background(),
			cfg.R2.AccountID,
			cfg.R2.AccessKeyID,
			cfg.R2.SecretAccessKey,
			cfg.R2.BucketName,
			log,
		)
		if err != nil {
			return fmt.Errorf("failed to create r2 client: %w", err)
		}
		container.R2Client = r2Client
		container.BackupService = reliability.NewBackupService(r2Client, []*database.DB{container.DB}, cfg.DataDir, log)
	}

	container.Scheduler = scheduler.New(log)

	log.Info().
		Str("backend", cfg.Backend).
		Bool("r2_backups", container.BackupService != nil).
		Msg("Services initialized")

	return nil
}
