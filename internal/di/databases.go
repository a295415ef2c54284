package di

import (
	"fmt"

	"github.com/aristath/riimtools/internal/config"
	"github.com/aristath/riimtools/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens riim.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// Run history is the product of expensive executions, so commits are fsynced
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileDurable,
		Name:    "riim",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize riim database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate riim database: %w", err)
	}
	container.DB = db

	log.Info().Str("path", db.Path()).Msg("Database initialized")
	return container, nil
}
