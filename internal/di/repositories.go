package di

import (
	"fmt"

	"github.com/aristath/riimtools/internal/modules/calibration"
	"github.com/aristath/riimtools/internal/modules/runs"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container database not initialized")
	}

	container.CalibrationRepo = calibration.NewRepository(container.DB.Conn(), log)
	container.RunRepo = runs.NewRepository(container.DB.Conn(), log)

	return nil
}
