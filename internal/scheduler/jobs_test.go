package scheduler

import (
	"testing"

	"github.com/aristath/riimtools/internal/database"
	testingpkg "github.com/aristath/riimtools/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := NewCheckWALCheckpointsJob(nil, zerolog.Nop())
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db, cleanup := testingpkg.NewTestDB(t, "riim")
	defer cleanup()

	job := NewCheckWALCheckpointsJob([]*database.DB{db, nil}, log)
	assert.Len(t, job.databases, 1, "nil databases are skipped")
	assert.NoError(t, job.Run())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	job := NewCheckWALCheckpointsJob(nil, zerolog.New(nil).Level(zerolog.Disabled))
	assert.NoError(t, job.Run())
}

func TestCheckDatabaseHealthJob_Run(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db, cleanup := testingpkg.NewTestDB(t, "riim")
	defer cleanup()

	job := NewCheckDatabaseHealthJob([]*database.DB{db, nil}, log)
	assert.Equal(t, "check_database_health", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckDatabaseHealthJob_ClosedDatabase(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db, cleanup := testingpkg.NewTestDB(t, "riim")
	cleanup()

	job := NewCheckDatabaseHealthJob([]*database.DB{db}, log)
	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "riim")
}
