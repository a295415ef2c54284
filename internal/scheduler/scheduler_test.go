package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func (j *stubJob) Name() string { return j.name }

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, s.AddJob("0 0 3 * * *", &stubJob{name: "runs_cleanup"}))
	require.NoError(t, s.AddJob("@every 1h", &stubJob{name: "check_wal_checkpoints"}))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "check_wal_checkpoints", jobs[0].Name)
	assert.Equal(t, "@every 1h", jobs[0].Schedule)
	assert.Equal(t, "runs_cleanup", jobs[1].Name)
	assert.Nil(t, jobs[1].LastRun)
}

func TestScheduler_AddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	// Five-field expressions are rejected by the seconds-enabled parser
	err := s.AddJob("0 3 * * *", &stubJob{name: "bad"})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))
	ok := &stubJob{name: "ok"}
	failing := &stubJob{name: "failing", err: errors.New("disk full")}

	require.NoError(t, s.AddJob("@daily", ok))
	require.NoError(t, s.RunNow(ok))
	require.NoError(t, s.RunNow(ok))
	assert.EqualError(t, s.RunNow(failing), "disk full")

	assert.Equal(t, 2, ok.runs)
	jobs := s.Jobs()
	require.Len(t, jobs, 2)

	assert.Equal(t, "failing", jobs[0].Name)
	assert.Equal(t, "manual", jobs[0].Schedule)
	assert.Equal(t, "disk full", jobs[0].LastError)
	assert.Equal(t, 1, jobs[0].Runs)

	assert.Equal(t, "ok", jobs[1].Name)
	assert.Equal(t, 2, jobs[1].Runs)
	assert.NotNil(t, jobs[1].LastRun)
	assert.Empty(t, jobs[1].LastError)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))
	s.Start()
	assert.NotPanics(t, s.Stop)
}
