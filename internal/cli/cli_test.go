package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/folding"
	"github.com/aristath/riimtools/internal/modules/noise"
	"github.com/aristath/riimtools/internal/modules/runs"
	testingpkg "github.com/aristath/riimtools/internal/testing"
)

func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// isolate points the configuration at a fresh data directory with small defaults.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RIIM_DATA_DIR", dir)
	t.Setenv("RIIM_BACKEND", "simulator")
	t.Setenv("RIIM_SHOTS", "500")
	t.Setenv("RIIM_WORKERS", "1")
	t.Setenv("R2_ACCOUNT_ID", "")
	return dir
}

func TestNoiseCommand(t *testing.T) {
	out, err := execute(t, nil, "noise", "--qubits", "3", "--error-param", "0.2", "--readout", "0.01")
	require.NoError(t, err)

	model, err := noise.Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 0.2, model.ErrorFor("cx", []int{0, 1}))
	assert.Equal(t, 0.01, model.ReadoutError(2))
	assert.Equal(t, 0.0, model.ReadoutError(3))

	out, err = execute(t, nil, "noise", "--error-param", "0.2", "--scale", "2")
	require.NoError(t, err)
	model, err = noise.Decode([]byte(out))
	require.NoError(t, err)
	assert.InDelta(t, 0.4, model.ErrorFor("cx", []int{0, 1}), 1e-12)

	_, err = execute(t, nil, "noise", "--error-param", "1.5")
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestFoldCommand(t *testing.T) {
	demo := circuit.DemoCircuit()
	m := folding.CountTwoQubitGates(demo)

	out, err := execute(t, nil, "fold", "--scale", "3")
	require.NoError(t, err)
	folded, err := circuit.ParseQASM(out)
	require.NoError(t, err)
	assert.Equal(t, 3*m, folding.CountTwoQubitGates(folded))

	// Reading the demo back from stdin with factor 1 leaves it unchanged
	out, err = execute(t, strings.NewReader(circuit.EmitQASM(demo)), "fold", "-", "--scale", "1", "--strategy", "local")
	require.NoError(t, err)
	assert.Equal(t, circuit.EmitQASM(demo), out)

	_, err = execute(t, nil, "fold", "--strategy", "diagonal")
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = execute(t, nil, "fold", "--scale", "0.5")
	assert.Error(t, err)

	_, err = execute(t, nil, "fold", "--scale", "1e13")
	assert.ErrorIs(t, err, domain.ErrInvalidScaleFactor)

	_, err = execute(t, nil, "fold", filepath.Join(t.TempDir(), "missing.qasm"))
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Method
	}{
		{"riim", domain.MethodRIIM},
		{"FIIM", domain.MethodFIIM},
		{"riim-sampled", domain.MethodRIIMSampled},
		{"riim_sampled", domain.MethodRIIMSampled},
	}
	for _, tt := range tests {
		got, err := parseMethod(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := parseMethod("zne")
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestRunAndHistory(t *testing.T) {
	isolate(t)

	out, err := execute(t, nil, "run", "riim", "--seed", "3", "--error-param", "0.05", "--name", "demo")
	require.NoError(t, err)

	var run runs.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, runs.StatusCompleted, run.Status)
	assert.Equal(t, "demo", run.CircuitName)
	assert.Equal(t, 500, run.Shots)
	assert.Equal(t, uint64(3), run.Seed)
	require.NotNil(t, run.ErrorParam)
	assert.Equal(t, 0.05, *run.ErrorParam)
	assert.Len(t, run.Points, 3)

	out, err = execute(t, nil, "run", "riim-sampled", "--resample", "4", "--scale-factors", "1,3")
	require.NoError(t, err)
	var sampled runs.Run
	require.NoError(t, json.Unmarshal([]byte(out), &sampled))
	assert.Equal(t, domain.MethodRIIMSampled, sampled.Method)
	assert.Len(t, sampled.Samples, 4)

	out, err = execute(t, nil, "runs", "list", "--limit", "10")
	require.NoError(t, err)
	var history []runs.Run
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 2)

	out, err = execute(t, nil, "runs", "show", run.ID)
	require.NoError(t, err)
	var shown runs.Run
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, run.ID, shown.ID)
	assert.Equal(t, run.Estimate, shown.Estimate)

	_, err = execute(t, nil, "runs", "show", "missing")
	assert.Error(t, err)
}

func TestRunCommand_Rejected(t *testing.T) {
	isolate(t)

	_, err := execute(t, nil, "run", "zne")
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = execute(t, nil, "run", "riim", "--scale-factors", "1,x")
	assert.Error(t, err)

	_, err = execute(t, nil, "run", "riim", "--error-param", "0.1", "--calibration", "fake_line3")
	assert.Error(t, err, "noise flags are mutually exclusive")

	_, err = execute(t, nil, "run", "riim", "--parity-bits", "5")
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	out, err := execute(t, nil, "runs", "list")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestCalibrationCommands(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "fake_line3.json")
	require.NoError(t, os.WriteFile(path, []byte(testingpkg.CalibrationJSON), 0644))

	out, err := execute(t, nil, "calibration", "import", path)
	require.NoError(t, err)
	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "fake_line3", summary["backend"])
	assert.Equal(t, float64(3), summary["qubits"])

	out, err = execute(t, nil, "cal", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `["fake_line3"]`, out)

	out, err = execute(t, nil, "calibration", "csv", "fake_line3", "-o", dir)
	require.NoError(t, err)
	csvPath := filepath.Join(dir, "fake_line3.20201013.devcalib.csv")
	assert.Equal(t, csvPath, strings.TrimSpace(out))
	written, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(written), "Qubit,T1 [us]"))

	out, err = execute(t, nil, "calibration", "csv", "fake_line3", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, string(written), out)

	_, err = execute(t, nil, "calibration", "csv", "unknown")
	assert.Error(t, err)

	_, err = execute(t, strings.NewReader(`{"backend_name": ""}`), "calibration", "import", "-")
	assert.Error(t, err)
}

func TestJobsCommands(t *testing.T) {
	isolate(t)

	out, err := execute(t, nil, "jobs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "runs_cleanup")
	assert.NotContains(t, out, "r2_backup")

	out, err = execute(t, nil, "jobs", "run", "runs_cleanup")
	require.NoError(t, err)
	assert.Equal(t, "runs_cleanup completed\n", out)

	_, err = execute(t, nil, "jobs", "run", "r2_backup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job")
}

func TestDataDirFlag(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "nested")

	_, err := execute(t, nil, "--data-dir", dir, "runs", "list")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "riim.db"))
}
