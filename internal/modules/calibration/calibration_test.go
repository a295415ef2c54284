package calibration

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/aristath/riimtools/internal/domain"
	testingpkg "github.com/aristath/riimtools/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFixture(t *testing.T) *Calibration {
	t.Helper()
	cal, err := Parse(strings.NewReader(testingpkg.CalibrationJSON))
	require.NoError(t, err)
	return cal
}

func TestParse(t *testing.T) {
	cal := parseFixture(t)

	assert.Equal(t, "fake_line3", cal.Backend)
	assert.True(t, time.Date(2020, 10, 13, 8, 17, 15, 0, time.UTC).Equal(cal.LastUpdate))
	require.Equal(t, 3, cal.NumQubits())
	assert.Len(t, cal.Gates, 8)

	assert.Equal(t, QubitProperties{Qubit: 0, T1us: 81.2, T2us: 102.5, FrequencyGHz: 4.97, ReadoutError: 0.021}, cal.Qubits[0])

	// Units are normalised
	assert.InDelta(t, 95.4, cal.Qubits[2].T1us, 1e-9)
	assert.InDelta(t, 5.015, cal.Qubits[2].FrequencyGHz, 1e-9)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"backend_name": `},
		{"no backend", `{"last_update_date": "2020-10-13T08:17:15+00:00", "qubits": [[]]}`},
		{"no qubits", `{"backend_name": "x", "last_update_date": "2020-10-13T08:17:15+00:00", "qubits": []}`},
		{"no date", `{"backend_name": "x", "qubits": [[]]}`},
		{"bad date", `{"backend_name": "x", "last_update_date": "yesterday", "qubits": [[]]}`},
		{"readout out of range", `{"backend_name": "x", "last_update_date": "2020-10-13T08:17:15+00:00",
			"qubits": [[{"name": "readout_error", "unit": "", "value": 1.2}]]}`},
		{"gate error out of range", `{"backend_name": "x", "last_update_date": "2020-10-13T08:17:15+00:00", "qubits": [[]],
			"gates": [{"gate": "u2", "name": "u2_0", "qubits": [0], "parameters": [{"name": "gate_error", "value": -0.1}]}]}`},
		{"gate on unknown qubit", `{"backend_name": "x", "last_update_date": "2020-10-13T08:17:15+00:00", "qubits": [[]],
			"gates": [{"gate": "cx", "name": "cx0_3", "qubits": [0, 3], "parameters": []}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, domain.ErrInvalidParameter)
		})
	}
}

func TestParse_DateWithoutZone(t *testing.T) {
	cal, err := Parse(strings.NewReader(`{"backend_name": "x", "last_update_date": "2021-03-01 10:00:00", "qubits": [[]]}`))
	require.NoError(t, err)
	assert.True(t, time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC).Equal(cal.LastUpdate))
}

func TestSingleQubitErrorRates(t *testing.T) {
	cal := parseFixture(t)
	assert.Equal(t, map[int]float64{0: 0.0004, 1: 0.0006, 2: 0.0003}, cal.SingleQubitErrorRates())

	// sx is used when the device has no u2 calibrations
	sxOnly := &Calibration{
		Backend: "sx_device",
		Qubits:  []QubitProperties{{Qubit: 0}},
		Gates:   []GateProperties{{Gate: "sx", Name: "sx_0", Qubits: []int{0}, Error: 0.0002}},
	}
	assert.Equal(t, map[int]float64{0: 0.0002}, sxOnly.SingleQubitErrorRates())
}

func TestConnectedQubits(t *testing.T) {
	cal := parseFixture(t)

	assert.Equal(t, []string{"Q1"}, cal.ConnectedQubits(0))
	assert.Equal(t, []string{"Q0", "Q2"}, cal.ConnectedQubits(1))
	assert.Equal(t, []string{"Q1"}, cal.ConnectedQubits(2))
	assert.Empty(t, cal.ConnectedQubits(7))
}

func TestCXErrorRate(t *testing.T) {
	cal := parseFixture(t)

	rate, err := cal.CXErrorRate(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0098, rate)

	rate, err = cal.CXErrorRate(2, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0105, rate)

	_, err = cal.CXErrorRate(1, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = cal.CXErrorRate(0, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	assert.ErrorContains(t, err, "Q1")
}

func TestCouplingMap(t *testing.T) {
	cal := parseFixture(t)
	cm := cal.CouplingMap()

	assert.Equal(t, domain.CouplingMap{{0, 1}, {1, 0}, {1, 2}, {2, 1}}, cm)
	assert.True(t, cm.Allows(2, 1))
	assert.False(t, cm.Allows(0, 2))
}

func TestNoiseModel(t *testing.T) {
	cal := parseFixture(t)
	m, err := cal.NoiseModel()
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, 0.0121, m.ErrorFor("cx", []int{0, 1}))
	assert.Equal(t, 0.0098, m.ErrorFor("cx", []int{1, 2}))
	assert.Zero(t, m.ErrorFor("cx", []int{0, 2}), "uncalibrated pair carries no error")

	assert.Equal(t, 0.0006, m.ErrorFor("h", []int{1}))
	assert.Equal(t, 0.0003, m.ErrorFor("rz", []int{2}))
	assert.Zero(t, m.ErrorFor("id", []int{0}))

	assert.Equal(t, 0.021, m.ReadoutError(0))
	assert.Equal(t, 0.034, m.ReadoutError(1))
	assert.Equal(t, 0.018, m.ReadoutError(2))
	assert.False(t, m.IsNoiseless())
}

func TestCSV(t *testing.T) {
	cal := parseFixture(t)
	assert.Equal(t, "fake_line3.20201013.devcalib", cal.CSVName())

	var buf bytes.Buffer
	require.NoError(t, cal.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{"Q0", "81.2", "102.5", "4.97", "0.021", "0.0004", "cx0_1=0.0121", "2020-10-13 08:17:15"}, records[1])
	assert.Equal(t, []string{"Q1", "64", "71.9", "4.77", "0.034", "0.0006", "cx1_0=0.0121; cx1_2=0.0098", "2020-10-13 08:17:15"}, records[2])
	assert.Equal(t, []string{"Q2", "95.4", "88.1", "5.015", "0.018", "0.0003", "cx2_1=0.0105", "2020-10-13 08:17:15"}, records[3])
}
