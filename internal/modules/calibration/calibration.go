// Package calibration reads device calibration snapshots (backend properties) and turns them
// into per-qubit tables, coupling maps and noise models.
package calibration

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/noise"
)

// QubitProperties holds the per-qubit calibration values, normalised to the units in the field names.
type QubitProperties struct {
	Qubit        int     `json:"qubit" msgpack:"qubit"`
	T1us         float64 `json:"t1_us" msgpack:"t1_us"`
	T2us         float64 `json:"t2_us" msgpack:"t2_us"`
	FrequencyGHz float64 `json:"frequency_ghz" msgpack:"frequency_ghz"`
	ReadoutError float64 `json:"readout_error" msgpack:"readout_error"`
}

// GateProperties holds the calibrated error of one gate on one qubit tuple.
type GateProperties struct {
	Gate   string  `json:"gate" msgpack:"gate"`
	Name   string  `json:"name" msgpack:"name"` // e.g. u2_0, cx0_1
	Qubits []int   `json:"qubits" msgpack:"qubits"`
	Error  float64 `json:"error" msgpack:"error"`
}

// Calibration is one calibration snapshot of a backend.
type Calibration struct {
	Backend    string            `json:"backend" msgpack:"backend"`
	LastUpdate time.Time         `json:"last_update" msgpack:"last_update"`
	Qubits     []QubitProperties `json:"qubits" msgpack:"qubits"`
	Gates      []GateProperties  `json:"gates" msgpack:"gates"`
}

// nduv is a name/date/unit/value entry of the properties document
type nduv struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

type rawGate struct {
	Gate       string `json:"gate"`
	Name       string `json:"name"`
	Qubits     []int  `json:"qubits"`
	Parameters []nduv `json:"parameters"`
}

type rawProperties struct {
	BackendName    string    `json:"backend_name"`
	LastUpdateDate string    `json:"last_update_date"`
	Qubits         [][]nduv  `json:"qubits"`
	Gates          []rawGate `json:"gates"`
}

// Accepted timestamp layouts of last_update_date.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// Parse decodes a backend-properties JSON document.
func Parse(r io.Reader) (*Calibration, error) {
	var raw rawProperties
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode backend properties: %v", domain.ErrInvalidParameter, err)
	}
	if raw.BackendName == "" {
		return nil, fmt.Errorf("%w: backend_name is required", domain.ErrInvalidParameter)
	}
	if len(raw.Qubits) == 0 {
		return nil, fmt.Errorf("%w: backend %s lists no qubits", domain.ErrInvalidParameter, raw.BackendName)
	}

	lastUpdate, err := parseTime(raw.LastUpdateDate)
	if err != nil {
		return nil, err
	}

	cal := &Calibration{
		Backend:    raw.BackendName,
		LastUpdate: lastUpdate,
		Qubits:     make([]QubitProperties, len(raw.Qubits)),
	}

	for q, props := range raw.Qubits {
		qp := QubitProperties{Qubit: q}
		for _, p := range props {
			switch p.Name {
			case "T1":
				qp.T1us = toMicroseconds(p.Value, p.Unit)
			case "T2":
				qp.T2us = toMicroseconds(p.Value, p.Unit)
			case "frequency":
				qp.FrequencyGHz = toGigahertz(p.Value, p.Unit)
			case "readout_error":
				qp.ReadoutError = p.Value
			}
		}
		if qp.ReadoutError < 0 || qp.ReadoutError > 1 {
			return nil, fmt.Errorf("%w: readout error %v of qubit %d outside [0, 1]", domain.ErrInvalidParameter, qp.ReadoutError, q)
		}
		cal.Qubits[q] = qp
	}

	for _, g := range raw.Gates {
		gp := GateProperties{Gate: g.Gate, Name: g.Name, Qubits: append([]int(nil), g.Qubits...)}
		for _, p := range g.Parameters {
			if p.Name == "gate_error" {
				gp.Error = p.Value
			}
		}
		if gp.Error < 0 || gp.Error > 1 {
			return nil, fmt.Errorf("%w: gate error %v of %s outside [0, 1]", domain.ErrInvalidParameter, gp.Error, g.Name)
		}
		for _, q := range gp.Qubits {
			if q < 0 || q >= len(cal.Qubits) {
				return nil, fmt.Errorf("%w: gate %s references qubit %d of a %d-qubit device", domain.ErrInvalidParameter, g.Name, q, len(cal.Qubits))
			}
		}
		cal.Gates = append(cal.Gates, gp)
	}

	return cal, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: last_update_date is required", domain.ErrInvalidParameter)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised last_update_date %q", domain.ErrInvalidParameter, s)
}

func toMicroseconds(v float64, unit string) float64 {
	switch unit {
	case "ns":
		return v / 1e3
	case "ms":
		return v * 1e3
	case "s":
		return v * 1e6
	default: // us or unitless
		return v
	}
}

func toGigahertz(v float64, unit string) float64 {
	switch unit {
	case "Hz":
		return v / 1e9
	case "kHz":
		return v / 1e6
	case "MHz":
		return v / 1e3
	default: // GHz
		return v
	}
}

// NumQubits returns the device size.
func (c *Calibration) NumQubits() int {
	return len(c.Qubits)
}

// SingleQubitErrorRates returns the u2 error of every qubit that has one. Devices without u2
// calibrations report sx instead.
func (c *Calibration) SingleQubitErrorRates() map[int]float64 {
	rates := c.gateErrors("u2")
	if len(rates) == 0 {
		rates = c.gateErrors("sx")
	}
	return rates
}

func (c *Calibration) gateErrors(gate string) map[int]float64 {
	rates := make(map[int]float64)
	for _, g := range c.Gates {
		if g.Gate == gate && len(g.Qubits) == 1 {
			rates[g.Qubits[0]] = g.Error
		}
	}
	return rates
}

// cxGates returns the calibrated CNOTs, sorted by (control, target).
func (c *Calibration) cxGates() []GateProperties {
	var out []GateProperties
	for _, g := range c.Gates {
		if g.Gate == "cx" && len(g.Qubits) == 2 {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Qubits[0] != out[j].Qubits[0] {
			return out[i].Qubits[0] < out[j].Qubits[0]
		}
		return out[i].Qubits[1] < out[j].Qubits[1]
	})
	return out
}

// ConnectedQubits returns the CNOT targets reachable from ctl, labelled "Q<n>".
func (c *Calibration) ConnectedQubits(ctl int) []string {
	var labels []string
	for _, g := range c.cxGates() {
		if g.Qubits[0] == ctl {
			labels = append(labels, "Q"+strconv.Itoa(g.Qubits[1]))
		}
	}
	return labels
}

// CXErrorRate returns the calibrated error of the CNOT with control ctl and target tgt.
func (c *Calibration) CXErrorRate(ctl, tgt int) (float64, error) {
	if ctl == tgt {
		return 0, fmt.Errorf("%w: control and target must be distinct, got %d", domain.ErrInvalidParameter, ctl)
	}
	for _, g := range c.cxGates() {
		if g.Qubits[0] == ctl && g.Qubits[1] == tgt {
			return g.Error, nil
		}
	}
	return 0, fmt.Errorf("%w: qubits %d and %d are not connected (targets of %d: %s)",
		domain.ErrInvalidParameter, ctl, tgt, ctl, strings.Join(c.ConnectedQubits(ctl), ", "))
}

// CouplingMap returns the directed CNOT pairs of the device.
func (c *Calibration) CouplingMap() domain.CouplingMap {
	var cm domain.CouplingMap
	for _, g := range c.cxGates() {
		cm = append(cm, [2]int{g.Qubits[0], g.Qubits[1]})
	}
	return cm
}

// NoiseModel builds a depolarizing model from the snapshot: every calibrated CNOT gets its own
// error, every non-identity single-qubit gate on a qubit gets that qubit's u2 (or sx) error, and
// every qubit gets its readout error.
func (c *Calibration) NoiseModel() (*noise.Model, error) {
	m := noise.NewModel()

	for _, g := range c.cxGates() {
		if err := m.AddQubitError("cx", g.Qubits, g.Error); err != nil {
			return nil, fmt.Errorf("cx error of %s: %w", g.Name, err)
		}
	}

	rates := c.SingleQubitErrorRates()
	qubits := make([]int, 0, len(rates))
	for q := range rates {
		qubits = append(qubits, q)
	}
	sort.Ints(qubits)
	for _, q := range qubits {
		for _, gate := range circuit.SingleQubitGates() {
			if gate == "id" {
				continue
			}
			if err := m.AddQubitError(gate, []int{q}, rates[q]); err != nil {
				return nil, fmt.Errorf("single-qubit error of qubit %d: %w", q, err)
			}
		}
	}

	for _, qp := range c.Qubits {
		if err := m.SetReadoutError(qp.Qubit, qp.ReadoutError); err != nil {
			return nil, fmt.Errorf("readout error of qubit %d: %w", qp.Qubit, err)
		}
	}

	return m, nil
}
