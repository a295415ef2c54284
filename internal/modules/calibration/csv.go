package calibration

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVHeader is the column layout written by WriteCSV.
var CSVHeader = []string{
	"Qubit",
	"T1 [us]",
	"T2 [us]",
	"Frequency [GHz]",
	"Readout error",
	"Single-qubit U2 error rate",
	"CNOT error rate",
	"Last update date",
}

// CSVName returns the file name the snapshot is archived under: <backend>.<YYYYMMDD>.devcalib
func (c *Calibration) CSVName() string {
	return fmt.Sprintf("%s.%s.devcalib", c.Backend, c.LastUpdate.UTC().Format("20060102"))
}

// WriteCSV writes one row per qubit. The CNOT column lists every CNOT controlled by the qubit
// as "cx<ctl>_<tgt>=<error>" entries joined by "; ".
func (c *Calibration) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	u2 := c.SingleQubitErrorRates()
	cnots := make(map[int][]string)
	for _, g := range c.cxGates() {
		ctl := g.Qubits[0]
		cnots[ctl] = append(cnots[ctl], fmt.Sprintf("cx%d_%d=%s", ctl, g.Qubits[1], formatFloat(g.Error)))
	}
	updated := c.LastUpdate.UTC().Format("2006-01-02 15:04:05")

	for _, qp := range c.Qubits {
		u2Cell := ""
		if rate, ok := u2[qp.Qubit]; ok {
			u2Cell = formatFloat(rate)
		}
		row := []string{
			"Q" + strconv.Itoa(qp.Qubit),
			formatFloat(qp.T1us),
			formatFloat(qp.T2us),
			formatFloat(qp.FrequencyGHz),
			formatFloat(qp.ReadoutError),
			u2Cell,
			strings.Join(cnots[qp.Qubit], "; "),
			updated,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for qubit %d: %w", qp.Qubit, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
