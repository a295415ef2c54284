package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aristath/riimtools/internal/modules/calibration"
)

func newCalibrationCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calibration",
		Aliases: []string{"cal"},
		Short:   "Import and export backend calibration snapshots",
	}

	cmd.AddCommand(
		newCalibrationImportCommand(opts),
		newCalibrationCSVCommand(opts),
		newCalibrationListCommand(opts),
	)
	return cmd
}

func newCalibrationImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <properties.json|->",
		Short: "Store a backend properties snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			cal, err := calibration.Parse(bytes.NewReader(raw))
			if err != nil {
				return err
			}

			container, _, _, err := opts.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.CalibrationRepo.Save(cal); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"backend":      cal.Backend,
				"qubits":       cal.NumQubits(),
				"csv_name":     cal.CSVName(),
				"coupling_map": cal.CouplingMap(),
			})
		},
	}
}

func newCalibrationCSVCommand(opts *rootOptions) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "csv <backend>",
		Short: "Export the latest calibration of a backend as a device CSV",
		Long: "Writes <backend>.<yyyymmdd>.devcalib.csv into the output directory, " +
			"or to stdout when the output directory is -.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, _, err := opts.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			cal, err := container.CalibrationRepo.Latest(args[0])
			if err != nil {
				return err
			}
			if cal == nil {
				return fmt.Errorf("no calibration stored for backend %q", args[0])
			}

			if outputDir == "-" {
				return cal.WriteCSV(cmd.OutOrStdout())
			}

			path := filepath.Join(outputDir, cal.CSVName()+".csv")
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if err := cal.WriteCSV(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			opts.log.Info().Str("path", path).Msg("Wrote calibration CSV")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory for the CSV file, - for stdout")
	return cmd
}

func newCalibrationListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the backends with stored calibrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, _, err := opts.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			backends, err := container.CalibrationRepo.ListBackends()
			if err != nil {
				return err
			}
			if backends == nil {
				backends = []string{}
			}
			return writeJSON(cmd.OutOrStdout(), backends)
		},
	}
}
