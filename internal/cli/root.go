// Package cli implements riimctl, the command line front end of the mitigation toolkit.
//
// Results are written to stdout as JSON (or QASM/CSV where that is the natural format);
// logs go to stderr so output can be piped.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/riimtools/internal/config"
	"github.com/aristath/riimtools/internal/di"
	"github.com/aristath/riimtools/pkg/logger"
)

type rootOptions struct {
	dataDir  string
	logLevel string
	pretty   bool

	log zerolog.Logger
}

// NewRootCommand builds the riimctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "riimctl",
		Short:         "Zero-noise extrapolation from the command line",
		Long:          "riimctl folds circuits, builds noise models and runs RIIM/FIIM extrapolations against the configured backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.log = logger.New(logger.Config{
				Level:  opts.logLevel,
				Pretty: opts.pretty,
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (overrides RIIM_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "human readable logs")

	rootCmd.AddCommand(
		newNoiseCommand(opts),
		newFoldCommand(opts),
		newRunCommand(opts),
		newCalibrationCommand(opts),
		newRunsCommand(opts),
		newJobsCommand(opts),
	)

	return rootCmd
}

// Execute runs riimctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// wire loads the configuration and builds the container used by the stateful commands.
func (o *rootOptions) wire() (*di.Container, *di.JobInstances, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if o.dataDir != "" {
		abs, err := filepath.Abs(o.dataDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to resolve data directory path: %w", err)
		}
		if err := os.MkdirAll(abs, 0755); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		cfg.DataDir = abs
	}

	container, jobs, err := di.Wire(cfg, o.log)
	if err != nil {
		return nil, nil, nil, err
	}
	return container, jobs, cfg, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
