package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/runs"
	"github.com/aristath/riimtools/internal/utils"
)

// parseMethod accepts the method names used in stored runs and the URL spelling of the
// sampled method.
func parseMethod(name string) (domain.Method, error) {
	switch m := domain.Method(strings.ReplaceAll(strings.ToLower(name), "-", "_")); m {
	case domain.MethodRIIM, domain.MethodFIIM, domain.MethodRIIMSampled:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown method %q (want riim, fiim or riim-sampled)", domain.ErrInvalidParameter, name)
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		qasmFile     string
		name         string
		shots        int
		seed         uint64
		errorParam   float64
		calibration  string
		scaleFactors string
		degree       int
		parityBits   string
		resample     int
		normalize    bool
	)

	cmd := &cobra.Command{
		Use:   "run <riim|fiim|riim-sampled>",
		Short: "Run a zero-noise extrapolation and store it in the run history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := parseMethod(args[0])
			if err != nil {
				return err
			}

			req := runs.Request{
				Method:             method,
				CircuitName:        name,
				Shots:              shots,
				Seed:               seed,
				CalibrationBackend: calibration,
				Degree:             degree,
				ResampleCount:      resample,
				NormalizeShots:     normalize,
			}
			if cmd.Flags().Changed("error-param") {
				req.ErrorParam = &errorParam
			}
			if req.ScaleFactors, err = utils.ParseFloats(scaleFactors); err != nil {
				return fmt.Errorf("--scale-factors: %w", err)
			}
			if req.ParityBits, err = utils.ParseInts(parityBits); err != nil {
				return fmt.Errorf("--parity-bits: %w", err)
			}
			if qasmFile != "" {
				src, err := readInput(cmd, qasmFile)
				if err != nil {
					return err
				}
				req.QASM = string(src)
			}

			container, _, _, err := opts.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			run, err := container.RunService.Execute(cmd.Context(), req)
			if run != nil {
				if werr := writeJSON(cmd.OutOrStdout(), run); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&qasmFile, "qasm", "", "OpenQASM 2 file to mitigate, - for stdin (default: demo circuit)")
	cmd.Flags().StringVar(&name, "name", "", "circuit name stored with the run")
	cmd.Flags().IntVar(&shots, "shots", 0, "shots per scale factor (default RIIM_SHOTS)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "sampling seed (default RIIM_SEED)")
	cmd.Flags().Float64Var(&errorParam, "error-param", 0, "two-qubit depolarizing probability (default RIIM_ERROR_PARAM)")
	cmd.Flags().StringVar(&calibration, "calibration", "", "use the latest stored calibration of this backend as noise model")
	cmd.Flags().StringVar(&scaleFactors, "scale-factors", "", "comma separated scale factors, e.g. 1,2,3")
	cmd.Flags().IntVar(&degree, "degree", 0, "polynomial degree of the fit (default: Richardson)")
	cmd.Flags().StringVar(&parityBits, "parity-bits", "", "clbits of the parity observable (default: all)")
	cmd.Flags().IntVar(&resample, "resample", 0, "repetitions of a sampled run (default RIIM_RESAMPLE_COUNT)")
	cmd.Flags().BoolVar(&normalize, "normalize-shots", false, "resample every distribution to the configured shot count instead of its own total")
	cmd.MarkFlagsMutuallyExclusive("error-param", "calibration")

	return cmd
}
