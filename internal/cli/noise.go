package cli

import (
	"github.com/spf13/cobra"

	"github.com/aristath/riimtools/internal/modules/noise"
)

func newNoiseCommand(opts *rootOptions) *cobra.Command {
	var (
		qubits     int
		errorParam float64
		readout    float64
		scale      float64
	)

	cmd := &cobra.Command{
		Use:   "noise",
		Short: "Print a depolarizing noise model as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := noise.GenerateDepolarizing(qubits, errorParam)
			if err != nil {
				return err
			}
			if readout > 0 {
				for q := 0; q < qubits; q++ {
					if err := model.SetReadoutError(q, readout); err != nil {
						return err
					}
				}
			}
			if scale != 1 {
				if model, err = model.Scaled(scale); err != nil {
					return err
				}
			}

			opts.log.Debug().Int("qubits", qubits).Strs("gates", model.NoisyGates()).Msg("Generated noise model")
			return writeJSON(cmd.OutOrStdout(), model)
		},
	}

	cmd.Flags().IntVar(&qubits, "qubits", 2, "number of qubits")
	cmd.Flags().Float64Var(&errorParam, "error-param", 0.1, "two-qubit depolarizing probability")
	cmd.Flags().Float64Var(&readout, "readout", 0, "bit-flip probability on every measurement")
	cmd.Flags().Float64Var(&scale, "scale", 1, "multiply every probability by this factor")

	return cmd
}
