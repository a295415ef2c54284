package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/folding"
)

func newFoldCommand(opts *rootOptions) *cobra.Command {
	var (
		scale    float64
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "fold [qasm-file|-]",
		Short: "Fold the two-qubit gates of a circuit and print the scaled QASM",
		Long: "Fold reads an OpenQASM 2 circuit (the built-in demo circuit when no file is given), " +
			"inserts G⁻¹G pairs after its two-qubit gates and prints the folded circuit.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := circuit.DemoCircuit()
			if len(args) == 1 {
				src, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				if c, err = circuit.ParseQASM(string(src)); err != nil {
					return err
				}
			}

			s, err := folding.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			folded, err := folding.Scale(c, scale, s)
			if err != nil {
				return err
			}

			opts.log.Info().
				Str("strategy", string(s)).
				Float64("requested_factor", scale).
				Float64("realized_factor", folding.RealizedFactor(c, folded)).
				Int("two_qubit_gates", folding.CountTwoQubitGates(folded)).
				Msg("Folded circuit")

			_, err = fmt.Fprint(cmd.OutOrStdout(), circuit.EmitQASM(folded))
			return err
		},
	}

	cmd.Flags().Float64Var(&scale, "scale", 3, "noise scale factor (>= 1)")
	cmd.Flags().StringVar(&strategy, "strategy", string(folding.StrategyGlobal), "folding strategy: global or local")

	return cmd
}
