package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/riimtools/internal/modules/runs"
)

func newRunsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the stored run history",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be >= 1, got %d", limit)
			}
			container, _, _, err := opts.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			history, err := container.RunService.List(limit)
			if err != nil {
				return err
			}
			if history == nil {
				history = []runs.Run{}
			}
			return writeJSON(cmd.OutOrStdout(), history)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, _, err := opts.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			run, err := container.RunService.Get(args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), run)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
