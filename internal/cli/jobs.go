package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newJobsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run maintenance jobs by hand",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the maintenance jobs available with the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, _, err := opts.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			return writeJSON(cmd.OutOrStdout(), container.Scheduler.Jobs())
		},
	}

	run := &cobra.Command{
		Use:   "run <name>",
		Short: "Run one maintenance job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, jobs, _, err := opts.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			job, ok := jobs.Find(args[0])
			if !ok {
				var names []string
				for _, j := range jobs.All() {
					names = append(names, j.Name())
				}
				sort.Strings(names)
				return fmt.Errorf("unknown job %q, available: %v", args[0], names)
			}
			if err := container.Scheduler.RunNow(job); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s completed\n", job.Name())
			return err
		},
	}

	cmd.AddCommand(list, run)
	return cmd
}
