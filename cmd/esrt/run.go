package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <module> [args...]",
		Short: "Evaluate a module and print its exports",
		Long: `Load, link and evaluate a module, drain pending jobs, then print
every binding of its namespace as name = value.

The module path and any further arguments are available as argv from
the esrt:process module.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, args)
			if err != nil {
				return err
			}
			bindings, err := rt.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, b := range bindings {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", b.Name, b.Value.Inspect())
			}
			return nil
		},
	}
}
