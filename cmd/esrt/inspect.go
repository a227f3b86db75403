package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"esrt/pkg/errors"
	"esrt/pkg/modules"
)

func newExportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exports <module>",
		Short: "List the names a module exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, nil)
			if err != nil {
				return err
			}
			names, err := rt.Exports(args[0])
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <module> <name>",
		Short: "Show which module binding an export resolves to",
		Long: `Resolve an exported name through indirect and star exports.

Prints module:binding, module:*namespace* for namespace exports, or
"ambiguous" when star exports provide conflicting bindings.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, nil)
			if err != nil {
				return err
			}
			binding, err := rt.ResolveExport(args[0], args[1])
			if err != nil {
				return err
			}
			switch binding {
			case nil:
				return errors.NewResolutionError(args[0], args[1], "module %s does not provide an export named '%s'", args[0], args[1])
			case modules.Ambiguous:
				fmt.Fprintln(cmd.OutOrStdout(), "ambiguous")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), binding)
			}
			return nil
		},
	}
}

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <module>",
		Short: "List a module and its static imports, dependencies first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, nil)
			if err != nil {
				return err
			}
			order, err := rt.Graph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, id := range order {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
