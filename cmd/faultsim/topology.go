package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTopologyCommand(root *RootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "topology <namespace>",
		Short: "Show the component graph of a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := root.client().GetTopology(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !resp.Success {
				return &failureError{msg: resp.Error}
			}
			out := cmd.OutOrStdout()
			switch {
			case raw:
				fmt.Fprintln(out, resp.TopologyJSON)
			case root.Format == "json":
				return writeJSON(out, resp)
			default:
				printTopology(out, resp)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the node-link topology document only")
	return cmd
}

func newNamespacesCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "List namespaces known to the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := root.client().Namespaces(cmd.Context())
			if err != nil {
				return err
			}
			if root.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), names)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
