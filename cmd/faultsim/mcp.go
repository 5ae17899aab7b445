package main

import (
	"github.com/spf13/cobra"

	"github.com/adamsih300u/bastion-sub008/pkg/mcp"
)

func newMCPCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve faultsim tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcp.NewServer(root.API).Serve()
		},
	}
}
