package main

import (
	"github.com/spf13/cobra"

	"github.com/adamsih300u/bastion-sub008/pkg/client"
)

func newEventsCommand(root *RootOptions) *cobra.Command {
	opts := client.EventsOptions{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent design and simulation events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := root.client().GetEvents(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if root.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), events)
			}
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of events")
	f.StringVar(&opts.Namespace, "namespace", "", "only events for this namespace")
	f.StringVar(&opts.Type, "type", "", "only events of this type")
	return cmd
}
