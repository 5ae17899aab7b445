package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamsih300u/bastion-sub008/pkg/client"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	API    string
	Format string // "json" | "text"
}

var validFormats = []string{"text", "json"}

func (o *RootOptions) client() *client.Client {
	return client.NewClient(o.API)
}

// NewRootCommand creates the root command for the faultsim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "faultsim",
		Short: "Design dependency topologies and simulate cascading failures",
		Long: `faultsim talks to a faultsim-d daemon to build per-namespace component
graphs and run deterministic cascade or Monte Carlo failure simulations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
	}

	defaultAPI := os.Getenv("FAULTSIM_API")
	if defaultAPI == "" {
		defaultAPI = client.DefaultEndpoint
	}
	cmd.PersistentFlags().StringVar(&opts.API, "api", defaultAPI, "faultsim-d base URL")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newDesignCommand(opts))
	cmd.AddCommand(newSimulateCommand(opts))
	cmd.AddCommand(newTopologyCommand(opts))
	cmd.AddCommand(newNamespacesCommand(opts))
	cmd.AddCommand(newEventsCommand(opts))
	cmd.AddCommand(newScenarioCommand(opts))
	cmd.AddCommand(newMCPCommand(opts))

	return cmd
}

// Exit codes for CLI commands.
const (
	exitFailure      = 1 // simulation failed or scenario invariants did not hold
	exitCommandError = 2
)

// failureError marks a command that ran but reported failure.
type failureError struct {
	msg string
}

func (e *failureError) Error() string { return e.msg }

func exitCode(err error) int {
	var f *failureError
	if errors.As(err, &f) {
		return exitFailure
	}
	return exitCommandError
}
