package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

func newScenarioCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run scenario files locally",
	}
	cmd.AddCommand(newScenarioRunCommand(root))
	return cmd
}

func newScenarioRunCommand(root *RootOptions) *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "run <file>...",
		Short: "Run scenarios in-process and check their invariants",
		Long: `Each scenario builds its own topology in an in-memory service, runs its
simulation and evaluates its invariants. No daemon is needed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]simulation.ScenarioResult, 0, len(args))
			failed := 0
			for _, path := range args {
				s, err := simulation.LoadScenario(path)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("seed") {
					s.Seed = seed
				}
				res := simulation.RunScenario(cmd.Context(), s)
				if !res.Success {
					failed++
				}
				results = append(results, res)
				if root.Format == "text" {
					printScenario(cmd.OutOrStdout(), res)
				}
			}
			if root.Format == "json" {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			}
			if failed > 0 {
				return &failureError{msg: fmt.Sprintf("%d of %d scenarios failed", failed, len(args))}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "override the scenario seed")
	return cmd
}
