package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

func newSimulateCommand(root *RootOptions) *cobra.Command {
	var (
		fail       []string
		mode       string
		simType    string
		iterations int
		probs      []string
	)

	cmd := &cobra.Command{
		Use:   "simulate <namespace>",
		Short: "Fail components and propagate the failure through the namespace",
		Example: `  faultsim simulate grid --fail gen1 --mode trip
  faultsim simulate grid --fail gen1 --type monte_carlo --iterations 5000 --prob gen1=0.2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(probs)
			if err != nil {
				return fmt.Errorf("--prob: %w", err)
			}
			req := simulation.SimulateRequest{
				FailedComponentIDs:   fail,
				SimulationType:       simType,
				MonteCarloIterations: iterations,
			}
			if mode != "" {
				req.FailureModes = []string{mode}
			}
			if len(pairs) > 0 {
				req.FailureParameters = make(map[string]string, len(pairs))
				for id, p := range pairs {
					req.FailureParameters[id+"_prob"] = p
				}
			}
			resp, err := root.client().SimulateFailure(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			if root.Format == "json" {
				if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
			} else {
				printSimulation(cmd.OutOrStdout(), resp)
			}
			if !resp.Success {
				return &failureError{msg: resp.Error}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&fail, "fail", nil, "component ids to fail")
	f.StringVar(&mode, "mode", "", "failure mode recorded on every initially failed component")
	f.StringVar(&simType, "type", simulation.TypeCascade, "simulation type (single|cascade|monte_carlo)")
	f.IntVar(&iterations, "iterations", 0, "Monte Carlo iterations (0 falls back to a single cascade)")
	f.StringSliceVar(&probs, "prob", nil, "Monte Carlo failure probability per failed component as id=p (default 0.5)")
	_ = cmd.MarkFlagRequired("fail")

	return cmd
}
