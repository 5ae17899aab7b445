package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adamsih300u/bastion-sub008/pkg/graph"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

type designOptions struct {
	file               string
	componentType      string
	requires           []string
	provides           []string
	group              string
	criticality        int
	logic              string
	mOfN               int
	weights            []string
	integrityThreshold float64
	metadata           []string
}

func newDesignCommand(root *RootOptions) *cobra.Command {
	opts := &designOptions{}

	cmd := &cobra.Command{
		Use:   "design <namespace> [component-id]",
		Short: "Create or update a component in a namespace",
		Long: `Design a single component from flags, or every component listed in a
YAML file with --file. Components are applied in file order.`,
		Example: `  faultsim design grid bus1 --type bus --requires gen1,gen2 --logic OR
  faultsim design grid --file topology.yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := opts.specs(cmd, args)
			if err != nil {
				return err
			}
			c := root.client()
			results := make([]simulation.DesignResponse, 0, len(specs))
			for _, spec := range specs {
				resp, err := c.DesignComponent(cmd.Context(), args[0], spec)
				if err != nil {
					return err
				}
				results = append(results, resp)
				if root.Format == "text" {
					printDesign(cmd.OutOrStdout(), resp)
				}
				if !resp.Success {
					break
				}
			}
			if root.Format == "json" {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			}
			if last := results[len(results)-1]; !last.Success {
				return &failureError{msg: fmt.Sprintf("design of %s failed", last.ComponentID)}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "YAML file with a list of component definitions")
	f.StringVar(&opts.componentType, "type", "", "component type")
	f.StringSliceVar(&opts.requires, "requires", nil, "ids this component depends on")
	f.StringSliceVar(&opts.provides, "provides", nil, "capabilities this component provides")
	f.StringVar(&opts.group, "group", "", "redundancy group")
	f.IntVar(&opts.criticality, "criticality", graph.DefaultCriticality, "criticality (1-5)")
	f.StringVar(&opts.logic, "logic", "", "dependency logic (AND|OR|MAJORITY|M_OF_N|WEIGHTED_INTEGRITY)")
	f.IntVar(&opts.mOfN, "m", 0, "required operational predecessors for M_OF_N")
	f.StringSliceVar(&opts.weights, "weight", nil, "dependency weights as id=weight")
	f.Float64Var(&opts.integrityThreshold, "integrity-threshold", graph.DefaultIntegrityThreshold, "threshold for WEIGHTED_INTEGRITY")
	f.StringSliceVar(&opts.metadata, "meta", nil, "metadata as key=value")

	return cmd
}

func (o *designOptions) specs(cmd *cobra.Command, args []string) ([]graph.DesignSpec, error) {
	if o.file != "" {
		if len(args) != 1 {
			return nil, fmt.Errorf("--file takes only a namespace argument")
		}
		return loadDesignFile(o.file)
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("component id is required without --file")
	}

	meta, err := parsePairs(o.metadata)
	if err != nil {
		return nil, fmt.Errorf("--meta: %w", err)
	}
	rawWeights, err := parsePairs(o.weights)
	if err != nil {
		return nil, fmt.Errorf("--weight: %w", err)
	}
	var weights map[string]float64
	if len(rawWeights) > 0 {
		weights = make(map[string]float64, len(rawWeights))
		for k, v := range rawWeights {
			w, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("--weight %s: %w", k, err)
			}
			weights[k] = w
		}
	}

	spec := graph.DesignSpec{
		ComponentID:       args[1],
		ComponentType:     o.componentType,
		Requires:          o.requires,
		Provides:          o.provides,
		RedundancyGroup:   o.group,
		Metadata:          meta,
		DependencyLogic:   graph.Logic(o.logic),
		MOfNThreshold:     o.mOfN,
		DependencyWeights: weights,
	}
	// Only send overrides the user actually set so the daemon applies its defaults.
	if cmd.Flags().Changed("criticality") {
		spec.Criticality = &o.criticality
	}
	if cmd.Flags().Changed("integrity-threshold") {
		spec.IntegrityThreshold = &o.integrityThreshold
	}
	return []graph.DesignSpec{spec}, nil
}

func loadDesignFile(path string) ([]graph.DesignSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var specs []graph.DesignSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%s declares no components", path)
	}
	return specs, nil
}

