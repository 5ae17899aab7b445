package reports

import (
	"context"
	"io"
	"strconv"
	"strings"
)

// ComponentReport lists one row per component state per successful
// simulation.
type ComponentReport struct {
	store ReportStore
}

func NewComponentReport(s ReportStore) *ComponentReport {
	return &ComponentReport{store: s}
}

func (r *ComponentReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	records, err := loadSimulations(ctx, r.store, params)
	if err != nil {
		return nil, err
	}

	headers := []string{
		"timestamp", "namespace", "simulation_id", "component_id", "state",
		"failure_probability", "failure_mode", "redundancy_at_risk", "failed_dependencies",
	}
	var rows [][]string
	for _, rec := range records {
		if !rec.result.Success {
			continue
		}
		// Filter by component id if requested
		only, _ := params.Filters["component_id"].(string)
		for _, cs := range rec.result.ComponentStates {
			if only != "" && cs.ComponentID != only {
				continue
			}
			rows = append(rows, []string{
				formatTime(rec.event.TsEvent),
				rec.event.Dimensions.Namespace,
				rec.event.Dimensions.SimulationID,
				cs.ComponentID,
				string(cs.State),
				formatFloat(cs.FailureProbability),
				cs.FailureMode,
				strconv.FormatBool(cs.RedundancyAtRisk),
				strings.Join(cs.FailedDependencies, ";"),
			})
		}
	}
	return writeCSV(headers, rows)
}
