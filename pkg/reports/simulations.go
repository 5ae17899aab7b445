package reports

import (
	"context"
	"io"
	"strconv"
	"strings"
)

// SimulationReport lists one row per logged simulation.
type SimulationReport struct {
	store ReportStore
}

func NewSimulationReport(s ReportStore) *SimulationReport {
	return &SimulationReport{store: s}
}

func (r *SimulationReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	records, err := loadSimulations(ctx, r.store, params)
	if err != nil {
		return nil, err
	}

	headers := []string{
		"timestamp", "namespace", "simulation_id", "simulation_type", "success",
		"total_components", "operational", "degraded", "failed",
		"system_health_score", "redundancy_groups_at_risk", "error",
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		m := rec.result.HealthMetrics
		rows = append(rows, []string{
			formatTime(rec.event.TsEvent),
			rec.event.Dimensions.Namespace,
			rec.event.Dimensions.SimulationID,
			rec.result.SimulationType,
			strconv.FormatBool(rec.result.Success),
			strconv.Itoa(m.TotalComponents),
			strconv.Itoa(m.OperationalComponents),
			strconv.Itoa(m.DegradedComponents),
			strconv.Itoa(m.FailedComponents),
			formatFloat(m.SystemHealthScore),
			strings.Join(m.RedundancyGroupsAtRisk, ";"),
			rec.result.Error,
		})
	}
	return writeCSV(headers, rows)
}
