package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
	"github.com/adamsih300u/bastion-sub008/pkg/store"
)

var simulationEventTypes = []store.EventType{
	store.EventTypeSimulationCompleted,
	store.EventTypeSimulationFailed,
}

// simulationRecord pairs a logged simulation with the event that carried it.
type simulationRecord struct {
	event  *store.Event
	result simulation.SimulateResponse
}

func loadSimulations(ctx context.Context, s ReportStore, params ReportParams) ([]simulationRecord, error) {
	filter := store.EventFilter{
		From:       params.Start,
		To:         params.End,
		EventTypes: simulationEventTypes,
	}
	if ns, ok := params.Filters["namespace"].(string); ok {
		filter.Namespace = ns
	}

	events, err := s.QueryEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	records := make([]simulationRecord, 0, len(events))
	for _, evt := range events {
		var res simulation.SimulateResponse
		if err := json.Unmarshal(evt.Payload, &res); err != nil {
			return nil, fmt.Errorf("failed to decode simulation event %s: %w", evt.EventID, err)
		}
		records = append(records, simulationRecord{event: evt, result: res})
	}
	return records, nil
}

func writeCSV(headers []string, rows [][]string) (io.Reader, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv writer: %w", err)
	}
	return buf, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
