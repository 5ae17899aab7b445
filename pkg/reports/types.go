package reports

import (
	"context"
	"io"
	"time"

	"github.com/adamsih300u/bastion-sub008/pkg/store"
)

type ReportType string

const (
	ReportTypeSimulations ReportType = "simulations"
	ReportTypeComponents  ReportType = "components"
)

type ReportParams struct {
	Start   time.Time
	End     time.Time
	Filters map[string]interface{}
}

// ReportStore defines the interface for data access required by reports.
type ReportStore interface {
	QueryEvents(ctx context.Context, filter store.EventFilter) ([]*store.Event, error)
}

type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}
