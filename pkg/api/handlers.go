package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/adamsih300u/bastion-sub008/pkg/reports"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
	"github.com/adamsih300u/bastion-sub008/pkg/store"
)

const (
	defaultEventLimit = 50
	maxBodyBytes      = 1 << 20
)

func (s *Server) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	ns := s.service.Namespaces()
	if ns == nil {
		ns = []string{}
	}
	writeJSON(w, http.StatusOK, NamespacesResponse{Namespaces: ns})
}

func (s *Server) handleDesign(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")

	var req DesignRequest
	if !s.decode(w, r, &req) {
		return
	}

	r, unlock, ok := s.lock(w, r, namespace)
	if !ok {
		return
	}
	defer unlock()
	resp := s.service.DesignComponent(namespace, req.spec())

	payload := resp
	payload.TopologyJSON = ""
	s.record(r.Context(), store.EventTypeComponentDesigned, store.EventDimensions{
		Namespace:   namespace,
		ComponentID: req.ComponentID,
	}, payload)
	if s.leaseLost(w, r) {
		return
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")

	var req SimulateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.validate.Var(req.MonteCarloIterations, fmt.Sprintf("lte=%d", s.maxIterations)); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Details: []string{fmt.Sprintf("monte_carlo_iterations must be <= %d", s.maxIterations)},
		})
		return
	}

	r, unlock, ok := s.lock(w, r, namespace)
	if !ok {
		return
	}
	defer unlock()
	resp := s.service.SimulateFailure(r.Context(), namespace, req.request())

	evtType := store.EventTypeSimulationCompleted
	status := http.StatusOK
	if !resp.Success {
		evtType = store.EventTypeSimulationFailed
		status = http.StatusUnprocessableEntity
	}
	payload := resp
	payload.TopologyJSON = ""
	s.record(r.Context(), evtType, store.EventDimensions{
		Namespace:    namespace,
		SimulationID: resp.SimulationID,
	}, payload)
	if s.leaseLost(w, r) {
		return
	}

	writeJSON(w, status, resp)
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")

	r, unlock, ok := s.lock(w, r, namespace)
	if !ok {
		return
	}
	defer unlock()
	resp := s.service.GetTopology(namespace)

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")

	res, err := s.service.LatestResult(r.Context(), namespace)
	if err != nil {
		if errors.Is(err, simulation.ErrNoResult) {
			writeError(w, http.StatusNotFound, "no_result")
			return
		}
		s.logger.Error("failed_to_read_latest_result", "trace_id", getTraceID(r.Context()), "namespace", namespace, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_server_error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "event_log_disabled")
		return
	}

	q := r.URL.Query()
	limit := defaultEventLimit
	if l := q.Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}

	var (
		events []*store.Event
		err    error
	)
	namespace, evtType := q.Get("namespace"), q.Get("type")
	if namespace == "" && evtType == "" {
		events, err = s.store.ReadRecentEvents(r.Context(), limit)
	} else {
		filter := store.EventFilter{Namespace: namespace}
		if evtType != "" {
			filter.EventTypes = []store.EventType{store.EventType(evtType)}
		}
		events, err = s.store.QueryEvents(r.Context(), filter)
		events = newestFirst(events, limit)
	}
	if err != nil {
		s.logger.Error("failed_to_read_events", "trace_id", getTraceID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_server_error")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// newestFirst reverses ascending events and keeps at most limit of them.
func newestFirst(events []*store.Event, limit int) []*store.Event {
	out := make([]*store.Event, 0, min(len(events), limit))
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, events[i])
	}
	return out
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "event_log_disabled")
		return
	}

	q := r.URL.Query()
	reportType := reports.ReportType(q.Get("type"))
	if reportType == "" {
		writeError(w, http.StatusBadRequest, "missing_type")
		return
	}

	// Default time range: last 24h if not specified
	to := time.Now()
	if toStr := q.Get("to"); toStr != "" {
		var err error
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to")
			return
		}
	}
	from := to.Add(-24 * time.Hour)
	if fromStr := q.Get("from"); fromStr != "" {
		var err error
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from")
			return
		}
	}

	params := reports.ReportParams{
		Start:   from,
		End:     to,
		Filters: make(map[string]interface{}),
	}
	if ns := q.Get("namespace"); ns != "" {
		params.Filters["namespace"] = ns
	}
	if id := q.Get("component_id"); id != "" {
		params.Filters["component_id"] = id
	}

	gen, err := reports.NewReportGenerator(reportType, s.store)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_report_type")
		return
	}
	reader, err := gen.Generate(r.Context(), params)
	if err != nil {
		s.logger.Error("failed_to_generate_report", "trace_id", getTraceID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "report_generation_failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	filename := fmt.Sprintf("report_%s_%d.csv", reportType, time.Now().Unix())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("failed_to_stream_report", "trace_id", getTraceID(r.Context()), "error", err)
	}
}

// decode reads and validates a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return false
		}
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Details: details})
		return false
	}
	return true
}

// lock takes the namespace guard for the request, writing 409 when the
// namespace stays busy.
// The returned request carries a context that is cancelled if the lease is
// lost mid-call.
func (s *Server) lock(w http.ResponseWriter, r *http.Request, namespace string) (*http.Request, func(), bool) {
	holder := getTraceID(r.Context()) + "/" + uuid.NewString()
	held, unlock, err := s.guard.Lock(r.Context(), namespace, holder)
	if err != nil {
		if errors.Is(err, ErrNamespaceBusy) {
			writeError(w, http.StatusConflict, "namespace_busy")
			return nil, nil, false
		}
		s.logger.Error("namespace_lock_failed", "trace_id", getTraceID(r.Context()), "namespace", namespace, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_server_error")
		return nil, nil, false
	}
	return r.WithContext(held), unlock, true
}

// leaseLost writes 409 when the namespace lease was lost during the call.
func (s *Server) leaseLost(w http.ResponseWriter, r *http.Request) bool {
	if !errors.Is(context.Cause(r.Context()), store.ErrLeaseLost) {
		return false
	}
	writeError(w, http.StatusConflict, "namespace_lease_lost")
	return true
}

// record appends an event for a design or simulate call. Failures are
// logged, never surfaced to the caller.
func (s *Server) record(ctx context.Context, evtType store.EventType, dims store.EventDimensions, payload interface{}) {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed_to_marshal_event", "event_type", evtType, "error", err)
		return
	}
	// The event is written even when the call's lease was lost.
	ctx = context.WithoutCancel(ctx)
	traceID := getTraceID(ctx)
	now := time.Now().UTC()
	evt := &store.Event{
		EventID:       store.EventID(uuid.NewString()),
		EventType:     evtType,
		SchemaVersion: 1,
		TsEvent:       now,
		TsIngest:      now,
		Source: store.EventSource{
			OriginKind: "api",
			OriginID:   traceID,
			WriterID:   store.WriterID,
		},
		Dimensions:  dims,
		Correlation: store.EventCorrelation{CorrelationID: traceID},
		Payload:     data,
	}
	if err := s.store.AppendEvent(ctx, evt); err != nil {
		s.logger.Error("failed_to_append_event", "trace_id", traceID, "event_type", evtType, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, ErrorResponse{Error: code})
}
