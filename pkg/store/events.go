package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultRecentLimit = 100

const eventColumns = `event_id, event_type, schema_version, ts_event, ts_ingest,
	origin_kind, origin_id, writer_id,
	namespace, component_id, simulation_id,
	correlation_id, causation_id, payload`

// AppendEvent writes one event to the log. TsIngest defaults to now.
func (s *Store) AppendEvent(ctx context.Context, evt *Event) error {
	if evt.TsIngest.IsZero() {
		evt.TsIngest = time.Now().UTC()
	}
	if evt.TsEvent.IsZero() {
		evt.TsEvent = evt.TsIngest
	}
	payload := evt.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(evt.EventID), string(evt.EventType), evt.SchemaVersion,
		evt.TsEvent.UTC(), evt.TsIngest.UTC(),
		evt.Source.OriginKind, evt.Source.OriginID, evt.Source.WriterID,
		evt.Dimensions.Namespace, evt.Dimensions.ComponentID, evt.Dimensions.SimulationID,
		evt.Correlation.CorrelationID, evt.Correlation.CausationID,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append event %s: %w", evt.EventID, err)
	}
	return nil
}

// GetEvent returns the event with id, or nil if it does not exist.
func (s *Store) GetEvent(ctx context.Context, id EventID) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE event_id = ?`, string(id))
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return evt, nil
}

// ReadRecentEvents returns the newest events first.
func (s *Store) ReadRecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		ORDER BY ts_ingest DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent events: %w", err)
	}
	return collectEvents(rows)
}

// QueryEvents returns events matching filter in ingestion order.
func (s *Store) QueryEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if !filter.From.IsZero() {
		where = append(where, "ts_ingest >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "ts_ingest < ?")
		args = append(args, filter.To.UTC())
	}
	if filter.Namespace != "" {
		where = append(where, "namespace = ?")
		args = append(args, filter.Namespace)
	}
	if len(filter.EventTypes) > 0 {
		marks := make([]string, len(filter.EventTypes))
		for i, t := range filter.EventTypes {
			marks[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "event_type IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts_ingest ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return collectEvents(rows)
}

// ReadCandidateEvents returns up to limit of the oldest events ingested
// before cutoff, oldest first.
func (s *Store) ReadCandidateEvents(ctx context.Context, cutoff time.Time, limit int) ([]*Event, error) {
	return s.QueryEvents(ctx, EventFilter{To: cutoff, Limit: limit})
}

// DeleteEvents removes events by id.
func (s *Store) DeleteEvents(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM events WHERE event_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to delete event %s: %w", id, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (*Event, error) {
	var (
		evt                            Event
		id, typ, payload               string
		originKind, originID, writerID sql.NullString
		correlationID, causationID     sql.NullString
	)
	err := row.Scan(
		&id, &typ, &evt.SchemaVersion, &evt.TsEvent, &evt.TsIngest,
		&originKind, &originID, &writerID,
		&evt.Dimensions.Namespace, &evt.Dimensions.ComponentID, &evt.Dimensions.SimulationID,
		&correlationID, &causationID, &payload,
	)
	if err != nil {
		return nil, err
	}
	evt.EventID = EventID(id)
	evt.EventType = EventType(typ)
	evt.Source = EventSource{OriginKind: originKind.String, OriginID: originID.String, WriterID: writerID.String}
	evt.Correlation = EventCorrelation{CorrelationID: correlationID.String, CausationID: causationID.String}
	evt.Payload = []byte(payload)
	return &evt, nil
}

func collectEvents(rows *sql.Rows) ([]*Event, error) {
	defer rows.Close()
	events := []*Event{}
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}
