// Package archive moves aged events out of the event log into blob storage.
package archive

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adamsih300u/bastion-sub008/pkg/blob"
	"github.com/adamsih300u/bastion-sub008/pkg/store"
)

const (
	DefaultRetention     = 7 * 24 * time.Hour
	DefaultBatchSize     = 1000
	DefaultCheckInterval = time.Hour
)

// EventSource is the slice of the event store the worker drains.
type EventSource interface {
	ReadCandidateEvents(ctx context.Context, cutoff time.Time, limit int) ([]*store.Event, error)
	DeleteEvents(ctx context.Context, ids []string) error
}

// Config holds configuration for the Worker.
type Config struct {
	Retention     time.Duration `json:"retention"`
	BatchSize     int           `json:"batch_size"`
	CheckInterval time.Duration `json:"check_interval"`
}

func (c Config) withDefaults() Config {
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	return c
}

// Worker archives events older than the retention window as gzipped JSON
// lines and then deletes them from the event log.
type Worker struct {
	events EventSource
	blobs  blob.BlobStore
	config Config
	logger *slog.Logger
	now    func() time.Time
}

func NewWorker(events EventSource, blobs blob.BlobStore, config Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		events: events,
		blobs:  blobs,
		config: config.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// Run archives on every tick until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.Drain(ctx)
			if err != nil {
				w.logger.Error("archive_failed", "error", err, "archived", n)
				continue
			}
			if n > 0 {
				w.logger.Info("archive_completed", "archived", n)
			}
		}
	}
}

// Drain archives batches until fewer than a full batch remain.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, _, err := w.ArchiveBatch(ctx)
		total += n
		if err != nil || n < w.config.BatchSize {
			return total, err
		}
	}
}

// ArchiveBatch archives one batch and returns the number of events moved
// and the blob key they were written to.
func (w *Worker) ArchiveBatch(ctx context.Context) (int, string, error) {
	cutoff := w.now().UTC().Add(-w.config.Retention)
	events, err := w.events.ReadCandidateEvents(ctx, cutoff, w.config.BatchSize)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read candidate events: %w", err)
	}
	if len(events) == 0 {
		return 0, "", nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, evt := range events {
		if err := enc.Encode(evt); err != nil {
			gz.Close()
			return 0, "", fmt.Errorf("failed to encode event %s: %w", evt.EventID, err)
		}
	}
	if err := gz.Close(); err != nil {
		return 0, "", fmt.Errorf("failed to close gzip writer: %w", err)
	}

	key := batchKey(events[0].TsIngest, events[len(events)-1].TsIngest)
	if err := w.blobs.Put(ctx, key, &buf); err != nil {
		return 0, "", fmt.Errorf("failed to upload archive: %w", err)
	}

	ids := make([]string, len(events))
	for i, evt := range events {
		ids[i] = string(evt.EventID)
	}
	if err := w.events.DeleteEvents(ctx, ids); err != nil {
		return 0, key, fmt.Errorf("failed to delete archived events: %w", err)
	}

	w.logger.Debug("archive_batch_written", "key", key, "events", len(events))
	return len(events), key, nil
}

// batchKey is events/YYYY/MM/DD/<first>_<last>_<uuid>.jsonl.gz, dated by
// the first event.
func batchKey(first, last time.Time) string {
	first = first.UTC()
	return fmt.Sprintf("events/%04d/%02d/%02d/%d_%d_%s.jsonl.gz",
		first.Year(), first.Month(), first.Day(),
		first.Unix(), last.UTC().Unix(),
		uuid.NewString(),
	)
}

// ReadBatch decodes an archived batch.
func ReadBatch(ctx context.Context, blobs blob.BlobStore, key string) ([]*store.Event, error) {
	rc, err := blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	gz, err := gzip.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", key, err)
	}
	defer gz.Close()

	var events []*store.Event
	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt store.Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, fmt.Errorf("failed to decode archived event: %w", err)
		}
		events = append(events, &evt)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", key, err)
	}
	return events, nil
}
