package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/adamsih300u/bastion-sub008/pkg/blob"
	"github.com/adamsih300u/bastion-sub008/pkg/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func appendAt(t *testing.T, st *store.Store, ts time.Time, ns string) {
	t.Helper()
	evt := &store.Event{
		EventID:       store.EventID(uuid.NewString()),
		EventType:     store.EventTypeSimulationCompleted,
		SchemaVersion: 1,
		TsEvent:       ts,
		TsIngest:      ts,
		Source: store.EventSource{
			OriginKind: "test",
			OriginID:   "test-origin",
			WriterID:   store.WriterID,
		},
		Dimensions: store.EventDimensions{Namespace: ns, SimulationID: uuid.NewString()},
		Payload:    json.RawMessage(`{"success":true}`),
	}
	if err := st.AppendEvent(context.Background(), evt); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}
}

func setup(t *testing.T) (*store.Store, *blob.LocalBlobStore) {
	t.Helper()
	tmpDir := t.TempDir()
	st, err := store.NewStore(filepath.Join(tmpDir, "faultsim.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, blob.NewLocalBlobStore(filepath.Join(tmpDir, "blobs"))
}

func TestWorker_ArchiveBatch(t *testing.T) {
	st, blobs := setup(t)
	ctx := context.Background()

	now := time.Now().UTC()
	retention := time.Hour
	oldTime := now.Add(-2 * retention).Truncate(time.Second)
	newTime := now.Add(-30 * time.Minute)

	for i := 0; i < 5; i++ {
		appendAt(t, st, oldTime, "grid")
	}
	for i := 0; i < 5; i++ {
		appendAt(t, st, newTime, "grid")
	}

	w := NewWorker(st, blobs, Config{Retention: retention, BatchSize: 10}, quietLogger())
	n, key, err := w.ArchiveBatch(ctx)
	if err != nil {
		t.Fatalf("ArchiveBatch failed: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 archived events, got %d", n)
	}
	wantPrefix := oldTime.Format("events/2006/01/02/")
	if !strings.HasPrefix(key, wantPrefix) || !strings.HasSuffix(key, ".jsonl.gz") {
		t.Errorf("unexpected key %s", key)
	}

	remaining, err := st.QueryEvents(ctx, store.EventFilter{})
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(remaining) != 5 {
		t.Errorf("expected 5 events remaining, got %d", len(remaining))
	}
	for _, evt := range remaining {
		if evt.TsIngest.Before(newTime.Add(-time.Minute)) {
			t.Errorf("found old event that should have been archived: %v", evt.EventID)
		}
	}

	archived, err := ReadBatch(ctx, blobs, key)
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}
	if len(archived) != 5 {
		t.Fatalf("expected 5 archived events, got %d", len(archived))
	}
	for _, evt := range archived {
		if !evt.TsIngest.Equal(oldTime) {
			t.Errorf("archived event has wrong TsIngest: %v", evt.TsIngest)
		}
		if evt.Dimensions.Namespace != "grid" {
			t.Errorf("archived event lost its namespace: %+v", evt.Dimensions)
		}
	}
}

func TestWorker_Drain(t *testing.T) {
	st, blobs := setup(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	for i := 0; i < 7; i++ {
		appendAt(t, st, old.Add(time.Duration(i)*time.Second), "grid")
	}

	w := NewWorker(st, blobs, Config{Retention: time.Hour, BatchSize: 3}, quietLogger())
	n, err := w.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7 archived events, got %d", n)
	}

	keys, err := blobs.List(ctx, "events")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("expected 3 batches, got %d", len(keys))
	}
}

func TestWorker_NothingToArchive(t *testing.T) {
	st, blobs := setup(t)
	appendAt(t, st, time.Now().UTC(), "grid")

	w := NewWorker(st, blobs, Config{Retention: time.Hour}, quietLogger())
	n, key, err := w.ArchiveBatch(context.Background())
	if err != nil || n != 0 || key != "" {
		t.Errorf("expected no-op, got n=%d key=%q err=%v", n, key, err)
	}
}

type failingBlobs struct{ blob.BlobStore }

func (failingBlobs) Put(context.Context, string, io.Reader) error {
	return errors.New("disk full")
}

func TestWorker_UploadFailureKeepsEvents(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	appendAt(t, st, time.Now().UTC().Add(-48*time.Hour), "grid")

	w := NewWorker(st, failingBlobs{}, Config{Retention: time.Hour}, quietLogger())
	if _, _, err := w.ArchiveBatch(ctx); err == nil {
		t.Fatal("expected upload error")
	}

	remaining, _ := st.QueryEvents(ctx, store.EventFilter{})
	if len(remaining) != 1 {
		t.Errorf("expected event kept after failed upload, got %d", len(remaining))
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	st, blobs := setup(t)
	appendAt(t, st, time.Now().UTC().Add(-48*time.Hour), "grid")

	w := NewWorker(st, blobs, Config{Retention: time.Hour, CheckInterval: 10 * time.Millisecond}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		remaining, _ := st.QueryEvents(context.Background(), store.EventFilter{})
		if len(remaining) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker did not archive in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
