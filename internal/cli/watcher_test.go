package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEventType_String(t *testing.T) {
	tests := []struct {
		event EventType
		want  string
	}{
		{EventCreated, "created"},
		{EventModified, "modified"},
		{EventDeleted, "deleted"},
		{EventRenamed, "renamed"},
		{EventType(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.event, got, tt.want)
		}
	}
}

func TestConfigWatcher_DebouncesMatchingChanges(t *testing.T) {
	dir := t.TempDir()

	var (
		mu      sync.Mutex
		batches [][]FileEvent
	)
	fired := make(chan struct{}, 10)

	w, err := NewConfigWatcher(dir, 50*time.Millisecond, func(path string) bool {
		return strings.HasSuffix(path, ".yaml")
	}, func(events []FileEvent) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("NewConfigWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(dir, "orders.yaml"), []byte("service_name: orders\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reload after writing a configuration file")
	}

	// No second batch for the same burst.
	select {
	case <-fired:
		t.Fatal("changes were not coalesced")
	case <-time.After(200 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	for _, ev := range batches[0] {
		if ev.Name != "orders.yaml" {
			t.Errorf("unexpected event for %q", ev.Name)
		}
	}
}

func TestConfigWatcher_MissingDirectory(t *testing.T) {
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "missing"), 0, nil, nil)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
