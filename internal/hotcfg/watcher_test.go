package hotcfg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redmaple/streamsync/internal/testutil"
)

type fileConfig struct {
	Value string
}

func loadValue(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return nil, errors.New("empty config")
	}
	return &fileConfig{Value: v}, nil
}

func waitForValue(t *testing.T, s *Store[fileConfig], want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.Snapshot().Value == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("snapshot = %q, want %q", s.Snapshot().Value, want)
}

func TestSnapshotReturnsSeed(t *testing.T) {
	s := NewStore("/nowhere", &fileConfig{Value: "seed"}, loadValue)
	if s.Snapshot().Value != "seed" {
		t.Errorf("snapshot = %+v", s.Snapshot())
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}

	initial, err := loadValue(path)
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, initial, loadValue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, testutil.DiscardLogger()) }()

	// Give the watcher a moment to register before the first write.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForValue(t, s, "two")

	// Rename-over-replace, the way config tools rewrite files.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte("three"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	waitForValue(t, s, "three")

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}

func TestWatchKeepsPreviousOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte("good"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, &fileConfig{Value: "good"}, loadValue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, testutil.DiscardLogger()) }()

	time.Sleep(100 * time.Millisecond)

	// An unloadable file must not clobber the working snapshot.
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	if got := s.Snapshot().Value; got != "good" {
		t.Errorf("snapshot = %q, want previous config kept", got)
	}

	// A subsequent valid write recovers.
	if err := os.WriteFile(path, []byte("fixed"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForValue(t, s, "fixed")

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(path, []byte("stable"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, &fileConfig{Value: "stable"}, loadValue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx, testutil.DiscardLogger()) //nolint:errcheck

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("noise"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)
	if got := s.Snapshot().Value; got != "stable" {
		t.Errorf("snapshot = %q, sibling file must not trigger reload", got)
	}
}
