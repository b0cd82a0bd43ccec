package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupJSONStore(t *testing.T) *JSONStore {
	t.Helper()
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("new json store: %v", err)
	}
	return store
}

func TestJSONStoreSaveLoad(t *testing.T) {
	store := setupJSONStore(t)
	ctx := context.Background()
	next := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	if err := store.Save(ctx, Record{Name: "daily", NextReset: &next, Tasks: map[string]bool{"a": true, "b": false}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "daily")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.NextReset == nil || !got.NextReset.Equal(next) {
		t.Fatalf("unexpected next_reset: %v", got.NextReset)
	}
	if !got.Tasks["a"] || got.Tasks["b"] {
		t.Fatalf("unexpected tasks: %#v", got.Tasks)
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "daily.json" {
		t.Fatalf("expected only daily.json, got %v", entries)
	}
}

func TestJSONStoreNullNextReset(t *testing.T) {
	store := setupJSONStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, Record{Name: "oneoff", Tasks: map[string]bool{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "oneoff")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.NextReset != nil {
		t.Fatalf("expected nil next_reset, got %v", got.NextReset)
	}
	if got.Tasks == nil || len(got.Tasks) != 0 {
		t.Fatalf("expected empty task map, got %#v", got.Tasks)
	}
}

func TestJSONStoreLegacyResetOn(t *testing.T) {
	store := setupJSONStore(t)
	legacy := `{"name":"weekly","reset_on":"2024-01-08T00:00:00Z","tasks":{"x":true}}`
	if err := os.WriteFile(filepath.Join(store.Dir(), "weekly.json"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}
	got, err := store.Load(context.Background(), "weekly")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	if got.NextReset == nil || !got.NextReset.Equal(want) {
		t.Fatalf("expected legacy reset_on %s, got %v", want, got.NextReset)
	}
}

func TestJSONStoreErrors(t *testing.T) {
	store := setupJSONStore(t)
	ctx := context.Background()

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write broken file: %v", err)
	}
	if _, err := store.Load(ctx, "broken"); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(store.Dir(), "renamed.json"), []byte(`{"name":"other","tasks":{}}`), 0o644); err != nil {
		t.Fatalf("write mismatched file: %v", err)
	}
	if _, err := store.Load(ctx, "renamed"); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord for name mismatch, got %v", err)
	}

	if err := store.Save(ctx, Record{Name: "../escape", Tasks: map[string]bool{}}); err == nil {
		t.Fatal("expected error for path-like name")
	}
}

func TestJSONStoreRejectsInvalidUTF8Label(t *testing.T) {
	store := setupJSONStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, Record{Name: "cafe", Tasks: map[string]bool{"caf\xe9": true}}); err == nil {
		t.Fatal("expected error for label that is not valid UTF-8")
	}
	if _, err := store.Load(ctx, "cafe"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rejected record must not be written, got %v", err)
	}

	if err := store.Save(ctx, Record{Name: "cafe", Tasks: map[string]bool{"café": true}}); err != nil {
		t.Fatalf("save valid label: %v", err)
	}
	got, err := store.Load(ctx, "cafe")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Tasks["café"] || len(got.Tasks) != 1 {
		t.Fatalf("unexpected tasks after round trip: %v", got.Tasks)
	}
}

func TestJSONStoreListSkipsTempFiles(t *testing.T) {
	store := setupJSONStore(t)
	ctx := context.Background()
	for _, name := range []string{"b", "a"} {
		if err := store.Save(ctx, Record{Name: name, Tasks: map[string]bool{"t": false}}); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(store.Dir(), ".a.123.tmp"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Name != "a" || all[1].Name != "b" {
		t.Fatalf("unexpected list: %#v", all)
	}
}
