package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFileStore_SeedsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "packs.json")

	store, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	defer store.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected seeded file: %v", err)
	}
	var file PackFile
	if err := json.Unmarshal(raw, &file); err != nil {
		t.Fatalf("seeded file is not JSON: %v", err)
	}
	if file.Meta.SchemaVersion != "1.0.0" || file.Meta.Currency != "GBP" {
		t.Errorf("unexpected meta: %+v", file.Meta)
	}
	if file.Packs == nil || len(file.Packs) != 0 {
		t.Errorf("expected empty packs array, got %v", file.Packs)
	}
}

func TestFileStore_PersistsMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	ctx := context.Background()

	store, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := store.UpsertPack(ctx, samplePack("a")); err != nil {
		t.Fatalf("UpsertPack failed: %v", err)
	}
	if _, err := store.ClonePack(ctx, "a"); err != nil {
		t.Fatalf("ClonePack failed: %v", err)
	}
	if err := store.DeletePack(ctx, "a"); err != nil {
		t.Fatalf("DeletePack failed: %v", err)
	}

	reopened, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	packs, _ := reopened.ListPacks(ctx)
	if got := packIDs(packs); !equalIDs(got, []string{"a_copy"}) {
		t.Errorf("Expected [a_copy] on disk, got %v", got)
	}
}

func TestFileStore_FailedMutationDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	store, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	before, _ := os.ReadFile(path)

	if _, err := store.ClonePack(context.Background(), "missing"); !errors.Is(err, ErrPackNotFound) {
		t.Fatalf("Expected ErrPackNotFound, got %v", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("file changed after a failed mutation")
	}
}

func TestFileStore_FailedSaveLeavesCatalogueUnchanged(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, "packs.json")
	ctx := context.Background()

	store, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := store.UpsertPack(ctx, samplePack("kept")); err != nil {
		t.Fatalf("UpsertPack failed: %v", err)
	}

	// Replace the directory with a plain file so every save fails.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := store.UpsertPack(ctx, samplePack("p1")); err == nil {
		t.Fatal("Expected UpsertPack to fail")
	}
	if _, err := store.GetPack(ctx, "p1"); !errors.Is(err, ErrPackNotFound) {
		t.Errorf("Expected ErrPackNotFound after failed save, got %v", err)
	}
	if err := store.DeletePack(ctx, "kept"); err == nil {
		t.Fatal("Expected DeletePack to fail")
	}
	if _, err := store.ClonePack(ctx, "kept"); err == nil {
		t.Fatal("Expected ClonePack to fail")
	}
	packs, _ := store.ListPacks(ctx)
	if got := packIDs(packs); !equalIDs(got, []string{"kept"}) {
		t.Errorf("Expected [kept] in memory, got %v", got)
	}
}

func TestFileStore_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path, zerolog.Nop())
	if !errors.Is(err, ErrInvalidPackFile) {
		t.Fatalf("Expected ErrInvalidPackFile, got %v", err)
	}
}

func TestFileStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	ctx := context.Background()
	store, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	external := PackFile{Meta: Meta{SchemaVersion: "1.0.0", Currency: "GBP"}, Packs: []Pack{samplePack("edited")}}
	raw, _ := json.Marshal(external)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := store.Reload(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if _, err := store.GetPack(ctx, "edited"); err != nil {
		t.Errorf("Expected reloaded pack, got %v", err)
	}
}

func TestFileStore_WatchReloadsExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	store, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 8)
	go func() {
		_ = store.Watch(ctx, func() { reloaded <- struct{}{} })
	}()
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	external := PackFile{Packs: []Pack{samplePack("watched")}}
	raw, _ := json.Marshal(external)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case <-reloaded:
			if _, err := store.GetPack(context.Background(), "watched"); err == nil {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}
