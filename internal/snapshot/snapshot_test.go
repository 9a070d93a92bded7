package snapshot

import (
	"testing"
	"time"

	"github.com/TimurManjosov/packgenie/internal/rules"
	"github.com/TimurManjosov/packgenie/internal/store"
)

func fileWith(ids ...string) store.PackFile {
	file := store.NewPackFile()
	for _, id := range ids {
		file.Packs = append(file.Packs, store.Pack{ID: id, Type: "boiler", Title: id, Enabled: true})
	}
	return file
}

func build(t *testing.T, file store.PackFile) *Snapshot {
	t.Helper()
	snap, err := BuildFromFile(file)
	if err != nil {
		t.Fatalf("BuildFromFile failed: %v", err)
	}
	return snap
}

func TestBuildFromFile_Empty(t *testing.T) {
	snap := build(t, store.PackFile{})

	if snap.Len() != 0 {
		t.Errorf("Expected 0 packs, got %d", snap.Len())
	}
	if snap.Packs == nil {
		t.Error("Expected empty, non-nil packs")
	}
	if snap.ETag == "" {
		t.Error("Expected non-empty ETag")
	}
}

func TestBuildFromFile_KeepsOrderAndIndex(t *testing.T) {
	snap := build(t, fileWith("c", "a", "b"))

	if snap.Len() != 3 {
		t.Fatalf("Expected 3 packs, got %d", snap.Len())
	}
	for i, want := range []string{"c", "a", "b"} {
		if snap.Packs[i].ID != want {
			t.Errorf("Packs[%d] = %s, want %s", i, snap.Packs[i].ID, want)
		}
	}
	pack, ok := snap.Get("a")
	if !ok || pack.ID != "a" {
		t.Errorf("Get(a) = %+v, %v", pack, ok)
	}
	if _, ok := snap.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}
}

func TestBuildFromFile_ETags(t *testing.T) {
	snap1 := build(t, fileWith("a", "b"))
	snap2 := build(t, fileWith("a", "b"))
	if snap1.ETag != snap2.ETag {
		t.Errorf("Expected deterministic ETags, got %s and %s", snap1.ETag, snap2.ETag)
	}

	reordered := build(t, fileWith("b", "a"))
	if reordered.ETag == snap1.ETag {
		t.Error("Expected different ETags for a different order")
	}

	changed := fileWith("a", "b")
	changed.Packs[0].Enabled = false
	if build(t, changed).ETag == snap1.ETag {
		t.Error("Expected different ETags for a changed pack")
	}
}

func TestBuildFromFile_UnencodableValue(t *testing.T) {
	file := fileWith("bad")
	file.Packs[0].Rules.IncludeIf = []rules.Condition{
		{Field: "site.flow", Operator: rules.OpEquals, Value: make(chan int)},
	}

	snap, err := BuildFromFile(file)
	if err == nil {
		t.Fatalf("Expected an encode error, got snapshot %s", snap.ETag)
	}
	if snap != nil {
		t.Error("Expected nil snapshot on error")
	}
}

func TestLoadAndUpdate(t *testing.T) {
	initial := Load()
	if initial == nil {
		t.Fatal("Load returned nil")
	}

	newSnap := build(t, fileWith("loaded"))
	Update(newSnap)

	loaded := Load()
	if loaded.Len() != 1 {
		t.Errorf("Expected 1 pack after update, got %d", loaded.Len())
	}
	if loaded.ETag != newSnap.ETag {
		t.Errorf("Expected ETag %s, got %s", newSnap.ETag, loaded.ETag)
	}
}

func TestSubscribeReceivesUpdate(t *testing.T) {
	updates, unsub := Subscribe()
	defer unsub()

	snap := build(t, fileWith("subscribed", "x"))
	go func() {
		time.Sleep(10 * time.Millisecond)
		Update(snap)
	}()

	select {
	case etag := <-updates:
		if etag != snap.ETag {
			t.Errorf("Expected ETag %s, got %s", snap.ETag, etag)
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for update")
	}
}

func TestUpdateSameETagDoesNotNotify(t *testing.T) {
	snap := build(t, fileWith("same", "etag", "twice"))
	Update(snap)

	updates, unsub := Subscribe()
	defer unsub()

	Update(build(t, fileWith("same", "etag", "twice")))

	select {
	case etag := <-updates:
		t.Errorf("unexpected notification %s", etag)
	case <-time.After(50 * time.Millisecond):
	}
}
