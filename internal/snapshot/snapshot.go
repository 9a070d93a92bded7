// Package snapshot holds the read-optimised catalogue served to clients.
// The current snapshot is swapped atomically; readers never block writers.
package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/cespare/xxhash/v2"
)

// Snapshot is an immutable view of the catalogue. Callers must not modify
// the packs it holds.
type Snapshot struct {
	ETag      string       `json:"etag"`
	Meta      store.Meta   `json:"meta"`
	Packs     []store.Pack `json:"packs"`
	UpdatedAt time.Time    `json:"updatedAt"`

	index map[string]int
}

// Get returns the pack with id, if present.
func (s *Snapshot) Get(id string) (store.Pack, bool) {
	i, ok := s.index[id]
	if !ok {
		return store.Pack{}, false
	}
	return s.Packs[i], true
}

// Len returns the number of packs.
func (s *Snapshot) Len() int {
	return len(s.Packs)
}

var current atomic.Pointer[Snapshot]

// Load returns the current snapshot, or an empty one before the first Update.
func Load() *Snapshot {
	if s := current.Load(); s != nil {
		return s
	}
	return empty
}

var empty = mustBuild(store.NewPackFile())

func mustBuild(file store.PackFile) *Snapshot {
	s, err := BuildFromFile(file)
	if err != nil {
		panic(err)
	}
	return s
}

// BuildFromFile builds a snapshot whose ETag is the xxhash of the
// catalogue's JSON encoding. Identical catalogues give identical ETags.
// A catalogue that cannot be encoded (for example a condition value built in
// code with an unsupported type) is an error.
func BuildFromFile(file store.PackFile) (*Snapshot, error) {
	packs := file.Packs
	if packs == nil {
		packs = []store.Pack{}
	}
	index := make(map[string]int, len(packs))
	for i, p := range packs {
		index[p.ID] = i
	}

	blob, err := json.Marshal(store.PackFile{Meta: file.Meta, Packs: packs})
	if err != nil {
		return nil, fmt.Errorf("encode catalogue: %w", err)
	}
	etag := `W/"` + strconv.FormatUint(xxhash.Sum64(blob), 16) + `"`

	return &Snapshot{
		ETag:      etag,
		Meta:      file.Meta,
		Packs:     packs,
		UpdatedAt: time.Now().UTC(),
		index:     index,
	}, nil
}

// Update installs s as the current snapshot and notifies subscribers.
// Subscribers are not notified when the ETag is unchanged.
func Update(s *Snapshot) {
	prev := current.Swap(s)
	if prev != nil && prev.ETag == s.ETag {
		return
	}
	publishUpdate(s.ETag)
}
