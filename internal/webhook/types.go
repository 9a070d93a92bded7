package webhook

import (
	"time"

	"github.com/TimurManjosov/packgenie/internal/snapshot"
	"github.com/google/uuid"
)

// EventCatalogueUpdated is sent whenever the served catalogue changes.
const EventCatalogueUpdated = "catalogue.updated"

// Header names set on every delivery.
const (
	HeaderSignature = "X-Packgenie-Signature"
	HeaderEvent     = "X-Packgenie-Event"
	HeaderDelivery  = "X-Packgenie-Delivery"
)

// Event is the JSON body posted to each target.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Catalogue Catalogue `json:"catalogue"`
}

// Catalogue summarises the snapshot that triggered the event.
type Catalogue struct {
	ETag    string   `json:"etag"`
	Packs   int      `json:"packs"`
	Enabled int      `json:"enabled"`
	PackIDs []string `json:"packIds"`
}

// Target is one receiving endpoint.
type Target struct {
	URL        string
	Secret     string
	MaxRetries int
	Timeout    time.Duration
}

// NewCatalogueEvent describes snap as a catalogue.updated event.
func NewCatalogueEvent(snap *snapshot.Snapshot) Event {
	c := Catalogue{ETag: snap.ETag, PackIDs: make([]string, 0, len(snap.Packs))}
	for _, p := range snap.Packs {
		c.PackIDs = append(c.PackIDs, p.ID)
		if p.Enabled {
			c.Enabled++
		}
	}
	c.Packs = len(c.PackIDs)
	return Event{
		ID:        uuid.NewString(),
		Type:      EventCatalogueUpdated,
		Timestamp: time.Now().UTC(),
		Catalogue: c,
	}
}
