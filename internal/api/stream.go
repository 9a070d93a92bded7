package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/TimurManjosov/packgenie/internal/snapshot"
	"github.com/TimurManjosov/packgenie/internal/telemetry"
)

// heartbeatInterval keeps idle proxies from closing the stream.
var heartbeatInterval = 25 * time.Second

type streamEvent struct {
	ETag  string `json:"etag"`
	Packs int    `json:"packs"`
}

// handleStream pushes the catalogue ETag over server-sent events: one "init"
// event on connect, then an "update" event per snapshot change.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The server's WriteTimeout would otherwise end the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	updates, unsub := snapshot.Subscribe()
	defer unsub()

	telemetry.StreamClients.Inc()
	defer telemetry.StreamClients.Dec()

	send := func(event string) error {
		snap := snapshot.Load()
		data, _ := json.Marshal(streamEvent{ETag: snap.ETag, Packs: snap.Len()})
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := send("init"); err != nil {
		s.logger.Debug().Err(err).Msg("stream init failed")
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			if err := send("update"); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
