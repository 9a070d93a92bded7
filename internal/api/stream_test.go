package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TimurManjosov/packgenie/internal/snapshot"
	"github.com/TimurManjosov/packgenie/internal/testutil"
)

type sseEvent struct {
	Event string
	ETag  string
	Packs int
}

// readEvents parses server-sent events until the body closes. Comment lines
// (heartbeats) are skipped.
func readEvents(t *testing.T, resp *http.Response) <-chan sseEvent {
	t.Helper()
	events := make(chan sseEvent, 8)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		var name, data string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			case line == "" && name != "":
				var payload struct {
					ETag  string `json:"etag"`
					Packs int    `json:"packs"`
				}
				_ = json.Unmarshal([]byte(data), &payload)
				events <- sseEvent{Event: name, ETag: payload.ETag, Packs: payload.Packs}
				name, data = "", ""
			}
		}
	}()
	return events
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("stream closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for stream event")
	}
	return sseEvent{}
}

func openStream(t *testing.T, ts *httptest.Server) (*http.Response, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/packs/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		cancel()
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		resp.Body.Close()
	})
	return resp, cancel
}

func TestStream_InitThenUpdate(t *testing.T) {
	_, h := seeded(t, combiExclusion())
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, _ := openStream(t, ts)
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}

	events := readEvents(t, resp)
	first := nextEvent(t, events)
	if first.Event != "init" || first.ETag != snapshot.Load().ETag || first.Packs != 1 {
		t.Fatalf("init = %+v, want etag %s and 1 pack", first, snapshot.Load().ETag)
	}

	body, _ := json.Marshal(testutil.NewPack("magnetic-filter", nil, nil))
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/packs", strings.NewReader(string(body)))
	req.Header.Set("Authorization", "Bearer "+adminKey)
	req.Header.Set("Content-Type", "application/json")
	upsert, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	upsert.Body.Close()
	if upsert.StatusCode != http.StatusCreated {
		t.Fatalf("upsert status = %d", upsert.StatusCode)
	}

	update := nextEvent(t, events)
	if update.Event != "update" || update.Packs != 2 {
		t.Fatalf("update = %+v, want 2 packs", update)
	}
	if update.ETag == first.ETag {
		t.Error("update carries the old etag")
	}
}

func TestStream_ClientDisconnectUnsubscribes(t *testing.T) {
	_, h := seeded(t)
	ts := httptest.NewServer(h)
	defer ts.Close()

	before := snapshot.Subscribers()
	resp, cancel := openStream(t, ts)
	nextEvent(t, readEvents(t, resp))
	if snapshot.Subscribers() != before+1 {
		t.Fatalf("subscribers = %d, want %d", snapshot.Subscribers(), before+1)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for snapshot.Subscribers() != before {
		if time.Now().After(deadline) {
			t.Fatal("handler did not unsubscribe after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
