package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/TimurManjosov/packgenie/internal/snapshot"
	"github.com/TimurManjosov/packgenie/internal/telemetry"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// queueSize is the buffer size for the event queue
	queueSize = 100

	// maxResponseBodySize limits how much of a failed response body is logged
	maxResponseBodySize = 1024

	defaultTimeout = 10 * time.Second
)

// Dispatcher posts catalogue events to a fixed set of targets.
type Dispatcher struct {
	targets []Target
	client  *http.Client
	logger  zerolog.Logger
	queue   chan Event
	done    chan struct{}
	closed  int32

	// newBackOff builds the retry schedule for one delivery.
	newBackOff func() backoff.BackOff
}

// NewDispatcher creates a dispatcher for targets. Call Start before Dispatch.
func NewDispatcher(targets []Target, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		targets:    targets,
		client:     &http.Client{},
		logger:     logger.With().Str("component", "webhook").Logger(),
		queue:      make(chan Event, queueSize),
		done:       make(chan struct{}),
		newBackOff: exponentialBackOff,
	}
}

// exponentialBackOff waits 1s, 2s, 4s... between attempts.
func exponentialBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return b
}

// Start begins processing events from the queue.
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close drains the queue and waits for in-flight deliveries.
// It is safe to call more than once.
func (d *Dispatcher) Close() error {
	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return nil
	}
	close(d.queue)
	<-d.done
	return nil
}

// Dispatch queues an event without blocking. Events are dropped when the
// queue is full.
func (d *Dispatcher) Dispatch(event Event) {
	select {
	case d.queue <- event:
		d.logger.Debug().Str("event", event.Type).Str("etag", event.Catalogue.ETag).Int("queued", len(d.queue)).Msg("event queued")
	default:
		telemetry.WebhookDeliveries.WithLabelValues("dropped").Inc()
		d.logger.Error().Str("event", event.Type).Str("etag", event.Catalogue.ETag).Msg("queue full, dropping event")
	}
}

// Run forwards every snapshot change to the targets until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	updates, unsub := snapshot.Subscribe()
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			d.Dispatch(NewCatalogueEvent(snapshot.Load()))
		}
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for event := range d.queue {
		payload, err := json.Marshal(event)
		if err != nil {
			d.logger.Error().Err(err).Str("event", event.Type).Msg("marshal event")
			continue
		}
		for _, target := range d.targets {
			d.deliverWithRetry(context.Background(), target, event, payload)
		}
	}
}

// deliverWithRetry posts payload until a 2xx response or the retries run out.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, target Target, event Event, payload []byte) bool {
	signature := ComputeHMAC(payload, target.Secret)
	deliveryID := uuid.NewString()
	attempts := target.MaxRetries + 1
	log := d.logger.With().Str("url", target.URL).Str("delivery_id", deliveryID).Logger()

	attempt := 0
	start := time.Now()
	status, err := backoff.Retry(ctx, func() (int, error) {
		attempt++
		return d.post(ctx, target, event.Type, deliveryID, signature, payload)
	},
		backoff.WithBackOff(d.newBackOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Int("attempts", attempts).Dur("retry_in", wait).Msg("delivery failed")
		}),
	)
	if err != nil {
		telemetry.WebhookDeliveries.WithLabelValues("failed").Inc()
		log.Error().Err(err).Int("attempts", attempt).Dur("elapsed", time.Since(start)).Msg("delivery failed permanently")
		return false
	}

	telemetry.WebhookDeliveries.WithLabelValues("ok").Inc()
	log.Info().Int("status", status).Int("attempt", attempt).Dur("elapsed", time.Since(start)).Msg("delivery succeeded")
	return true
}

func (d *Dispatcher) post(ctx context.Context, target Target, eventType, deliveryID, signature string, payload []byte) (int, error) {
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderDelivery, deliveryID)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		return resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
