package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"

	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/infrastructure/resilience"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

func TestEncodeEventAssignsULID(t *testing.T) {
	event, payload, err := encodeEvent(domain.ConsultationEvent{
		Category:       domain.CategoryRUC,
		Confidence:     0.9,
		ProcessingType: domain.ProcessingGeneral,
	}, newEventID, fixedNow)
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	if _, err := ulid.ParseStrict(event.ID); err != nil {
		t.Fatalf("expected ULID id, got %q: %v", event.ID, err)
	}
	if !event.OccurredAt.Equal(fixedNow()) {
		t.Fatalf("expected occurred_at to be stamped, got %v", event.OccurredAt)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if decoded["id"] != event.ID {
		t.Fatalf("payload id mismatch: %v", decoded["id"])
	}
	if decoded["processing_type"] != domain.ProcessingGeneral {
		t.Fatalf("unexpected processing_type: %v", decoded["processing_type"])
	}
}

func TestEncodeEventKeepsExistingIDAndClampsCategory(t *testing.T) {
	id := ulid.Make().String()
	event, _, err := encodeEvent(domain.ConsultationEvent{ID: id, Category: "Aduanas"}, func() string {
		t.Fatalf("id generator must not be called")
		return ""
	}, fixedNow)
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	if event.ID != id {
		t.Fatalf("expected id %s, got %s", id, event.ID)
	}
	if event.Category != domain.CategoryOtros {
		t.Fatalf("expected Otros, got %s", event.Category)
	}
}

func TestDecodeEventRoundTripsPublishedPayload(t *testing.T) {
	_, payload, err := encodeEvent(domain.ConsultationEvent{
		Category:      domain.CategoryClaveSOL,
		IsAIGenerated: false,
		Degraded:      true,
		LatencyMillis: 42,
	}, newEventID, fixedNow)
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}

	event, err := DecodeEvent(payload)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if event.Category != domain.CategoryClaveSOL || !event.Degraded || event.LatencyMillis != 42 {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDecodeEventRejectsBadPayloads(t *testing.T) {
	cases := map[string]string{
		"not json":     "ruc",
		"missing id":   `{"category":"RUC"}`,
		"bad category": fmt.Sprintf(`{"id":%q,"category":"Aduanas"}`, ulid.Make().String()),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(payload))
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"canceled", context.Canceled, false, false},
		{"no servers", fmt.Errorf("nats publish: %w", nats.ErrNoServers), true, true},
		{"closed", nats.ErrConnectionClosed, true, true},
		{"payload", nats.ErrMaxPayload, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyNATSError(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
				t.Fatalf("classifyNATSError(%v) = %+v", tc.err, got)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded(fmt.Errorf("nats publish: %w", nats.ErrDisconnected))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary, got %v", err)
	}
	if !errors.Is(err, nats.ErrDisconnected) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}

	plain := errors.New("bad subject")
	if got := wrapTemporaryIfNeeded(plain); got != plain {
		t.Fatalf("expected non-retryable error unchanged, got %v", got)
	}
}

func TestClassifyTreatsOpenCircuitAsRetryable(t *testing.T) {
	exec := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:      true,
		BreakerMinRequests:  1,
		BreakerFailureRatio: 0.1,
		BreakerOpenTimeout:  time.Minute,
	})
	failing := func(context.Context) (string, error) { return "", nats.ErrNoServers }
	_, _ = exec.Execute(context.Background(), "nats.publish", failing, classifyNATSError)

	_, err := exec.Execute(context.Background(), "nats.publish", failing, classifyNATSError)
	if !resilience.IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if !domain.IsKind(wrapTemporaryIfNeeded(err), domain.ErrTemporary) {
		t.Fatalf("expected open circuit to be temporary")
	}
}
