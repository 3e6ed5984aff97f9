package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

func newEventID() string {
	return ulid.Make().String()
}

// encodeEvent stamps missing identity fields and serializes the event.
func encodeEvent(event domain.ConsultationEvent, newID func() string, now func() time.Time) (domain.ConsultationEvent, []byte, error) {
	if event.ID == "" {
		event.ID = newID()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now().UTC()
	}
	if !event.Category.Valid() {
		event.Category = domain.CategoryOtros
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return event, nil, fmt.Errorf("encode consultation event: %w", err)
	}
	return event, payload, nil
}

// DecodeEvent parses a published consultation event and rejects payloads
// without a valid ULID or a closed category.
func DecodeEvent(data []byte) (domain.ConsultationEvent, error) {
	var event domain.ConsultationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.ConsultationEvent{}, domain.WrapError(domain.ErrInvalidInput, "decode consultation event", err)
	}
	if _, err := ulid.ParseStrict(event.ID); err != nil {
		return domain.ConsultationEvent{}, domain.WrapError(domain.ErrInvalidInput, "decode consultation event", fmt.Errorf("event id %q: %w", event.ID, err))
	}
	if !event.Category.Valid() {
		return domain.ConsultationEvent{}, domain.WrapError(domain.ErrInvalidInput, "decode consultation event", fmt.Errorf("unknown category %q", event.Category))
	}
	return event, nil
}
