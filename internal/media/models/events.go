package models

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/romariotrain/visa-docs/internal/media/domain"
)

const (
	EventMediaUploaded = "MediaUploaded"
	EventMediaDeleted  = "MediaDeleted"
)

type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// MediaLifecycle is emitted once a document is stored and once it is removed.
type MediaLifecycle struct {
	eventID    uuid.UUID
	eventType  string
	mediaID    int64
	category   domain.Category
	path       string
	occurredAt time.Time
}

func NewMediaUploaded(m *Media) *MediaLifecycle {
	return newLifecycle(EventMediaUploaded, m)
}

func NewMediaDeleted(m *Media) *MediaLifecycle {
	return newLifecycle(EventMediaDeleted, m)
}

func newLifecycle(eventType string, m *Media) *MediaLifecycle {
	return &MediaLifecycle{
		eventID:    uuid.New(),
		eventType:  eventType,
		mediaID:    m.ID,
		category:   m.Category,
		path:       m.PathValue(),
		occurredAt: time.Now().UTC(),
	}
}

func (e *MediaLifecycle) EventID() uuid.UUID    { return e.eventID }
func (e *MediaLifecycle) EventType() string     { return e.eventType }
func (e *MediaLifecycle) AggregateID() string   { return strconv.FormatInt(e.mediaID, 10) }
func (e *MediaLifecycle) OccurredAt() time.Time { return e.occurredAt }

func (e *MediaLifecycle) MediaID() int64            { return e.mediaID }
func (e *MediaLifecycle) Category() domain.Category { return e.category }
func (e *MediaLifecycle) Path() string              { return e.path }

func (e *MediaLifecycle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID    uuid.UUID       `json:"event_id"`
		EventType  string          `json:"event_type"`
		MediaID    int64           `json:"media_id"`
		Category   domain.Category `json:"category"`
		Path       string          `json:"path,omitempty"`
		OccurredAt time.Time       `json:"occurred_at"`
	}{
		EventID:    e.eventID,
		EventType:  e.eventType,
		MediaID:    e.mediaID,
		Category:   e.category,
		Path:       e.path,
		OccurredAt: e.occurredAt,
	})
}
