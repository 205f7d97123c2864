package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	// EventSessionEvicted tells other replicas to drop their cached orchestrator.
	EventSessionEvicted     EventType = "session.evicted"
	EventItineraryGenerated EventType = "itinerary.generated"
	EventVideoProcessing    EventType = "video.processing"
	EventVideoCompiled      EventType = "video.compiled"
	EventVideoFailed        EventType = "video.failed"
)

// Event is a lifecycle notification shared across API replicas and the compile worker.
type Event struct {
	Type        EventType `json:"type"`
	TenantID    uuid.UUID `json:"tenant_id"`
	SessionID   uuid.UUID `json:"session_id,omitempty"`
	ItineraryID uuid.UUID `json:"itinerary_id,omitempty"`
	// Origin identifies the publishing process so it can ignore its own echoes.
	Origin string         `json:"origin,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
	At     time.Time      `json:"at"`
}

func NewEvent(t EventType, tenantID uuid.UUID) Event {
	return Event{Type: t, TenantID: tenantID, At: time.Now().UTC()}
}
