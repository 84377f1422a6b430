// Package outbox writes domain events to the event_outbox table inside the
// caller's transaction and relays pending events to Kafka.
package outbox

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bank-melli/commission/pkg/models"
)

// Enqueue records an event for aggregateID in tx. It becomes visible to the
// relay only if tx commits.
func Enqueue(tx *gorm.DB, aggregateType string, aggregateID uuid.UUID, eventType string, payload map[string]interface{}) (*models.EventOutbox, error) {
	entry := models.NewOutboxEvent(aggregateType, aggregateID, eventType, payload)
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("error enqueueing %s event: %w", eventType, err)
	}
	return entry, nil
}

// Event is the message published for an outbox entry.
type Event struct {
	ID            uint                   `json:"id"`
	EventID       string                 `json:"eventId"`
	AggregateType string                 `json:"aggregateType"`
	AggregateID   string                 `json:"aggregateId"`
	EventType     string                 `json:"eventType"`
	Version       string                 `json:"version"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
}

// NewEvent builds the published message for entry.
func NewEvent(entry *models.EventOutbox) Event {
	return Event{
		ID:            entry.ID,
		EventID:       entry.EventID.String(),
		AggregateType: entry.AggregateType,
		AggregateID:   entry.AggregateID.String(),
		EventType:     entry.EventType,
		Version:       entry.Version,
		Payload:       entry.Payload,
		Timestamp:     entry.CreatedAt,
	}
}

// Stats contains statistics about the outbox state.
type Stats struct {
	Pending   int64 `json:"pending"`
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
}

// GetStats counts outbox entries by status.
func GetStats(db *gorm.DB) (Stats, error) {
	var stats Stats

	for status, dst := range map[string]*int64{
		models.OutboxStatusPending:   &stats.Pending,
		models.OutboxStatusPublished: &stats.Published,
		models.OutboxStatusFailed:    &stats.Failed,
	} {
		n, err := models.CountOutboxByStatus(db, status)
		if err != nil {
			return stats, fmt.Errorf("error counting %s outbox entries: %w", status, err)
		}
		*dst = n
	}

	return stats, nil
}
