package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventOutbox stores domain events written in the same transaction as the
// entity they describe. The outbox relay publishes pending rows to Kafka.
type EventOutbox struct {
	ID uint `gorm:"primaryKey" json:"id"`

	EventID uuid.UUID `gorm:"type:uuid;not null" json:"eventId"`

	// Aggregate identification. Events of one aggregate share a partition key.
	AggregateType string    `gorm:"type:varchar(50);not null" json:"aggregateType"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index:idx_event_outbox_aggregate_id" json:"aggregateId"`

	// Idempotency key: {event_type}:{event_id}
	IdempotentKey string `gorm:"type:varchar(128);not null;uniqueIndex" json:"idempotentKey"`

	EventType string `gorm:"type:varchar(50);not null" json:"eventType"`
	Version   string `gorm:"type:varchar(10);not null" json:"version"`

	Payload map[string]interface{} `gorm:"serializer:json;type:jsonb;not null" json:"payload"`

	// Outbox state
	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_event_outbox_status" json:"status"` // 'pending', 'published', 'failed'
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	PublishAttempts int        `gorm:"default:0" json:"publishAttempts"`
	LastError       string     `gorm:"type:text" json:"lastError,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name.
func (EventOutbox) TableName() string {
	return "event_outbox"
}

// EventVersion is the schema version stamped on every event.
const EventVersion = "1.0.0"

// Event type constants
const (
	EventCommissionCaseCreated    = "commission.case.created"
	EventSocialWorkCaseCreated    = "socialwork.case.created"
	EventSocialWorkAssessmentDone = "socialwork.assessment.done"
	EventSocialWorkReferralIssued = "socialwork.referral.issued"
)

// Aggregate type constants
const (
	AggregateCase           = "case"
	AggregateSocialWorkCase = "social_work_case"
)

// OutboxStatus constants
const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"
	OutboxStatusFailed    = "failed"
)

// GenerateIdempotentKey creates a unique key for an event.
// Format: {event_type}:{event_id}
func GenerateIdempotentKey(eventType string, eventID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", eventType, eventID.String())
}

// NewOutboxEvent creates a pending outbox entry for an aggregate.
func NewOutboxEvent(aggregateType string, aggregateID uuid.UUID, eventType string, payload map[string]interface{}) *EventOutbox {
	eventID := uuid.New()
	return &EventOutbox{
		EventID:       eventID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		IdempotentKey: GenerateIdempotentKey(eventType, eventID),
		EventType:     eventType,
		Version:       EventVersion,
		Payload:       payload,
		Status:        OutboxStatusPending,
	}
}

// BeforeCreate hook to ensure required fields.
func (o *EventOutbox) BeforeCreate(tx *gorm.DB) error {
	if o.EventID == uuid.Nil {
		o.EventID = uuid.New()
	}
	if o.AggregateID == uuid.Nil {
		return fmt.Errorf("aggregate_id is required")
	}
	if o.AggregateType == "" {
		return fmt.Errorf("aggregate_type is required")
	}
	if o.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if o.Payload == nil {
		return fmt.Errorf("payload is required")
	}

	if o.IdempotentKey == "" {
		o.IdempotentKey = GenerateIdempotentKey(o.EventType, o.EventID)
	}
	if o.Version == "" {
		o.Version = EventVersion
	}
	if o.Status == "" {
		o.Status = OutboxStatusPending
	}

	return nil
}

// FindPendingOutboxEntries retrieves pending outbox entries in creation order.
func FindPendingOutboxEntries(db *gorm.DB, limit int) ([]EventOutbox, error) {
	var entries []EventOutbox

	err := db.
		Where("status = ?", OutboxStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error

	return entries, err
}

// MarkAsPublished marks the outbox entry as successfully published.
func (o *EventOutbox) MarkAsPublished(db *gorm.DB) error {
	now := time.Now()
	o.Status = OutboxStatusPublished
	o.PublishedAt = &now

	return db.Model(o).Updates(map[string]interface{}{
		"status":       OutboxStatusPublished,
		"published_at": now,
		"updated_at":   now,
	}).Error
}

// MarkAsFailed marks the outbox entry as failed with error details.
func (o *EventOutbox) MarkAsFailed(db *gorm.DB, err error) error {
	o.PublishAttempts++
	o.Status = OutboxStatusFailed
	o.LastError = err.Error()

	return db.Model(o).Updates(map[string]interface{}{
		"status":           OutboxStatusFailed,
		"publish_attempts": o.PublishAttempts,
		"last_error":       err.Error(),
		"updated_at":       time.Now(),
	}).Error
}

// Retry resets the outbox entry status to pending.
func (o *EventOutbox) Retry(db *gorm.DB) error {
	o.Status = OutboxStatusPending
	o.LastError = ""

	return db.Model(o).Updates(map[string]interface{}{
		"status":     OutboxStatusPending,
		"last_error": "",
		"updated_at": time.Now(),
	}).Error
}

// DeleteOldPublishedEntries removes published entries older than olderThan.
func DeleteOldPublishedEntries(db *gorm.DB, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := db.
		Where("status = ? AND published_at < ?", OutboxStatusPublished, cutoff).
		Delete(&EventOutbox{})

	return result.RowsAffected, result.Error
}

// GetFailedOutboxEntries retrieves failed outbox entries for retry.
func GetFailedOutboxEntries(db *gorm.DB, limit int) ([]EventOutbox, error) {
	var entries []EventOutbox
	err := db.
		Where("status = ?", OutboxStatusFailed).
		Order("updated_at DESC").
		Limit(limit).
		Find(&entries).Error

	return entries, err
}

// CountOutboxByStatus returns the number of entries with the given status.
func CountOutboxByStatus(db *gorm.DB, status string) (int64, error) {
	var count int64
	err := db.Model(&EventOutbox{}).
		Where("status = ?", status).
		Count(&count).Error

	return count, err
}
