package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Case is a medical review case filed with the commission for an insured
// person.
type Case struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// CaseNumber is "{fiscalYear}-{personnelCode}-{serial}". Assigned once at
	// creation and never changed.
	CaseNumber string `gorm:"size:50;not null;uniqueIndex" json:"caseNumber"`

	InsuredPersonID uuid.UUID      `gorm:"type:uuid;not null;index" json:"insuredPersonId"`
	InsuredPerson   *InsuredPerson `gorm:"foreignKey:InsuredPersonID" json:"insuredPerson,omitempty"`

	Status          string `gorm:"size:30;not null;default:'PENDING_SECRETARIAT'" json:"status"`
	CommissionLevel string `gorm:"size:20;not null" json:"commissionLevel"`

	Description    string `gorm:"type:text" json:"description,omitempty"`
	MedicalHistory string `gorm:"type:text" json:"medicalHistory,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	ClosedAt  *time.Time     `json:"closedAt,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Timeline []CaseTimeline `gorm:"foreignKey:CaseID" json:"timeline,omitempty"`
}

// Case status values.
const (
	CaseStatusPendingSecretariat   = "PENDING_SECRETARIAT"
	CaseStatusAssignedToSpecialist = "ASSIGNED_TO_SPECIALIST"
	CaseStatusUnderReview          = "UNDER_REVIEW"
	CaseStatusPendingMeeting       = "PENDING_MEETING"
	CaseStatusMeetingScheduled     = "MEETING_SCHEDULED"
	CaseStatusPendingVerdict       = "PENDING_VERDICT"
	CaseStatusVerdictIssued        = "VERDICT_ISSUED"
	CaseStatusArchived             = "ARCHIVED"
	CaseStatusRejected             = "REJECTED"
)

// Commission level values.
const (
	CommissionLevelProvincial = "PROVINCIAL"
	CommissionLevelCentral    = "CENTRAL"
)

// TableName specifies the table name.
func (Case) TableName() string {
	return "cases"
}

// BeforeCreate assigns the primary key and initial status.
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CaseStatusPendingSecretariat
	}
	return nil
}

// Validate checks the fields supplied by the caller. CaseNumber is issued by
// the numbering service and is not checked here.
func (c *Case) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CommissionLevel, validation.Required, validation.In(
			CommissionLevelProvincial,
			CommissionLevelCentral,
		)),
		validation.Field(&c.Status, validation.In(
			"",
			CaseStatusPendingSecretariat,
			CaseStatusAssignedToSpecialist,
			CaseStatusUnderReview,
			CaseStatusPendingMeeting,
			CaseStatusMeetingScheduled,
			CaseStatusPendingVerdict,
			CaseStatusVerdictIssued,
			CaseStatusArchived,
			CaseStatusRejected,
		)),
	)
}

// Create inserts the case. The case number must already be assigned.
func (c *Case) Create(db *gorm.DB) error {
	if c.CaseNumber == "" {
		return fmt.Errorf("case number is required")
	}
	if c.InsuredPersonID == uuid.Nil {
		return fmt.Errorf("insured person is required")
	}

	return db.Omit("InsuredPerson", "Timeline").Create(c).Error
}

// Get retrieves a case by ID with its insured person and timeline.
func (c *Case) Get(db *gorm.DB, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("id is required")
	}

	return db.
		Preload("InsuredPerson").
		Preload("Timeline", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(c).
		Error
}

// GetByNumber retrieves a case by its case number.
func (c *Case) GetByNumber(db *gorm.DB, number string) error {
	if err := validation.Validate(number, validation.Required); err != nil {
		return err
	}

	return db.Where("case_number = ?", number).First(c).Error
}

// CaseTimeline records an event in the life of a case.
type CaseTimeline struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID      uuid.UUID `gorm:"type:uuid;not null;index" json:"caseId"`
	Action      string    `gorm:"size:100;not null" json:"action"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Timeline actions.
const (
	TimelineActionCreated = "CASE_CREATED"
)

// TableName specifies the table name.
func (CaseTimeline) TableName() string {
	return "case_timelines"
}

// BeforeCreate assigns the primary key.
func (t *CaseTimeline) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
