package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SocialWorkCase is a referral to the social work unit on behalf of an
// insured person, optionally linked to a medical case.
type SocialWorkCase struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// CaseNumber is "MC-SW-{year}-{serial}".
	CaseNumber string `gorm:"size:50;not null;uniqueIndex" json:"caseNumber"`

	CaseType string `gorm:"size:30;not null" json:"caseType"`
	Status   string `gorm:"size:30;not null;default:'DRAFT'" json:"status"`

	InsuredPersonID uuid.UUID      `gorm:"type:uuid;not null;index" json:"insuredPersonId"`
	InsuredPerson   *InsuredPerson `gorm:"foreignKey:InsuredPersonID" json:"insuredPerson,omitempty"`

	SocialWorker  string     `gorm:"size:100" json:"socialWorker,omitempty"`
	MedicalCaseID *uuid.UUID `gorm:"type:uuid" json:"medicalCaseId,omitempty"`

	RequestDetails   JSON       `gorm:"type:jsonb" json:"requestDetails,omitempty"`
	AssessmentReport string     `gorm:"type:text" json:"assessmentReport,omitempty"`
	AssessedAt       *time.Time `json:"assessedAt,omitempty"`
	ReferredAt       *time.Time `json:"referredAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	ClosedAt  *time.Time     `json:"closedAt,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ReferralLetters []ReferralLetter `gorm:"foreignKey:SocialWorkCaseID" json:"referralLetters,omitempty"`
}

// Social work case status values.
const (
	SocialWorkStatusDraft           = "DRAFT"
	SocialWorkStatusUnderAssessment = "UNDER_ASSESSMENT"
	SocialWorkStatusReferred        = "REFERRED"
	SocialWorkStatusClosed          = "CLOSED"
)

// Social work service types.
const (
	SocialWorkTypeInstallmentPayment = "INSTALLMENT_PAYMENT"
	SocialWorkTypeConsultation       = "CONSULTATION"
	SocialWorkTypeTransportation     = "TRANSPORTATION"
	SocialWorkTypeDisability         = "DISABILITY"
	SocialWorkTypeFinancialAid       = "FINANCIAL_AID"
	SocialWorkTypeLoan               = "LOAN"
	SocialWorkTypeDeathSupport       = "DEATH_SUPPORT"
	SocialWorkTypeMedicalEquipment   = "MEDICAL_EQUIPMENT"
	SocialWorkTypePatientVisit       = "PATIENT_VISIT"
)

// SocialWorkTypeLabels holds the Persian labels used in referral letters.
var SocialWorkTypeLabels = map[string]string{
	SocialWorkTypeInstallmentPayment: "تقسیط بدهی",
	SocialWorkTypeConsultation:       "مشاوره مددکاری",
	SocialWorkTypeTransportation:     "ایاب ذهاب",
	SocialWorkTypeDisability:         "معلولیت",
	SocialWorkTypeFinancialAid:       "کمک مالی و مساعده",
	SocialWorkTypeLoan:               "وام",
	SocialWorkTypeDeathSupport:       "کمک هزینه فوت",
	SocialWorkTypeMedicalEquipment:   "تجهیزات پزشکی",
	SocialWorkTypePatientVisit:       "عیادت از بیمه‌شدگان",
}

// TableName specifies the table name.
func (SocialWorkCase) TableName() string {
	return "social_work_cases"
}

// BeforeCreate assigns the primary key and initial status.
func (c *SocialWorkCase) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = SocialWorkStatusDraft
	}
	return nil
}

// Validate checks the fields supplied by the caller.
func (c *SocialWorkCase) Validate() error {
	types := make([]interface{}, 0, len(SocialWorkTypeLabels))
	for t := range SocialWorkTypeLabels {
		types = append(types, t)
	}

	return validation.ValidateStruct(c,
		validation.Field(&c.CaseType, validation.Required, validation.In(types...)),
	)
}

// Create inserts the social work case. The case number must already be
// assigned.
func (c *SocialWorkCase) Create(db *gorm.DB) error {
	if c.CaseNumber == "" {
		return fmt.Errorf("case number is required")
	}
	if c.InsuredPersonID == uuid.Nil {
		return fmt.Errorf("insured person is required")
	}

	return db.Omit("InsuredPerson", "ReferralLetters").Create(c).Error
}

// Get retrieves a social work case by ID with its insured person and letters.
func (c *SocialWorkCase) Get(db *gorm.DB, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("id is required")
	}

	return db.
		Preload("InsuredPerson").
		Preload("ReferralLetters", func(db *gorm.DB) *gorm.DB {
			return db.Order("generated_at ASC")
		}).
		Where("id = ?", id).
		First(c).
		Error
}

// RecordAssessment stores the social worker's assessment report.
func (c *SocialWorkCase) RecordAssessment(db *gorm.DB, report string, at time.Time) error {
	if err := validation.Validate(report, validation.Required); err != nil {
		return fmt.Errorf("assessment report: %w", err)
	}

	c.AssessmentReport = report
	c.AssessedAt = &at
	c.Status = SocialWorkStatusUnderAssessment

	return db.Model(c).Updates(map[string]interface{}{
		"assessment_report": report,
		"assessed_at":       at,
		"status":            SocialWorkStatusUnderAssessment,
	}).Error
}

// MarkReferred moves the case to the referred state.
func (c *SocialWorkCase) MarkReferred(db *gorm.DB, at time.Time) error {
	c.Status = SocialWorkStatusReferred
	c.ReferredAt = &at

	return db.Model(c).Updates(map[string]interface{}{
		"status":      SocialWorkStatusReferred,
		"referred_at": at,
	}).Error
}
