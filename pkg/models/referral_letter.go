package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultReferredTo is the unit a referral letter is addressed to when the
// social worker does not name one (accounting).
const DefaultReferredTo = "حسابداری"

// ReferralLetter is a letter issued for a social work case, addressed to the
// unit that acts on the referral.
type ReferralLetter struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// LetterNumber is "REF-{year}-{serial}".
	LetterNumber string `gorm:"size:50;not null;uniqueIndex" json:"letterNumber"`

	SocialWorkCaseID uuid.UUID `gorm:"type:uuid;not null;index" json:"socialWorkCaseId"`

	Content    string `gorm:"type:text;not null" json:"content"`
	PDFPath    string `gorm:"size:500" json:"pdfPath,omitempty"`
	ReferredTo string `gorm:"size:100;not null" json:"referredTo"`

	GeneratedAt time.Time      `gorm:"autoCreateTime" json:"generatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name.
func (ReferralLetter) TableName() string {
	return "referral_letters"
}

// BeforeCreate assigns the primary key and default addressee.
func (l *ReferralLetter) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.ReferredTo == "" {
		l.ReferredTo = DefaultReferredTo
	}
	return nil
}

// Create inserts the letter. The letter number must already be assigned.
func (l *ReferralLetter) Create(db *gorm.DB) error {
	if l.LetterNumber == "" {
		return fmt.Errorf("letter number is required")
	}
	if l.SocialWorkCaseID == uuid.Nil {
		return fmt.Errorf("social work case is required")
	}

	return db.Create(l).Error
}
