package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InsuredPerson is a person covered by the insurance fund. All members of a
// family share the personnel code of the main insured.
type InsuredPerson struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// NationalID is the 10-digit national identification number.
	NationalID string `gorm:"size:10;not null;uniqueIndex" json:"nationalId"`

	// PersonnelCode scopes case numbers together with the fiscal year.
	PersonnelCode string `gorm:"size:50;not null;index" json:"personnelCode"`

	FirstName      string    `gorm:"size:100;not null" json:"firstName"`
	LastName       string    `gorm:"size:100;not null" json:"lastName"`
	BirthDate      time.Time `json:"birthDate"`
	FamilyRelation string    `gorm:"size:20;not null;default:'SELF'" json:"familyRelation"`

	InsuranceNumber  string `gorm:"size:50" json:"insuranceNumber,omitempty"`
	Phone            string `gorm:"size:20" json:"phone,omitempty"`
	Address          string `gorm:"size:200" json:"address,omitempty"`
	EmploymentStatus string `gorm:"size:50" json:"employmentStatus,omitempty"`
	OfficeLocation   string `gorm:"size:200" json:"officeLocation,omitempty"`
	City             string `gorm:"size:100" json:"city,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Family relation values.
const (
	FamilyRelationSelf   = "SELF"
	FamilyRelationSpouse = "SPOUSE"
	FamilyRelationChild  = "CHILD"
	FamilyRelationParent = "PARENT"
)

// TableName specifies the table name.
func (InsuredPerson) TableName() string {
	return "insured_persons"
}

// BeforeCreate assigns the primary key and default relation.
func (p *InsuredPerson) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.FamilyRelation == "" {
		p.FamilyRelation = FamilyRelationSelf
	}
	return nil
}

// Validate checks the fields required to register a person.
func (p *InsuredPerson) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.NationalID, validation.Required, validation.Length(10, 10), is.Digit),
		validation.Field(&p.PersonnelCode, validation.Required, validation.Length(1, 50)),
		validation.Field(&p.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.FamilyRelation, validation.In(
			"",
			FamilyRelationSelf,
			FamilyRelationSpouse,
			FamilyRelationChild,
			FamilyRelationParent,
		)),
	)
}

// Create inserts the insured person.
func (p *InsuredPerson) Create(db *gorm.DB) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	return db.Create(p).Error
}

// Get retrieves an insured person by ID.
func (p *InsuredPerson) Get(db *gorm.DB, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("id is required")
	}

	return db.Where("id = ?", id).First(p).Error
}

// FullName returns the first and last name.
func (p *InsuredPerson) FullName() string {
	return p.FirstName + " " + p.LastName
}
