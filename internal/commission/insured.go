package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bank-melli/commission/pkg/docnum"
	"github.com/bank-melli/commission/pkg/models"
	"github.com/bank-melli/commission/pkg/textnorm"
)

// InsuredPersonInput holds the fields of a new insured person.
type InsuredPersonInput struct {
	NationalID       string
	PersonnelCode    string
	FirstName        string
	LastName         string
	BirthDate        time.Time
	FamilyRelation   string
	InsuranceNumber  string
	Phone            string
	Address          string
	EmploymentStatus string
	OfficeLocation   string
	City             string
}

// CreateInsuredPerson registers an insured person. Names and codes are
// normalized so that Arabic and Persian spellings of the same value match.
func (s *Service) CreateInsuredPerson(ctx context.Context, in InsuredPersonInput) (*models.InsuredPerson, error) {
	p := &models.InsuredPerson{
		NationalID:       textnorm.Code(in.NationalID),
		PersonnelCode:    textnorm.Code(in.PersonnelCode),
		FirstName:        textnorm.Normalize(in.FirstName),
		LastName:         textnorm.Normalize(in.LastName),
		BirthDate:        in.BirthDate,
		FamilyRelation:   in.FamilyRelation,
		InsuranceNumber:  textnorm.Code(in.InsuranceNumber),
		Phone:            textnorm.Code(in.Phone),
		Address:          textnorm.Normalize(in.Address),
		EmploymentStatus: in.EmploymentStatus,
		OfficeLocation:   textnorm.Normalize(in.OfficeLocation),
		City:             textnorm.Normalize(in.City),
	}
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}

	if err := p.Create(s.db.WithContext(ctx)); err != nil {
		if docnum.IsUniqueViolation(err) {
			return nil, invalid(fmt.Errorf("national id %s is already registered", p.NationalID))
		}
		return nil, fmt.Errorf("error creating insured person: %w", err)
	}

	s.logger.Info("insured person registered", "id", p.ID, "personnel_code", p.PersonnelCode)
	return p, nil
}

// GetInsuredPerson returns the insured person with the given id.
func (s *Service) GetInsuredPerson(ctx context.Context, id uuid.UUID) (*models.InsuredPerson, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("insured person: %w", ErrNotFound)
	}

	var p models.InsuredPerson
	if err := p.Get(s.db.WithContext(ctx), id); err != nil {
		return nil, notFound(err, "insured person", id)
	}
	return &p, nil
}
