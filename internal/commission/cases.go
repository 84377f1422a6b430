package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bank-melli/commission/pkg/docnum"
	"github.com/bank-melli/commission/pkg/models"
	"github.com/bank-melli/commission/pkg/outbox"
)

// CaseInput holds the fields of a new commission case.
type CaseInput struct {
	InsuredPersonID uuid.UUID
	CommissionLevel string
	Description     string
	MedicalHistory  string
}

// resolveCaseScope loads the insured person a case number derives from and
// returns the number format of its scope at the current instant.
func (s *Service) resolveCaseScope(ctx context.Context, personID uuid.UUID) (*models.InsuredPerson, docnum.Format, error) {
	if personID == uuid.Nil {
		return nil, docnum.Format{}, fmt.Errorf("%w: insured person id is required", docnum.ErrScopeResolution)
	}

	var person models.InsuredPerson
	if err := person.Get(s.db.WithContext(ctx), personID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, docnum.Format{}, fmt.Errorf("%w: insured person %s not found",
				docnum.ErrScopeResolution, personID)
		}
		return nil, docnum.Format{}, fmt.Errorf("error loading insured person %s: %w", personID, err)
	}

	f, err := s.caseFormat(&person)
	if err != nil {
		return nil, docnum.Format{}, err
	}
	return &person, f, nil
}

// caseFormat returns the case number format of the person's scope now.
func (s *Service) caseFormat(person *models.InsuredPerson) (docnum.Format, error) {
	f, err := s.schemes.Case.Format(s.now(), person.PersonnelCode)
	if err != nil {
		return docnum.Format{}, fmt.Errorf("insured person %s: %w", person.ID, err)
	}
	return f, nil
}

// NextCaseNumber returns the number the next case of the insured person
// would receive now. Nothing is reserved: a concurrent creation may take it.
func (s *Service) NextCaseNumber(ctx context.Context, insuredPersonID uuid.UUID) (string, error) {
	_, f, err := s.resolveCaseScope(ctx, insuredPersonID)
	if err != nil {
		return "", err
	}
	return s.casePreview.Next(ctx, f)
}

// CreateCase files a commission case for an insured person. The case, its
// creation timeline entry and its creation event are committed together with
// the issued case number, or not at all.
func (s *Service) CreateCase(ctx context.Context, in CaseInput) (*models.Case, error) {
	person, _, err := s.resolveCaseScope(ctx, in.InsuredPersonID)
	if err != nil {
		return nil, err
	}

	c := &models.Case{
		InsuredPersonID: person.ID,
		CommissionLevel: in.CommissionLevel,
		Description:     in.Description,
		MedicalHistory:  in.MedicalHistory,
	}
	if err := c.Validate(); err != nil {
		return nil, invalid(err)
	}

	scope := func() (docnum.Format, error) {
		return s.caseFormat(person)
	}
	_, err = s.cases.IssueScoped(ctx, scope, func(ctx context.Context, number string) error {
		c.ID = uuid.Nil
		c.CaseNumber = number

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := c.Create(tx); err != nil {
				return err
			}

			entry := &models.CaseTimeline{
				CaseID:      c.ID,
				Action:      models.TimelineActionCreated,
				Description: fmt.Sprintf("پرونده %s ثبت شد", number),
			}
			if err := tx.Create(entry).Error; err != nil {
				return docnum.Unrelated(fmt.Errorf("error creating timeline entry: %w", err))
			}
			c.Timeline = []models.CaseTimeline{*entry}

			_, err := outbox.Enqueue(tx, models.AggregateCase, c.ID, models.EventCommissionCaseCreated,
				map[string]interface{}{
					"caseNumber":      number,
					"insuredPersonId": person.ID.String(),
					"personnelCode":   person.PersonnelCode,
					"commissionLevel": c.CommissionLevel,
					"status":          c.Status,
				})
			return docnum.Unrelated(err)
		})
	})
	if err != nil {
		return nil, err
	}

	c.InsuredPerson = person
	s.logger.Info("case created",
		"case_number", c.CaseNumber,
		"case_id", c.ID,
		"insured_person_id", person.ID,
	)
	return c, nil
}

// GetCase returns a case with its insured person and timeline.
func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("case: %w", ErrNotFound)
	}

	var c models.Case
	if err := c.Get(s.db.WithContext(ctx), id); err != nil {
		return nil, notFound(err, "case", id)
	}
	return &c, nil
}
