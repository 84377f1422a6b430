package commission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bank-melli/commission/pkg/docnum"
	"github.com/bank-melli/commission/pkg/models"
	"github.com/bank-melli/commission/pkg/outbox"
	"github.com/bank-melli/commission/pkg/textnorm"
)

// SocialWorkCaseInput holds the fields of a new social work case.
type SocialWorkCaseInput struct {
	InsuredPersonID uuid.UUID
	CaseType        string
	SocialWorker    string
	MedicalCaseID   *uuid.UUID
	RequestDetails  json.RawMessage
}

// ReferralInput holds the optional fields of a referral letter.
type ReferralInput struct {
	// ReferredTo defaults to models.DefaultReferredTo.
	ReferredTo      string
	AdditionalNotes string
}

// NextSocialWorkCaseNumber returns the number the next social work case
// would receive now. Nothing is reserved.
func (s *Service) NextSocialWorkCaseNumber(ctx context.Context) (string, error) {
	f, err := s.schemes.SocialWorkCase.Format(s.now())
	if err != nil {
		return "", err
	}
	return s.socialWorkPreview.Next(ctx, f)
}

// NextReferralLetterNumber returns the number the next referral letter would
// receive now. Nothing is reserved.
func (s *Service) NextReferralLetterNumber(ctx context.Context) (string, error) {
	f, err := s.schemes.ReferralLetter.Format(s.now())
	if err != nil {
		return "", err
	}
	return s.referralPreview.Next(ctx, f)
}

// CreateSocialWorkCase opens a social work case. Its number and creation
// event are committed with the row.
func (s *Service) CreateSocialWorkCase(ctx context.Context, in SocialWorkCaseInput) (*models.SocialWorkCase, error) {
	person, err := s.GetInsuredPerson(ctx, in.InsuredPersonID)
	if err != nil {
		return nil, err
	}
	if in.MedicalCaseID != nil {
		if _, err := s.GetCase(ctx, *in.MedicalCaseID); err != nil {
			return nil, err
		}
	}

	swc := &models.SocialWorkCase{
		CaseType:        in.CaseType,
		InsuredPersonID: person.ID,
		SocialWorker:    textnorm.Normalize(in.SocialWorker),
		MedicalCaseID:   in.MedicalCaseID,
		RequestDetails:  models.JSON(in.RequestDetails),
	}
	if err := swc.Validate(); err != nil {
		return nil, invalid(err)
	}
	if len(in.RequestDetails) > 0 && !json.Valid(in.RequestDetails) {
		return nil, invalid(fmt.Errorf("request details are not valid JSON"))
	}

	scope := func() (docnum.Format, error) {
		return s.schemes.SocialWorkCase.Format(s.now())
	}
	_, err = s.socialWork.IssueScoped(ctx, scope, func(ctx context.Context, number string) error {
		swc.ID = uuid.Nil
		swc.CaseNumber = number

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := swc.Create(tx); err != nil {
				return err
			}

			_, err := outbox.Enqueue(tx, models.AggregateSocialWorkCase, swc.ID, models.EventSocialWorkCaseCreated,
				map[string]interface{}{
					"caseNumber":      number,
					"caseType":        swc.CaseType,
					"insuredPersonId": person.ID.String(),
					"status":          swc.Status,
				})
			return docnum.Unrelated(err)
		})
	})
	if err != nil {
		return nil, err
	}

	swc.InsuredPerson = person
	s.logger.Info("social work case created",
		"case_number", swc.CaseNumber,
		"case_id", swc.ID,
		"case_type", swc.CaseType,
	)
	return swc, nil
}

// GetSocialWorkCase returns a social work case with its insured person and
// referral letters.
func (s *Service) GetSocialWorkCase(ctx context.Context, id uuid.UUID) (*models.SocialWorkCase, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("social work case: %w", ErrNotFound)
	}

	var swc models.SocialWorkCase
	if err := swc.Get(s.db.WithContext(ctx), id); err != nil {
		return nil, notFound(err, "social work case", id)
	}
	return &swc, nil
}

// RecordAssessment stores the social worker's assessment of a draft or
// assessed case.
func (s *Service) RecordAssessment(ctx context.Context, id uuid.UUID, report string) (*models.SocialWorkCase, error) {
	swc, err := s.GetSocialWorkCase(ctx, id)
	if err != nil {
		return nil, err
	}

	switch swc.Status {
	case models.SocialWorkStatusDraft, models.SocialWorkStatusUnderAssessment:
	default:
		return nil, fmt.Errorf("%w: case %s is %s", ErrInvalidState, swc.CaseNumber, swc.Status)
	}

	report = textnorm.Normalize(report)
	if report == "" {
		return nil, invalid(fmt.Errorf("assessment report is required"))
	}

	at := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := swc.RecordAssessment(tx, report, at); err != nil {
			return err
		}

		_, err := outbox.Enqueue(tx, models.AggregateSocialWorkCase, swc.ID, models.EventSocialWorkAssessmentDone,
			map[string]interface{}{
				"caseNumber": swc.CaseNumber,
				"assessedAt": at.UTC().Format(time.RFC3339),
			})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error recording assessment: %w", err)
	}

	s.logger.Info("assessment recorded", "case_number", swc.CaseNumber)
	return swc, nil
}

// IssueReferralLetter issues a numbered referral letter for an assessed
// social work case and moves the case to the referred state. The letter,
// the transition and the event commit together.
func (s *Service) IssueReferralLetter(ctx context.Context, id uuid.UUID, in ReferralInput) (*models.ReferralLetter, error) {
	swc, err := s.GetSocialWorkCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if swc.AssessmentReport == "" {
		return nil, fmt.Errorf("case %s: %w", swc.CaseNumber, ErrAssessmentRequired)
	}
	if swc.Status == models.SocialWorkStatusClosed {
		return nil, fmt.Errorf("%w: case %s is closed", ErrInvalidState, swc.CaseNumber)
	}

	referredTo := textnorm.Normalize(in.ReferredTo)
	if referredTo == "" {
		referredTo = models.DefaultReferredTo
	}

	letter := &models.ReferralLetter{
		SocialWorkCaseID: swc.ID,
		ReferredTo:       referredTo,
	}

	// The letter is dated at the instant its number's scope was resolved.
	var at time.Time
	scope := func() (docnum.Format, error) {
		at = s.now()
		return s.schemes.ReferralLetter.Format(at)
	}
	_, err = s.referrals.IssueScoped(ctx, scope, func(ctx context.Context, number string) error {
		content, err := renderLetter(letterData{
			LetterNumber: number,
			CaseNumber:   swc.CaseNumber,
			Date:         at,
			Person:       swc.InsuredPerson,
			CaseType:     swc.CaseType,
			Assessment:   swc.AssessmentReport,
			Notes:        textnorm.Normalize(in.AdditionalNotes),
			ReferredTo:   referredTo,
		})
		if err != nil {
			return err
		}

		letter.ID = uuid.Nil
		letter.LetterNumber = number
		letter.Content = content

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := letter.Create(tx); err != nil {
				return err
			}
			if err := swc.MarkReferred(tx, at); err != nil {
				return docnum.Unrelated(fmt.Errorf("error updating case status: %w", err))
			}

			_, err := outbox.Enqueue(tx, models.AggregateSocialWorkCase, swc.ID, models.EventSocialWorkReferralIssued,
				map[string]interface{}{
					"caseNumber":   swc.CaseNumber,
					"letterNumber": number,
					"referredTo":   referredTo,
				})
			return docnum.Unrelated(err)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("referral letter issued",
		"letter_number", letter.LetterNumber,
		"case_number", swc.CaseNumber,
		"referred_to", referredTo,
	)
	return letter, nil
}
