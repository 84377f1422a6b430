package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/bank-melli/commission/internal/commission"
)

// SocialWorkCaseRequest contains the fields allowed when opening a social
// work case.
type SocialWorkCaseRequest struct {
	InsuredPersonID uuid.UUID       `json:"insuredPersonId"`
	CaseType        string          `json:"caseType"`
	SocialWorker    string          `json:"socialWorker,omitempty"`
	MedicalCaseID   *uuid.UUID      `json:"medicalCaseId,omitempty"`
	RequestDetails  json.RawMessage `json:"requestDetails,omitempty"`
}

// AssessmentRequest carries the social worker's report.
type AssessmentRequest struct {
	Report string `json:"report"`
}

// ReferralLetterRequest contains the optional fields of a referral letter.
type ReferralLetterRequest struct {
	ReferredTo      string `json:"referredTo,omitempty"`
	AdditionalNotes string `json:"additionalNotes,omitempty"`
}

// CreateSocialWorkCaseHandler opens a social work case.
func CreateSocialWorkCaseHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SocialWorkCaseRequest
		if err := decodeRequest(r, &req); err != nil {
			http.Error(w, fmt.Sprintf("Bad request: %q", err), http.StatusBadRequest)
			return
		}

		c, err := srv.Service.CreateSocialWorkCase(r.Context(), commission.SocialWorkCaseInput{
			InsuredPersonID: req.InsuredPersonID,
			CaseType:        req.CaseType,
			SocialWorker:    req.SocialWorker,
			MedicalCaseID:   req.MedicalCaseID,
			RequestDetails:  req.RequestDetails,
		})
		if err != nil {
			respondError(srv, w, "Error creating social work case", err)
			return
		}

		respondJSON(srv, w, http.StatusCreated, c)
	}
}

// GetSocialWorkCaseHandler returns a social work case with its letters.
func GetSocialWorkCaseHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		c, err := srv.Service.GetSocialWorkCase(r.Context(), id)
		if err != nil {
			respondError(srv, w, "Error getting social work case", err)
			return
		}

		respondJSON(srv, w, http.StatusOK, c)
	}
}

// RecordAssessmentHandler records the assessment report of a social work
// case.
func RecordAssessmentHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var req AssessmentRequest
		if err := decodeRequest(r, &req); err != nil {
			http.Error(w, fmt.Sprintf("Bad request: %q", err), http.StatusBadRequest)
			return
		}

		c, err := srv.Service.RecordAssessment(r.Context(), id, req.Report)
		if err != nil {
			respondError(srv, w, "Error recording assessment", err)
			return
		}

		respondJSON(srv, w, http.StatusOK, c)
	}
}

// IssueReferralLetterHandler issues a referral letter for an assessed social
// work case.
func IssueReferralLetterHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// The body is optional.
		var req ReferralLetterRequest
		if err := decodeRequest(r, &req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, fmt.Sprintf("Bad request: %q", err), http.StatusBadRequest)
			return
		}

		letter, err := srv.Service.IssueReferralLetter(r.Context(), id, commission.ReferralInput{
			ReferredTo:      req.ReferredTo,
			AdditionalNotes: req.AdditionalNotes,
		})
		if err != nil {
			respondError(srv, w, "Error issuing referral letter", err)
			return
		}

		srv.Logger.Info("referral letter issued",
			"letter_number", letter.LetterNumber,
			"social_work_case_id", id,
		)
		respondJSON(srv, w, http.StatusCreated, letter)
	}
}
