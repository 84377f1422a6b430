package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bank-melli/commission/internal/commission"
	"github.com/bank-melli/commission/pkg/fiscal"
)

// InsuredPersonRequest contains the fields allowed when registering an
// insured person.
type InsuredPersonRequest struct {
	NationalID       string `json:"nationalId"`
	PersonnelCode    string `json:"personnelCode"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	BirthDate        string `json:"birthDate,omitempty"`
	FamilyRelation   string `json:"familyRelation,omitempty"`
	InsuranceNumber  string `json:"insuranceNumber,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Address          string `json:"address,omitempty"`
	EmploymentStatus string `json:"employmentStatus,omitempty"`
	OfficeLocation   string `json:"officeLocation,omitempty"`
	City             string `json:"city,omitempty"`
}

// NextCaseNumberResponse is the preview of the next case number.
type NextCaseNumberResponse struct {
	CaseNumber string `json:"caseNumber"`
}

// CreateInsuredPersonHandler registers an insured person.
func CreateInsuredPersonHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InsuredPersonRequest
		if err := decodeRequest(r, &req); err != nil {
			http.Error(w, fmt.Sprintf("Bad request: %q", err), http.StatusBadRequest)
			return
		}

		// Birth dates arrive in whatever layout the clerk's form produced,
		// Jalali or Gregorian.
		var birthDate time.Time
		if req.BirthDate != "" {
			var err error
			if birthDate, err = fiscal.ParseDate(req.BirthDate); err != nil {
				http.Error(w, fmt.Sprintf("Bad request: %q", err), http.StatusBadRequest)
				return
			}
		}

		p, err := srv.Service.CreateInsuredPerson(r.Context(), commission.InsuredPersonInput{
			NationalID:       req.NationalID,
			PersonnelCode:    req.PersonnelCode,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			BirthDate:        birthDate,
			FamilyRelation:   req.FamilyRelation,
			InsuranceNumber:  req.InsuranceNumber,
			Phone:            req.Phone,
			Address:          req.Address,
			EmploymentStatus: req.EmploymentStatus,
			OfficeLocation:   req.OfficeLocation,
			City:             req.City,
		})
		if err != nil {
			respondError(srv, w, "Error registering insured person", err)
			return
		}

		respondJSON(srv, w, http.StatusCreated, p)
	}
}

// GetInsuredPersonHandler returns an insured person.
func GetInsuredPersonHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, err := srv.Service.GetInsuredPerson(r.Context(), id)
		if err != nil {
			respondError(srv, w, "Error getting insured person", err)
			return
		}

		respondJSON(srv, w, http.StatusOK, p)
	}
}

// NextCaseNumberHandler previews the number the person's next case would
// receive. The number is not reserved.
func NextCaseNumberHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		number, err := srv.Service.NextCaseNumber(r.Context(), id)
		if err != nil {
			respondError(srv, w, "Error generating case number", err)
			return
		}

		respondJSON(srv, w, http.StatusOK, NextCaseNumberResponse{CaseNumber: number})
	}
}
