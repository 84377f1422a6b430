package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/bank-melli/commission/internal/commission"
)

// CaseRequest contains the fields allowed when filing a case.
type CaseRequest struct {
	InsuredPersonID uuid.UUID `json:"insuredPersonId"`
	CommissionLevel string    `json:"commissionLevel"`
	Description     string    `json:"description,omitempty"`
	MedicalHistory  string    `json:"medicalHistory,omitempty"`
}

// CreateCaseHandler files a commission case and issues its number.
func CreateCaseHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CaseRequest
		if err := decodeRequest(r, &req); err != nil {
			http.Error(w, fmt.Sprintf("Bad request: %q", err), http.StatusBadRequest)
			return
		}

		c, err := srv.Service.CreateCase(r.Context(), commission.CaseInput{
			InsuredPersonID: req.InsuredPersonID,
			CommissionLevel: req.CommissionLevel,
			Description:     req.Description,
			MedicalHistory:  req.MedicalHistory,
		})
		if err != nil {
			respondError(srv, w, "Error creating case", err)
			return
		}

		srv.Logger.Info("case created", "case_number", c.CaseNumber, "id", c.ID)
		respondJSON(srv, w, http.StatusCreated, c)
	}
}

// GetCaseHandler returns a case.
func GetCaseHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		c, err := srv.Service.GetCase(r.Context(), id)
		if err != nil {
			respondError(srv, w, "Error getting case", err)
			return
		}

		respondJSON(srv, w, http.StatusOK, c)
	}
}
