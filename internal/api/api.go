// Package api exposes the commission workflows over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/bank-melli/commission/internal/commission"
	"github.com/bank-melli/commission/pkg/docnum"
	"github.com/bank-melli/commission/pkg/tracing"
)

// retryAfterSeconds is advertised when issuance gave up on a contended scope.
const retryAfterSeconds = 1

// Server contains the dependencies of the HTTP handlers.
type Server struct {
	// Service runs the commission workflows.
	Service *commission.Service

	// Logger is the logger for the server.
	Logger hclog.Logger
}

// NewRouter returns the HTTP handler serving /api/v1 and /healthz.
func NewRouter(srv Server) http.Handler {
	if srv.Logger == nil {
		srv.Logger = hclog.NewNullLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware)

	r.Get("/healthz", HealthHandler(srv))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/insured-persons", func(r chi.Router) {
			r.Post("/", CreateInsuredPersonHandler(srv))
			r.Get("/{id}", GetInsuredPersonHandler(srv))
			r.Get("/{id}/next-case-number", NextCaseNumberHandler(srv))
		})
		r.Route("/cases", func(r chi.Router) {
			r.Post("/", CreateCaseHandler(srv))
			r.Get("/{id}", GetCaseHandler(srv))
		})
		r.Route("/social-work-cases", func(r chi.Router) {
			r.Post("/", CreateSocialWorkCaseHandler(srv))
			r.Get("/{id}", GetSocialWorkCaseHandler(srv))
			r.Post("/{id}/assessment", RecordAssessmentHandler(srv))
			r.Post("/{id}/referral-letters", IssueReferralLetterHandler(srv))
		})
	})

	return r
}

// HealthHandler reports whether the database is reachable.
func HealthHandler(srv Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := srv.Service.Ping(r.Context()); err != nil {
			srv.Logger.Error("health check failed", "error", err)
			http.Error(w, "Database unavailable", http.StatusServiceUnavailable)
			return
		}
		respondJSON(srv, w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// decodeRequest decodes the JSON request body into v, rejecting unknown
// fields.
func decodeRequest(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func respondJSON(srv Server, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		srv.Logger.Error("error encoding response", "error", err)
	}
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// statusFor maps a workflow error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, commission.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, docnum.ErrScopeResolution), errors.Is(err, commission.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, commission.ErrAssessmentRequired), errors.Is(err, commission.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, docnum.ErrUniquenessConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status statusFor assigns it. Server
// errors are logged and their details withheld.
func respondError(srv Server, w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)

	switch {
	case status == http.StatusServiceUnavailable:
		srv.Logger.Warn(msg, "error", err)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		http.Error(w, "Identifier allocation is contended, please retry", status)
	case status >= http.StatusInternalServerError:
		srv.Logger.Error(msg, "error", err)
		http.Error(w, msg, status)
	default:
		srv.Logger.Debug(msg, "error", err, "status", status)
		http.Error(w, err.Error(), status)
	}
}
