package api

import (
	"net/http"
	"time"

	"github.com/TimurManjosov/goconfigship/internal/condition"
	"github.com/TimurManjosov/goconfigship/internal/telemetry"
	"github.com/TimurManjosov/goconfigship/internal/template"
)

// evaluateRequest is the request body for POST /v1/evaluate.
type evaluateRequest struct {
	Context condition.Context `json:"context"`
}

// evaluateResponse carries the resolved configuration for one client.
type evaluateResponse struct {
	Values      map[string]template.Value `json:"values"`
	Conditions  *condition.Results        `json:"conditions"`
	Version     int64                     `json:"version"`
	ETag        string                    `json:"etag"`
	EvaluatedAt string                    `json:"evaluatedAt"`
}

// handleEvaluate evaluates the active template for a client context.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeBody(w, r, &req) {
		telemetry.Evaluations.WithLabelValues("invalid_request").Inc()
		return
	}

	snap := s.holder.Load()
	if snap.Template == nil {
		telemetry.Evaluations.WithLabelValues("no_template").Inc()
		NotFoundError(w, r, ErrCodeNoTemplate, "no template published")
		return
	}

	cfg := template.Evaluate(snap.Template, req.Context, s.eval)
	telemetry.Evaluations.WithLabelValues("ok").Inc()

	writeJSON(w, http.StatusOK, evaluateResponse{
		Values:      cfg.Values,
		Conditions:  cfg.Conditions,
		Version:     cfg.Version,
		ETag:        snap.ETag,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// evaluateConditionsRequest is the request body for
// POST /v1/conditions/evaluate.
type evaluateConditionsRequest struct {
	Conditions []condition.NamedCondition `json:"conditions"`
	Context    condition.Context          `json:"context"`
}

type evaluateConditionsResponse struct {
	Conditions  *condition.Results `json:"conditions"`
	EvaluatedAt string             `json:"evaluatedAt"`
}

// handleEvaluateConditions evaluates caller-supplied conditions against
// a caller-supplied context, without touching the active template.
func (s *Server) handleEvaluateConditions(w http.ResponseWriter, r *http.Request) {
	var req evaluateConditionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Conditions) == 0 {
		BadRequestError(w, r, ErrCodeMissingField, "conditions are required")
		return
	}

	results := s.eval.Evaluate(req.Conditions, req.Context)
	writeJSON(w, http.StatusOK, evaluateConditionsResponse{
		Conditions:  results,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
