package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/TimurManjosov/goconfigship/internal/audit"
	"github.com/TimurManjosov/goconfigship/internal/store"
	"github.com/TimurManjosov/goconfigship/internal/telemetry"
	"github.com/TimurManjosov/goconfigship/internal/template"
	"github.com/TimurManjosov/goconfigship/internal/webhook"
)

// handleGetTemplate serves the active template with ETag support.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	snap := s.holder.Load()
	if snap.Template == nil {
		NotFoundError(w, r, ErrCodeNoTemplate, "no template published")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
		w.Header().Set("ETag", snap.ETag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := snap.Template.Marshal()
	if err != nil {
		InternalError(w, r, "failed to encode template")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", snap.ETag)
	_, _ = w.Write(data)
}

type publishResponse struct {
	VersionNumber int64     `json:"versionNumber"`
	ETag          string    `json:"etag"`
	UpdateTime    time.Time `json:"updateTime"`
}

// handlePublishTemplate validates the posted template and makes it the
// active version.
func (s *Server) handlePublishTemplate(w http.ResponseWriter, r *http.Request) {
	raw := readBody(w, r)
	if raw == nil {
		return
	}

	tpl, err := template.Parse(raw)
	if err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "body is not a template: "+err.Error())
		return
	}
	if result := template.Validate(tpl); !result.Valid {
		ValidationFailedError(w, r, "template validation failed", result.Errors)
		return
	}

	actor := audit.ActorFromContext(r)
	published, err := s.store.PublishTemplate(r.Context(), store.PublishParams{
		Template:    tpl,
		Description: tpl.Version.Description,
		UpdateUser:  actor,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("publish failed")
		InternalError(w, r, "failed to store template version")
		return
	}

	snap, err := s.holder.Update(published)
	if err != nil {
		InternalError(w, r, "failed to refresh snapshot")
		return
	}
	telemetry.ActiveVersion.Set(float64(published.Version.VersionNumber))
	telemetry.TemplateParameters.Set(float64(len(published.Parameters)))
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int64("template.version", published.Version.VersionNumber))

	if s.audit != nil {
		s.audit.Record(audit.Published(actor, published.Version.VersionNumber, published.Version.Description))
	}
	if s.webhooks != nil {
		s.webhooks.Dispatch(webhook.PublishedEvent(
			published.Version.VersionNumber, snap.ETag, actor, published.Version.Description))
	}

	writeJSON(w, http.StatusOK, publishResponse{
		VersionNumber: published.Version.VersionNumber,
		ETag:          snap.ETag,
		UpdateTime:    published.Version.UpdateTime,
	})
}

type versionsResponse struct {
	Versions []template.Version `json:"versions"`
}

// handleListVersions returns version history, newest first.
func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			BadRequestError(w, r, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		limit = n
	}

	versions, err := s.store.ListVersions(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list versions failed")
		InternalError(w, r, "failed to list versions")
		return
	}
	if versions == nil {
		versions = []template.Version{}
	}
	writeJSON(w, http.StatusOK, versionsResponse{Versions: versions})
}

type rollbackRequest struct {
	VersionNumber int64 `json:"versionNumber"`
}

type rollbackResponse struct {
	VersionNumber int64  `json:"versionNumber"`
	TargetVersion int64  `json:"targetVersion"`
	ETag          string `json:"etag"`
}

// handleRollback re-publishes an old version's body as a new active
// version.
func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.VersionNumber < 1 {
		BadRequestError(w, r, ErrCodeMissingField, "versionNumber is required")
		return
	}

	actor := audit.ActorFromContext(r)
	restored, err := s.store.RollbackTo(r.Context(), req.VersionNumber, actor)
	if err != nil {
		if errors.Is(err, store.ErrVersionNotFound) {
			NotFoundError(w, r, ErrCodeVersionNotFound, "version does not exist")
			return
		}
		s.log.Error().Err(err).Int64("version", req.VersionNumber).Msg("rollback failed")
		InternalError(w, r, "failed to roll back")
		return
	}

	snap, err := s.holder.Update(restored)
	if err != nil {
		InternalError(w, r, "failed to refresh snapshot")
		return
	}
	telemetry.ActiveVersion.Set(float64(restored.Version.VersionNumber))
	telemetry.TemplateParameters.Set(float64(len(restored.Parameters)))
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int64("template.version", restored.Version.VersionNumber),
		attribute.Int64("template.rollback_target", req.VersionNumber))

	if s.audit != nil {
		s.audit.Record(audit.RolledBack(actor, restored.Version.VersionNumber, req.VersionNumber))
	}
	if s.webhooks != nil {
		s.webhooks.Dispatch(webhook.RolledBackEvent(
			restored.Version.VersionNumber, snap.ETag, actor, req.VersionNumber))
	}

	writeJSON(w, http.StatusOK, rollbackResponse{
		VersionNumber: restored.Version.VersionNumber,
		TargetVersion: req.VersionNumber,
		ETag:          snap.ETag,
	})
}
