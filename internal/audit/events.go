package audit

import (
	"net/http"

	"github.com/TimurManjosov/goconfigship/internal/auth"
	"github.com/go-chi/chi/v5/middleware"
)

// Published builds the event recorded when a template version goes live.
func Published(actor string, version int64, description string) Event {
	details := map[string]any{}
	if description != "" {
		details["description"] = description
	}
	return Event{
		Action:  ActionPublish,
		Actor:   actor,
		Version: version,
		Details: details,
	}
}

// RolledBack builds the event recorded when an older version is restored.
// newVersion is the version created by the rollback, target the version
// whose body it restores.
func RolledBack(actor string, newVersion, target int64) Event {
	return Event{
		Action:  ActionRollback,
		Actor:   actor,
		Version: newVersion,
		Details: map[string]any{"targetVersion": target},
	}
}

// AuthFailure builds the event recorded when a request is rejected by
// the keychain. The token itself is never included.
func AuthFailure(r *http.Request, reason string) Event {
	return Event{
		Action: ActionAuthFailure,
		Actor:  "anonymous",
		Details: map[string]any{
			"reason":     reason,
			"ip":         auth.ClientIP(r),
			"user_agent": r.UserAgent(),
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		},
	}
}

// ActorFromContext names the acting principal for an audit record from
// the authenticated role, falling back to "system" for internal actions.
func ActorFromContext(r *http.Request) string {
	if role, ok := auth.RoleFromContext(r.Context()); ok {
		return string(role)
	}
	return "system"
}
