package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/TimurManjosov/goconfigship/internal/template"
)

// ErrNoTemplate is returned when no template has been published yet.
var ErrNoTemplate = errors.New("no template published")

// ErrVersionNotFound is returned when the requested version does not exist.
var ErrVersionNotFound = errors.New("template version not found")

// Store persists the append-only history of template versions.
// Implementations must be safe for concurrent use. Published versions are
// immutable; the only mutation is which version is active.
type Store interface {
	// PublishTemplate appends a new immutable version holding the given
	// parameters and conditions, marks it active, and returns the stored
	// template with its assigned version metadata.
	PublishTemplate(ctx context.Context, params PublishParams) (*template.Template, error)

	// GetActiveTemplate returns the currently active version.
	// Returns ErrNoTemplate when nothing has been published.
	GetActiveTemplate(ctx context.Context) (*template.Template, error)

	// GetTemplateVersion returns one historic version by number.
	// Returns ErrVersionNotFound when the version does not exist.
	GetTemplateVersion(ctx context.Context, versionNumber int64) (*template.Template, error)

	// ListVersions returns version metadata newest first, at most limit
	// entries. A non-positive limit applies DefaultVersionListLimit.
	ListVersions(ctx context.Context, limit int) ([]template.Version, error)

	// RollbackTo re-publishes the body of an old version as a new active
	// version with UpdateType rollback.
	// Returns ErrVersionNotFound when the version does not exist.
	RollbackTo(ctx context.Context, versionNumber int64, user string) (*template.Template, error)

	// Close releases any resources held by the store.
	Close() error
}

// DefaultVersionListLimit bounds ListVersions when the caller passes no
// explicit limit.
const DefaultVersionListLimit = 50

// PublishParams carries one template publication.
type PublishParams struct {
	// Template supplies the parameters and conditions to store. Its Version
	// field is ignored; the store assigns version metadata.
	Template    *template.Template
	Description string
	UpdateUser  string
	// UpdateType defaults to template.UpdatePublish when empty.
	UpdateType template.UpdateType
}

func (p PublishParams) updateType() template.UpdateType {
	if p.UpdateType == "" {
		return template.UpdatePublish
	}
	return p.UpdateType
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultVersionListLimit
	}
	return limit
}

// body strips version metadata from a template and returns the canonical
// stored form, parameters and conditions only. Version metadata always comes
// from the store so the two can never disagree.
func body(tpl *template.Template) ([]byte, error) {
	stripped := template.Template{
		Parameters: tpl.Parameters,
		Conditions: tpl.Conditions,
	}
	return stripped.Marshal()
}

// restore decodes a stored body and attaches version metadata.
func restore(data []byte, version template.Version) (*template.Template, error) {
	tpl, err := template.Parse(data)
	if err != nil {
		return nil, err
	}
	tpl.Version = version
	return tpl, nil
}

func rollbackDescription(versionNumber int64) string {
	return fmt.Sprintf("rollback to version %d", versionNumber)
}
