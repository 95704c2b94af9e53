package store

import (
	"context"
	"sync"
	"time"

	"github.com/TimurManjosov/goconfigship/internal/template"
)

// MemoryStore is an in-memory implementation of the Store interface backed
// by an RWMutex-guarded version list. Suitable for development, testing, or
// single-instance deployments without durability needs.
type MemoryStore struct {
	mu       sync.RWMutex
	versions []memoryVersion // ascending by version number
	active   int             // index into versions, -1 when none
}

// memoryVersion stores the canonical body bytes rather than the decoded
// template so readers always get an independent copy.
type memoryVersion struct {
	meta template.Version
	body []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{active: -1}
}

// PublishTemplate appends a new version and marks it active.
func (m *MemoryStore) PublishTemplate(ctx context.Context, params PublishParams) (*template.Template, error) {
	data, err := body(params.Template)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	meta := template.Version{
		VersionNumber: m.nextVersionLocked(),
		Description:   params.Description,
		UpdateTime:    time.Now().UTC(),
		UpdateUser:    params.UpdateUser,
		UpdateType:    params.updateType(),
	}
	m.versions = append(m.versions, memoryVersion{meta: meta, body: data})
	m.active = len(m.versions) - 1

	return restore(data, meta)
}

func (m *MemoryStore) nextVersionLocked() int64 {
	if len(m.versions) == 0 {
		return 1
	}
	return m.versions[len(m.versions)-1].meta.VersionNumber + 1
}

// GetActiveTemplate returns the active version, or ErrNoTemplate.
func (m *MemoryStore) GetActiveTemplate(ctx context.Context) (*template.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active < 0 {
		return nil, ErrNoTemplate
	}
	v := m.versions[m.active]
	return restore(v.body, v.meta)
}

// GetTemplateVersion returns one historic version by number.
func (m *MemoryStore) GetTemplateVersion(ctx context.Context, versionNumber int64) (*template.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.findLocked(versionNumber)
	if !ok {
		return nil, ErrVersionNotFound
	}
	return restore(v.body, v.meta)
}

func (m *MemoryStore) findLocked(versionNumber int64) (memoryVersion, bool) {
	for i := len(m.versions) - 1; i >= 0; i-- {
		if m.versions[i].meta.VersionNumber == versionNumber {
			return m.versions[i], true
		}
	}
	return memoryVersion{}, false
}

// ListVersions returns version metadata newest first.
func (m *MemoryStore) ListVersions(ctx context.Context, limit int) ([]template.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = listLimit(limit)
	out := make([]template.Version, 0, limit)
	for i := len(m.versions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.versions[i].meta)
	}
	return out, nil
}

// RollbackTo re-publishes an old version body as a new active version.
func (m *MemoryStore) RollbackTo(ctx context.Context, versionNumber int64, user string) (*template.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.findLocked(versionNumber)
	if !ok {
		return nil, ErrVersionNotFound
	}

	meta := template.Version{
		VersionNumber: m.nextVersionLocked(),
		Description:   rollbackDescription(versionNumber),
		UpdateTime:    time.Now().UTC(),
		UpdateUser:    user,
		UpdateType:    template.UpdateRollback,
	}
	m.versions = append(m.versions, memoryVersion{meta: meta, body: old.body})
	m.active = len(m.versions) - 1

	return restore(old.body, meta)
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
