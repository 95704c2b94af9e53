package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TimurManjosov/goconfigship/internal/template"
)

// PostgresStore is a PostgreSQL implementation of the Store interface backed
// by a pgxpool connection pool. Versions live in the template_versions table;
// the schema is managed by the embedded goose migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on top of an existing connection pool.
// The store takes ownership of the pool; Close closes it.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// PublishTemplate appends a new version row and marks it active, atomically.
func (p *PostgresStore) PublishTemplate(ctx context.Context, params PublishParams) (*template.Template, error) {
	data, err := body(params.Template)
	if err != nil {
		return nil, fmt.Errorf("encode template body: %w", err)
	}
	return p.insertActive(ctx, data, params.Description, params.UpdateUser, params.updateType())
}

// insertActive runs the deactivate-then-insert swap in one transaction. The
// table lock serialises concurrent publishes so version numbers stay dense.
func (p *PostgresStore) insertActive(ctx context.Context, data []byte, description, user string, updateType template.UpdateType) (*template.Template, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin publish: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE template_versions IN EXCLUSIVE MODE`); err != nil {
		return nil, fmt.Errorf("lock template_versions: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE template_versions SET active = FALSE WHERE active`); err != nil {
		return nil, fmt.Errorf("deactivate current version: %w", err)
	}

	var meta template.Version
	meta.Description = description
	meta.UpdateUser = user
	meta.UpdateType = updateType
	err = tx.QueryRow(ctx, `
		INSERT INTO template_versions (body, description, update_user, update_type, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING version_number, update_time
	`, data, description, user, string(updateType)).Scan(&meta.VersionNumber, &meta.UpdateTime)
	if err != nil {
		return nil, fmt.Errorf("insert template version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit publish: %w", err)
	}
	return restore(data, meta)
}

// GetActiveTemplate returns the active version, or ErrNoTemplate.
func (p *PostgresStore) GetActiveTemplate(ctx context.Context) (*template.Template, error) {
	tpl, err := p.queryOne(ctx, `
		SELECT version_number, body, description, update_user, update_type, update_time
		FROM template_versions
		WHERE active
	`)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoTemplate
	}
	return tpl, err
}

// GetTemplateVersion returns one historic version by number.
func (p *PostgresStore) GetTemplateVersion(ctx context.Context, versionNumber int64) (*template.Template, error) {
	tpl, err := p.queryOne(ctx, `
		SELECT version_number, body, description, update_user, update_type, update_time
		FROM template_versions
		WHERE version_number = $1
	`, versionNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVersionNotFound
	}
	return tpl, err
}

func (p *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (*template.Template, error) {
	var (
		meta       template.Version
		data       []byte
		updateType string
	)
	err := p.pool.QueryRow(ctx, query, args...).Scan(
		&meta.VersionNumber,
		&data,
		&meta.Description,
		&meta.UpdateUser,
		&updateType,
		&meta.UpdateTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query template version: %w", err)
	}
	meta.UpdateType = template.UpdateType(updateType)
	tpl, err := restore(data, meta)
	if err != nil {
		return nil, fmt.Errorf("decode template body: %w", err)
	}
	return tpl, nil
}

// ListVersions returns version metadata newest first.
func (p *PostgresStore) ListVersions(ctx context.Context, limit int) ([]template.Version, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT version_number, description, update_user, update_type, update_time
		FROM template_versions
		ORDER BY version_number DESC
		LIMIT $1
	`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list template versions: %w", err)
	}
	defer rows.Close()

	var out []template.Version
	for rows.Next() {
		var (
			meta       template.Version
			updateType string
		)
		if err := rows.Scan(&meta.VersionNumber, &meta.Description, &meta.UpdateUser, &updateType, &meta.UpdateTime); err != nil {
			return nil, fmt.Errorf("scan template version: %w", err)
		}
		meta.UpdateType = template.UpdateType(updateType)
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list template versions: %w", err)
	}
	return out, nil
}

// RollbackTo re-publishes an old version body as a new active version.
func (p *PostgresStore) RollbackTo(ctx context.Context, versionNumber int64, user string) (*template.Template, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `
		SELECT body FROM template_versions WHERE version_number = $1
	`, versionNumber).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("load version %d: %w", versionNumber, err)
	}
	return p.insertActive(ctx, data, rollbackDescription(versionNumber), user, template.UpdateRollback)
}

// Close closes the underlying connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
