package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/TimurManjosov/goconfigship/internal/db"
	"github.com/TimurManjosov/goconfigship/internal/template"
)

// postgresStore connects to the database named by TEST_DATABASE_URL, applies
// migrations, and truncates the versions table so each test starts clean.
// Tests are skipped when the variable is unset.
func postgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	if err := db.Migrate(pool); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE template_versions RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	s := NewPostgresStore(pool)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStorePublishAndFetch(t *testing.T) {
	s := postgresStore(t)
	ctx := context.Background()

	if _, err := s.GetActiveTemplate(ctx); !errors.Is(err, ErrNoTemplate) {
		t.Fatalf("GetActiveTemplate() on empty store error = %v, want ErrNoTemplate", err)
	}

	published, err := s.PublishTemplate(ctx, PublishParams{
		Template:    testTemplate("hello"),
		Description: "initial",
		UpdateUser:  "alice",
	})
	if err != nil {
		t.Fatalf("PublishTemplate() error: %v", err)
	}
	if published.Version.VersionNumber != 1 {
		t.Errorf("version = %d, want 1", published.Version.VersionNumber)
	}

	active, err := s.GetActiveTemplate(ctx)
	if err != nil {
		t.Fatalf("GetActiveTemplate() error: %v", err)
	}
	if v := active.Parameters["greeting"]; *v.DefaultValue.Value != "hello" {
		t.Errorf("greeting = %q, want hello", *v.DefaultValue.Value)
	}
	if active.Version.UpdateUser != "alice" || active.Version.UpdateType != template.UpdatePublish {
		t.Errorf("version metadata = %+v", active.Version)
	}
}

func TestPostgresStoreRollbackAndList(t *testing.T) {
	s := postgresStore(t)
	ctx := context.Background()

	if _, err := s.PublishTemplate(ctx, PublishParams{Template: testTemplate("v1")}); err != nil {
		t.Fatalf("publish v1: %v", err)
	}
	if _, err := s.PublishTemplate(ctx, PublishParams{Template: testTemplate("v2")}); err != nil {
		t.Fatalf("publish v2: %v", err)
	}

	rolled, err := s.RollbackTo(ctx, 1, "bob")
	if err != nil {
		t.Fatalf("RollbackTo() error: %v", err)
	}
	if rolled.Version.VersionNumber != 3 || rolled.Version.UpdateType != template.UpdateRollback {
		t.Errorf("rollback version = %+v", rolled.Version)
	}
	if v := rolled.Parameters["greeting"]; *v.DefaultValue.Value != "v1" {
		t.Errorf("rolled back greeting = %q, want v1", *v.DefaultValue.Value)
	}

	versions, err := s.ListVersions(ctx, 0)
	if err != nil {
		t.Fatalf("ListVersions() error: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("len(versions) = %d, want 3", len(versions))
	}
	if versions[0].VersionNumber != 3 || versions[2].VersionNumber != 1 {
		t.Errorf("versions not newest first: %v", versions)
	}

	if _, err := s.GetTemplateVersion(ctx, 99); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("GetTemplateVersion(99) error = %v, want ErrVersionNotFound", err)
	}
}
