package store

import (
	"context"
	"errors"
	"testing"

	"github.com/TimurManjosov/goconfigship/internal/condition"
	"github.com/TimurManjosov/goconfigship/internal/template"
)

func testTemplate(greeting string) *template.Template {
	return &template.Template{
		Parameters: map[string]template.Parameter{
			"greeting": {DefaultValue: valuePtr(greeting)},
		},
		Conditions: []condition.NamedCondition{
			{Name: "always", Condition: condition.True{}},
		},
	}
}

func valuePtr(s string) *template.ParameterValue {
	pv := template.NewValue(s)
	return &pv
}

func TestMemoryStoreEmptyHasNoTemplate(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.GetActiveTemplate(context.Background()); !errors.Is(err, ErrNoTemplate) {
		t.Errorf("GetActiveTemplate() error = %v, want ErrNoTemplate", err)
	}
}

func TestMemoryStorePublishAssignsVersions(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	first, err := s.PublishTemplate(ctx, PublishParams{
		Template:    testTemplate("hello"),
		Description: "initial",
		UpdateUser:  "alice",
	})
	if err != nil {
		t.Fatalf("PublishTemplate() error: %v", err)
	}
	if first.Version.VersionNumber != 1 {
		t.Errorf("first version = %d, want 1", first.Version.VersionNumber)
	}
	if first.Version.UpdateType != template.UpdatePublish {
		t.Errorf("update type = %q, want publish", first.Version.UpdateType)
	}
	if first.Version.UpdateTime.IsZero() {
		t.Error("update time not set")
	}

	second, err := s.PublishTemplate(ctx, PublishParams{Template: testTemplate("hi")})
	if err != nil {
		t.Fatalf("PublishTemplate() error: %v", err)
	}
	if second.Version.VersionNumber != 2 {
		t.Errorf("second version = %d, want 2", second.Version.VersionNumber)
	}

	active, err := s.GetActiveTemplate(ctx)
	if err != nil {
		t.Fatalf("GetActiveTemplate() error: %v", err)
	}
	if active.Version.VersionNumber != 2 {
		t.Errorf("active version = %d, want 2", active.Version.VersionNumber)
	}
}

func TestMemoryStoreVersionsAreImmutable(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if _, err := s.PublishTemplate(ctx, PublishParams{Template: testTemplate("hello")}); err != nil {
		t.Fatalf("PublishTemplate() error: %v", err)
	}

	// Mutating a returned template must not leak into the store.
	got, err := s.GetActiveTemplate(ctx)
	if err != nil {
		t.Fatalf("GetActiveTemplate() error: %v", err)
	}
	got.Parameters["greeting"] = template.Parameter{DefaultValue: valuePtr("tampered")}

	fresh, err := s.GetActiveTemplate(ctx)
	if err != nil {
		t.Fatalf("GetActiveTemplate() error: %v", err)
	}
	if v := fresh.Parameters["greeting"]; *v.DefaultValue.Value != "hello" {
		t.Errorf("stored template changed to %q", *v.DefaultValue.Value)
	}
}

func TestMemoryStoreGetTemplateVersion(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	s.PublishTemplate(ctx, PublishParams{Template: testTemplate("v1")})
	s.PublishTemplate(ctx, PublishParams{Template: testTemplate("v2")})

	old, err := s.GetTemplateVersion(ctx, 1)
	if err != nil {
		t.Fatalf("GetTemplateVersion(1) error: %v", err)
	}
	if v := old.Parameters["greeting"]; *v.DefaultValue.Value != "v1" {
		t.Errorf("version 1 greeting = %q, want v1", *v.DefaultValue.Value)
	}

	if _, err := s.GetTemplateVersion(ctx, 99); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("GetTemplateVersion(99) error = %v, want ErrVersionNotFound", err)
	}
}

func TestMemoryStoreListVersions(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.PublishTemplate(ctx, PublishParams{Template: testTemplate("x")}); err != nil {
			t.Fatalf("PublishTemplate() error: %v", err)
		}
	}

	versions, err := s.ListVersions(ctx, 3)
	if err != nil {
		t.Fatalf("ListVersions() error: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("len(versions) = %d, want 3", len(versions))
	}
	for i, want := range []int64{5, 4, 3} {
		if versions[i].VersionNumber != want {
			t.Errorf("versions[%d] = %d, want %d (newest first)", i, versions[i].VersionNumber, want)
		}
	}

	all, err := s.ListVersions(ctx, 0)
	if err != nil {
		t.Fatalf("ListVersions(0) error: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("default limit returned %d versions, want 5", len(all))
	}
}

func TestMemoryStoreRollback(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	s.PublishTemplate(ctx, PublishParams{Template: testTemplate("v1")})
	s.PublishTemplate(ctx, PublishParams{Template: testTemplate("v2")})

	rolled, err := s.RollbackTo(ctx, 1, "bob")
	if err != nil {
		t.Fatalf("RollbackTo() error: %v", err)
	}
	if rolled.Version.VersionNumber != 3 {
		t.Errorf("rollback created version %d, want 3", rolled.Version.VersionNumber)
	}
	if rolled.Version.UpdateType != template.UpdateRollback {
		t.Errorf("update type = %q, want rollback", rolled.Version.UpdateType)
	}
	if rolled.Version.UpdateUser != "bob" {
		t.Errorf("update user = %q, want bob", rolled.Version.UpdateUser)
	}
	if v := rolled.Parameters["greeting"]; *v.DefaultValue.Value != "v1" {
		t.Errorf("rolled back greeting = %q, want v1", *v.DefaultValue.Value)
	}

	active, _ := s.GetActiveTemplate(ctx)
	if active.Version.VersionNumber != 3 {
		t.Errorf("active version = %d, want 3", active.Version.VersionNumber)
	}

	if _, err := s.RollbackTo(ctx, 42, "bob"); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("RollbackTo(42) error = %v, want ErrVersionNotFound", err)
	}
}
