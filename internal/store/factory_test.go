package store

import (
	"context"
	"strings"
	"testing"
)

func TestNewStoreMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "memory", "")
	if err != nil {
		t.Fatalf("NewStore(memory) error: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("NewStore(memory) = %T, want *MemoryStore", s)
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore(context.Background(), "etcd", "")
	if err == nil || !strings.Contains(err.Error(), "unsupported store type") {
		t.Errorf("NewStore(etcd) error = %v, want unsupported store type", err)
	}
}
