package util

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewRequestIDIsUniqueAndOrdered(t *testing.T) {
	if err := InitRequestIDs(3); err != nil {
		t.Fatalf("InitRequestIDs() error = %v", err)
	}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty request id %q", id)
		}
		seen[id] = true
	}
}

func TestNewObjectKey(t *testing.T) {
	key := NewObjectKey(42, `C:\Users\me\report.pdf`)
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "workitems" || parts[1] != "42" || parts[3] != "report.pdf" {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := uuid.Parse(parts[2]); err != nil {
		t.Fatalf("expected uuid segment, got %q", parts[2])
	}
	if !strings.HasPrefix(key, ObjectKeyPrefix(42)) {
		t.Fatalf("key %q does not start with prefix", key)
	}
	if got := NewObjectKey(1, "../../etc/passwd"); !strings.HasSuffix(got, "/passwd") || strings.Contains(got, "..") {
		t.Fatalf("path traversal not stripped: %q", got)
	}
	if got := NewObjectKey(1, ""); !strings.HasSuffix(got, "/file") {
		t.Fatalf("expected fallback name, got %q", got)
	}
}
