package policyfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"chrono-hq/reaper/pkg/retention"
	"chrono-hq/reaper/pkg/retention/store"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

// TestLoad parses a valid seed file.
func TestLoad(t *testing.T) {
	path := writeSeedFile(t, `
policies:
  - pattern: "cpu_*"
    retention_days: 30
    description: "CPU metrics"
  - pattern: "debug_*"
    retention_days: 1
    enabled: false
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(f.Policies) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(f.Policies))
	}
	if f.Policies[0].Pattern != "cpu_*" || f.Policies[0].RetentionDays != 30 {
		t.Errorf("unexpected first policy: %+v", f.Policies[0])
	}
	if f.Policies[1].IsEnabled() {
		t.Error("second policy should be disabled")
	}
}

// TestLoad_InvalidPolicy verifies that one bad entry rejects the whole
// file.
func TestLoad_InvalidPolicy(t *testing.T) {
	path := writeSeedFile(t, `
policies:
  - pattern: "cpu_*"
    retention_days: 30
  - pattern: "bad["
    retention_days: 7
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted a file with an invalid pattern")
	}
}

// TestLoad_MissingFile tests the missing-file error path.
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() succeeded with a missing file")
	}
}

// TestApply_CreatesAndUpdates tests upsert-by-pattern semantics.
func TestApply_CreatesAndUpdates(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	// Pre-existing policy with the same pattern the file carries.
	existing, err := st.CreatePolicy(ctx, retention.PolicyCreate{
		Pattern: "cpu_*", RetentionDays: 90,
	})
	if err != nil {
		t.Fatalf("CreatePolicy() failed: %v", err)
	}

	path := writeSeedFile(t, `
policies:
  - pattern: "cpu_*"
    retention_days: 30
    description: "CPU metrics"
  - pattern: "mem_*"
    retention_days: 14
`)

	if err := LoadAndApply(ctx, path, st, nil); err != nil {
		t.Fatalf("LoadAndApply() failed: %v", err)
	}

	all, err := st.ListPolicies(ctx)
	if err != nil {
		t.Fatalf("ListPolicies() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 policies after apply, got %d", len(all))
	}

	updated, err := st.GetPolicy(ctx, existing.ID)
	if err != nil {
		t.Fatalf("GetPolicy() failed: %v", err)
	}
	if updated.RetentionDays != 30 || updated.Description != "CPU metrics" {
		t.Errorf("existing policy not updated in place: %+v", updated)
	}
	if updated.ID != existing.ID {
		t.Error("upsert must keep the existing policy id")
	}
}

// TestApply_Idempotent verifies that re-applying an unchanged file does
// not touch the store.
func TestApply_Idempotent(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	path := writeSeedFile(t, `
policies:
  - pattern: "cpu_*"
    retention_days: 30
`)

	if err := LoadAndApply(ctx, path, st, nil); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	before, _ := st.ListPolicies(ctx)

	if err := LoadAndApply(ctx, path, st, nil); err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	after, _ := st.ListPolicies(ctx)

	if len(after) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(after))
	}
	if !after[0].UpdatedAt.Equal(before[0].UpdatedAt) {
		t.Error("unchanged policy was rewritten on re-apply")
	}
}

// TestApply_LeavesUnlistedPoliciesAlone verifies the file seeds the
// store without owning it.
func TestApply_LeavesUnlistedPoliciesAlone(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	manual, err := st.CreatePolicy(ctx, retention.PolicyCreate{
		Pattern: "manual_*", RetentionDays: 7,
	})
	if err != nil {
		t.Fatalf("CreatePolicy() failed: %v", err)
	}

	path := writeSeedFile(t, `
policies:
  - pattern: "cpu_*"
    retention_days: 30
`)

	if err := LoadAndApply(ctx, path, st, nil); err != nil {
		t.Fatalf("LoadAndApply() failed: %v", err)
	}

	if _, err := st.GetPolicy(ctx, manual.ID); err != nil {
		t.Errorf("manually created policy removed by apply: %v", err)
	}
}
