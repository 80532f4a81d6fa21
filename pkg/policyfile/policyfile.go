// Package policyfile loads retention policies from a declarative YAML
// file and upserts them into the policy store. An optional watcher
// re-applies the file when it changes on disk, so policies can be
// managed GitOps-style alongside the CRUD API.
package policyfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"chrono-hq/reaper/pkg/retention"
	"chrono-hq/reaper/pkg/retention/store"
)

// File is the on-disk shape of a policy seed file.
//
//	policies:
//	  - pattern: "cpu_*"
//	    retention_days: 30
//	    description: "CPU metrics"
type File struct {
	Policies []retention.PolicyCreate `yaml:"policies"`
}

// Load reads and parses a seed file, validating every entry. A file
// with any invalid policy is rejected whole.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %q: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %q: %w", path, err)
	}

	for i := range f.Policies {
		if err := f.Policies[i].Validate(); err != nil {
			return nil, fmt.Errorf("policy %d in %q: %w", i, path, err)
		}
	}

	return &f, nil
}

// Apply upserts the file's policies into the store, keyed by pattern:
// an existing policy with the same pattern is updated in place,
// anything else is created. Policies absent from the file are left
// alone; the file seeds, it does not own the store.
func Apply(ctx context.Context, f *File, st store.Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	existing, err := st.ListPolicies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list policies: %w", err)
	}

	byPattern := make(map[string]*retention.Policy, len(existing))
	for _, p := range existing {
		byPattern[p.Pattern] = p
	}

	var created, updated int
	for _, seed := range f.Policies {
		current, ok := byPattern[seed.Pattern]
		if !ok {
			if _, err := st.CreatePolicy(ctx, seed); err != nil {
				return fmt.Errorf("failed to create policy %q: %w", seed.Pattern, err)
			}
			created++
			continue
		}

		enabled := seed.IsEnabled()
		if current.RetentionDays == seed.RetentionDays &&
			current.Description == seed.Description &&
			current.Enabled == enabled {
			continue
		}

		update := retention.PolicyUpdate{
			RetentionDays: &seed.RetentionDays,
			Description:   &seed.Description,
			Enabled:       &enabled,
		}
		if _, err := st.UpdatePolicy(ctx, current.ID, update); err != nil {
			return fmt.Errorf("failed to update policy %q: %w", seed.Pattern, err)
		}
		updated++
	}

	logger.Info("policy seed file applied",
		"policies", len(f.Policies),
		"created", created,
		"updated", updated,
	)
	return nil
}

// LoadAndApply is the startup path: load the file and upsert it.
func LoadAndApply(ctx context.Context, path string, st store.Store, logger *slog.Logger) error {
	f, err := Load(path)
	if err != nil {
		return err
	}
	return Apply(ctx, f, st, logger)
}
