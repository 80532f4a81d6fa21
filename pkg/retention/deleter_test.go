package retention

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chrono-hq/reaper/pkg/promstore"
)

// fakeMetricStore is a scripted MetricStore for engine tests.
type fakeMetricStore struct {
	catalog    []string
	catalogErr error

	// deleteErrs maps a metric name (extracted from the selector) to the
	// error its deletion should fail with.
	deleteErrs map[string]error

	deleteCalls []deleteCall
	cleanCalls  int
	cleanErr    error
}

type deleteCall struct {
	selector string
	start    int64
	end      int64
}

func (f *fakeMetricStore) Catalog(ctx context.Context) ([]string, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

func (f *fakeMetricStore) DeleteSeries(ctx context.Context, selector string, start, end int64) error {
	f.deleteCalls = append(f.deleteCalls, deleteCall{selector, start, end})
	for metric, err := range f.deleteErrs {
		if strings.Contains(selector, `"`+metric+`"`) {
			return err
		}
	}
	return nil
}

func (f *fakeMetricStore) CleanTombstones(ctx context.Context) error {
	f.cleanCalls++
	return f.cleanErr
}

// fastDeleter returns a deleter paced fast enough for tests.
func fastDeleter(store MetricStore) *Deleter {
	return NewDeleter(store, DeleterConfig{RequestsPerSecond: 10000})
}

// TestMetricStore_ClientSatisfies pins the remote client to the
// engine-side contract: every method the engine declares must exist on
// the client, and nothing more is required of it.
func TestMetricStore_ClientSatisfies(t *testing.T) {
	var _ MetricStore = (*promstore.Client)(nil)
}

// TestDeleter_DeleteBefore tests a fully successful batch: one request
// per metric, scoped [0, cutoff], followed by one tombstone cleanup.
func TestDeleter_DeleteBefore(t *testing.T) {
	store := &fakeMetricStore{}
	d := fastDeleter(store)

	cutoff := time.Unix(1_700_000_000, 0)
	result := d.DeleteBefore(context.Background(), []string{"cpu_user", "cpu_system"}, cutoff)

	if result.Accepted != 2 {
		t.Errorf("Accepted = %d, want 2", result.Accepted)
	}
	if len(result.Failures) != 0 {
		t.Errorf("Failures = %v, want none", result.Failures)
	}

	if len(store.deleteCalls) != 2 {
		t.Fatalf("expected 2 delete calls, got %d", len(store.deleteCalls))
	}
	first := store.deleteCalls[0]
	if first.selector != `{__name__="cpu_user"}` {
		t.Errorf("selector = %q, want %q", first.selector, `{__name__="cpu_user"}`)
	}
	if first.start != 0 || first.end != cutoff.Unix() {
		t.Errorf("range = [%d, %d], want [0, %d]", first.start, first.end, cutoff.Unix())
	}

	if store.cleanCalls != 1 {
		t.Errorf("cleanCalls = %d, want 1", store.cleanCalls)
	}
}

// TestDeleter_PartialFailure verifies that one failing metric never
// aborts the rest of the batch.
func TestDeleter_PartialFailure(t *testing.T) {
	store := &fakeMetricStore{
		deleteErrs: map[string]error{
			"cpu_system": &promstore.TransportError{Op: "delete_series", Cause: errors.New("connection refused")},
		},
	}
	d := fastDeleter(store)

	result := d.DeleteBefore(context.Background(),
		[]string{"cpu_user", "cpu_system", "cpu_idle"}, time.Unix(1_700_000_000, 0))

	if result.Accepted != 2 {
		t.Errorf("Accepted = %d, want 2", result.Accepted)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %d, want 1", len(result.Failures))
	}
	if result.Failures[0].Metric != "cpu_system" {
		t.Errorf("failed metric = %q, want cpu_system", result.Failures[0].Metric)
	}
	if len(store.deleteCalls) != 3 {
		t.Errorf("expected all 3 metrics attempted, got %d calls", len(store.deleteCalls))
	}
}

// TestDeleter_NotFoundIsAccepted verifies that a 404 counts as a
// successful deletion with zero effect.
func TestDeleter_NotFoundIsAccepted(t *testing.T) {
	store := &fakeMetricStore{
		deleteErrs: map[string]error{
			"ghost_metric": &promstore.StatusError{Op: "delete_series", StatusCode: 404},
		},
	}
	d := fastDeleter(store)

	result := d.DeleteBefore(context.Background(), []string{"ghost_metric"}, time.Unix(1_700_000_000, 0))

	if result.Accepted != 1 {
		t.Errorf("Accepted = %d, want 1", result.Accepted)
	}
	if len(result.Failures) != 0 {
		t.Errorf("Failures = %v, want none", result.Failures)
	}
	// A not-found still counts as accepted, so cleanup fires.
	if store.cleanCalls != 1 {
		t.Errorf("cleanCalls = %d, want 1", store.cleanCalls)
	}
}

// TestDeleter_ClientRejectionIsFailure verifies that a non-404 4xx is a
// counted failure.
func TestDeleter_ClientRejectionIsFailure(t *testing.T) {
	store := &fakeMetricStore{
		deleteErrs: map[string]error{
			"bad_metric": &promstore.StatusError{Op: "delete_series", StatusCode: 400, Body: "bad selector"},
		},
	}
	d := fastDeleter(store)

	result := d.DeleteBefore(context.Background(), []string{"bad_metric"}, time.Unix(1_700_000_000, 0))

	if result.Accepted != 0 {
		t.Errorf("Accepted = %d, want 0", result.Accepted)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %d, want 1", len(result.Failures))
	}
	// Nothing accepted, so no cleanup.
	if store.cleanCalls != 0 {
		t.Errorf("cleanCalls = %d, want 0", store.cleanCalls)
	}
}

// TestDeleter_CleanupFailureSwallowed verifies that a failing tombstone
// cleanup does not change the batch outcome.
func TestDeleter_CleanupFailureSwallowed(t *testing.T) {
	store := &fakeMetricStore{
		cleanErr: &promstore.StatusError{Op: "clean_tombstones", StatusCode: 500},
	}
	d := fastDeleter(store)

	result := d.DeleteBefore(context.Background(), []string{"cpu_user"}, time.Unix(1_700_000_000, 0))

	if result.Accepted != 1 {
		t.Errorf("Accepted = %d, want 1", result.Accepted)
	}
	if len(result.Failures) != 0 {
		t.Errorf("Failures = %v, want none", result.Failures)
	}
}

// TestDeleter_EmptyBatch verifies no remote calls for an empty match
// set.
func TestDeleter_EmptyBatch(t *testing.T) {
	store := &fakeMetricStore{}
	d := fastDeleter(store)

	result := d.DeleteBefore(context.Background(), nil, time.Unix(1_700_000_000, 0))

	if result.Accepted != 0 || len(result.Failures) != 0 {
		t.Errorf("unexpected result for empty batch: %+v", result)
	}
	if len(store.deleteCalls) != 0 || store.cleanCalls != 0 {
		t.Error("expected no remote calls for empty batch")
	}
}
