package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"chrono-hq/reaper/pkg/promstore"
)

// MetricStore is the slice of the remote store protocol the engine
// consumes: catalog retrieval, series deletion, and tombstone cleanup.
// *promstore.Client satisfies it.
type MetricStore interface {
	Catalog(ctx context.Context) ([]string, error)
	DeleteSeries(ctx context.Context, selector string, start, end int64) error
	CleanTombstones(ctx context.Context) error
}

// DeleterConfig contains configuration for the deletion driver.
type DeleterConfig struct {
	// RequestsPerSecond paces consecutive deletion calls so a large
	// batch does not saturate the remote store. Default: 5.
	RequestsPerSecond float64
}

// DefaultDeleterConfig returns the default deletion driver configuration.
func DefaultDeleterConfig() DeleterConfig {
	return DeleterConfig{RequestsPerSecond: 5}
}

// Deleter drives the remote store's deletion protocol for a batch of
// matched metrics. Per-metric requests are issued sequentially with
// rate-limited pacing; a failure on one metric never aborts the rest.
type Deleter struct {
	store   MetricStore
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDeleter creates a deletion driver against the given remote store.
func NewDeleter(store MetricStore, cfg DeleterConfig) *Deleter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultDeleterConfig().RequestsPerSecond
	}

	return &Deleter{
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  slog.Default().With("component", "retention.deleter"),
	}
}

// DeleteBefore issues one deletion request per metric, scoped to
// [epoch 0, cutoff]: everything older than the cutoff, never a narrower
// window. Outcomes are classified per metric:
//
//   - acknowledged deletion: accepted
//   - not-found / no data: accepted (success with zero effect)
//   - client-side rejection (malformed selector): counted failure
//   - transport, server error, or timeout: counted failure
//
// After any accepted deletions, a single store-wide tombstone cleanup
// is triggered; its failure is logged and does not change the outcome.
func (d *Deleter) DeleteBefore(ctx context.Context, metrics []string, cutoff time.Time) BatchResult {
	result := BatchResult{}

	end := cutoff.Unix()

	for _, metric := range metrics {
		if err := d.limiter.Wait(ctx); err != nil {
			result.Failures = append(result.Failures, MetricFailure{
				Metric: metric,
				Reason: fmt.Sprintf("pacing interrupted: %v", err),
			})
			continue
		}

		selector := fmt.Sprintf("{__name__=%q}", metric)

		err := d.store.DeleteSeries(ctx, selector, 0, end)
		switch {
		case err == nil:
			result.Accepted++
			d.logger.Debug("deleted series before cutoff", "metric", metric, "cutoff", end)

		case promstore.IsNotFound(err):
			// Nothing stored for this metric; same as a no-op delete.
			result.Accepted++
			d.logger.Debug("no data for metric", "metric", metric)

		case promstore.IsClientRejection(err):
			result.Failures = append(result.Failures, MetricFailure{Metric: metric, Reason: err.Error()})
			d.logger.Warn("remote store rejected deletion", "metric", metric, "error", err)

		default:
			result.Failures = append(result.Failures, MetricFailure{Metric: metric, Reason: err.Error()})
			d.logger.Warn("deletion failed", "metric", metric, "error", err)
		}
	}

	if result.Accepted > 0 {
		if err := d.store.CleanTombstones(ctx); err != nil {
			// Best-effort housekeeping only.
			d.logger.Warn("tombstone cleanup failed", "error", err)
		} else {
			d.logger.Debug("tombstone cleanup triggered", "accepted", result.Accepted)
		}
	}

	return result
}
