// Package engine drives the fetch-normalize-reconcile-publish cycle over the
// CAD feed and owns the incident store's lifecycle.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dispatchmon/cad-engine/internal/domain"
	"github.com/dispatchmon/cad-engine/internal/observability"
	"github.com/dispatchmon/cad-engine/internal/pubsub"
	"github.com/dispatchmon/cad-engine/internal/store"
	"github.com/jonboulle/clockwork"
)

// Fetcher performs one bounded-time fetch of the upstream feed. Owned by the
// surrounding application and injected into the engine.
type Fetcher interface {
	FetchIncidents(ctx context.Context) ([]domain.RawRecord, error)
}

// Sink receives the incidents created or modified by a cycle. Sink failures
// are logged and counted, never fatal to the cycle.
type Sink interface {
	PublishIncidents(ctx context.Context, incidents []domain.Incident) error
}

// Options tune one engine instance.
type Options struct {
	PollInterval time.Duration // scheduled cycle cadence
	FetchTimeout time.Duration // upper bound on one feed fetch
	RetentionCap int           // store size cap
}

// Engine is the incident reconciliation engine. Construct with New; multiple
// instances can coexist, each with its own store and subscribers.
type Engine struct {
	fetcher Fetcher
	sink    Sink // nil disables the sink
	store   *store.Bounded
	hub     *pubsub.Hub
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   clockwork.Clock
	opts    Options

	// cycleMu serializes reconciliation: a forced refresh and a scheduled
	// tick must not mutate the store concurrently.
	cycleMu sync.Mutex

	statusMu sync.Mutex
	status   domain.SystemStatus

	ready atomic.Bool
}

// New wires an engine from its collaborators. Pass a nil sink to disable
// downstream publishing.
func New(fetcher Fetcher, sink Sink, hub *pubsub.Hub, metrics *observability.Metrics, logger *slog.Logger, clock clockwork.Clock, opts Options) *Engine {
	return &Engine{
		fetcher: fetcher,
		sink:    sink,
		store:   store.New(opts.RetentionCap),
		hub:     hub,
		metrics: metrics,
		logger:  logger,
		clock:   clock,
		opts:    opts,
		status:  domain.SystemStatus{Feed: domain.StateOnline, Store: domain.StateOnline},
	}
}

// Run executes one cycle immediately, then one per poll interval until the
// context is cancelled. Fetch failures degrade to status=ERROR and are
// retried on the next tick; Run only returns on cancellation.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		"poll_interval", e.opts.PollInterval,
		"fetch_timeout", e.opts.FetchTimeout,
		"retention_cap", e.opts.RetentionCap,
	)

	e.runCycle(ctx)

	ticker := e.clock.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			e.runCycle(ctx)
		}
	}
}

// ForceRefresh runs one out-of-band cycle and reports its outcome. It blocks
// until any in-flight cycle completes, then until its own cycle does.
func (e *Engine) ForceRefresh(ctx context.Context) error {
	e.logger.Info("force refresh requested")
	return e.runCycle(ctx)
}

// runCycle performs one fetch-normalize-reconcile-publish pass. At most one
// cycle runs at a time.
func (e *Engine) runCycle(ctx context.Context) error {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	start := e.clock.Now()
	e.metrics.CyclesTotal.Inc()

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	records, err := e.fetcher.FetchIncidents(fetchCtx)
	cancel()
	if err != nil {
		e.metrics.FetchErrors.Inc()
		e.setFeedState(domain.StateError)
		e.logger.Error("feed fetch failed, keeping existing store", "error", err)
		return err
	}
	e.metrics.BatchSize.Observe(float64(len(records)))

	batch := make([]domain.Incident, 0, len(records))
	for _, rec := range records {
		batch = append(batch, domain.NormalizeRecord(rec))
	}

	delta := Reconcile(e.store.Snapshot(), batch, e.opts.RetentionCap, e.clock.Now())
	if delta.Changed() {
		e.store.Replace(delta.Incidents)

		for _, ev := range delta.UnitEvents {
			e.metrics.UnitChanges.Inc()
			e.hub.PublishUnitAdditions(ev.IncidentID, ev.Units)
		}
		e.hub.PublishIncidents(e.store.Snapshot())

		e.metrics.NewIncidents.Add(float64(delta.NewCount))
		e.metrics.ResolvedTotal.Add(float64(delta.ResolvedCount))

		if e.sink != nil {
			if err := e.sink.PublishIncidents(ctx, delta.Touched); err != nil {
				e.metrics.SinkErrors.Inc()
				e.logger.Error("sink publish failed", "error", err, "incidents", len(delta.Touched))
			}
		}

		e.logger.Info("cycle reconciled changes",
			"records", len(records),
			"new", delta.NewCount,
			"updated", delta.UpdatedCount,
			"resolved", delta.ResolvedCount,
			"tracked", e.store.Len(),
		)
	} else {
		e.logger.Debug("cycle produced no changes", "records", len(records))
	}

	e.metrics.IncidentsTracked.Set(float64(e.store.Len()))
	e.metrics.CycleDuration.Observe(e.clock.Since(start).Seconds())
	e.setFeedState(domain.StateOnline)
	e.ready.Store(true)
	return nil
}

// setFeedState records the feed component state and publishes the system
// status. Published every cycle, success or failure, so subscribers see
// recovery as well as degradation.
func (e *Engine) setFeedState(state domain.ComponentState) {
	e.statusMu.Lock()
	e.status.Feed = state
	status := e.status
	e.statusMu.Unlock()

	if state == domain.StateOnline {
		e.metrics.FeedOnline.Set(1)
	} else {
		e.metrics.FeedOnline.Set(0)
	}
	e.hub.PublishStatus(status)
}

// UpdateIncidentStatus directly overwrites an incident's status, bypassing
// reconciliation history, and republishes the snapshot. Used for user-driven
// manual resolution. Returns false for an unknown id.
func (e *Engine) UpdateIncidentStatus(id string, status domain.Status) bool {
	if !e.store.UpdateStatus(id, status) {
		return false
	}
	e.logger.Info("incident status overridden", "incident", id, "status", status)
	e.hub.PublishIncidents(e.store.Snapshot())
	return true
}

// SnapshotIncidents returns a deep copy of the current store state.
func (e *Engine) SnapshotIncidents() []domain.Incident {
	return e.store.Snapshot()
}

// Status returns the current system status.
func (e *Engine) Status() domain.SystemStatus {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.status
}

// SubscribeIncidents registers an observer for full snapshots, replaying the
// current one immediately.
func (e *Engine) SubscribeIncidents(fn pubsub.IncidentFunc) { e.hub.SubscribeIncidents(fn) }

// SubscribeStatus registers an observer for system status, replaying the
// current one immediately.
func (e *Engine) SubscribeStatus(fn pubsub.StatusFunc) { e.hub.SubscribeStatus(fn) }

// SubscribeUnitAdditions registers an observer for future unit-addition
// events.
func (e *Engine) SubscribeUnitAdditions(fn pubsub.UnitAdditionFunc) { e.hub.SubscribeUnitAdditions(fn) }

// CheckReadiness returns nil once the engine has completed at least one
// successful cycle.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("engine has not completed a successful cycle yet")
	}
	return nil
}
