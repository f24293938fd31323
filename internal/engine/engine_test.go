package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dispatchmon/cad-engine/internal/domain"
	"github.com/dispatchmon/cad-engine/internal/engine"
	"github.com/dispatchmon/cad-engine/internal/observability"
	"github.com/dispatchmon/cad-engine/internal/pubsub"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type fetchResult struct {
	records []domain.RawRecord
	err     error
}

// scriptedFetcher returns queued results in order, repeating the last one
// when the queue is exhausted. Every call is signalled on calls.
type scriptedFetcher struct {
	mu      sync.Mutex
	queue   []fetchResult
	calls   chan struct{}
	seen    int
	blockCh chan struct{} // when non-nil, each fetch waits here after signalling
}

func newScriptedFetcher(results ...fetchResult) *scriptedFetcher {
	return &scriptedFetcher{queue: results, calls: make(chan struct{}, 64)}
}

func (f *scriptedFetcher) FetchIncidents(_ context.Context) ([]domain.RawRecord, error) {
	f.mu.Lock()
	var res fetchResult
	if len(f.queue) > 0 {
		res = f.queue[0]
		if len(f.queue) > 1 {
			f.queue = f.queue[1:]
		}
	}
	f.seen++
	block := f.blockCh
	f.mu.Unlock()

	f.calls <- struct{}{}
	if block != nil {
		<-block
	}
	return res.records, res.err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen
}

type captureSink struct {
	mu      sync.Mutex
	batches [][]domain.Incident
	err     error
}

func (s *captureSink) PublishIncidents(_ context.Context, incs []domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, incs)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(id, callTime, units, typ string) domain.RawRecord {
	return domain.RawRecord{
		IncidentNumber: id,
		CallTime:       callTime,
		Units:          units,
		IncidentType:   typ,
		Neighbourhood:  "Downtown",
	}
}

func testOptions() engine.Options {
	return engine.Options{
		PollInterval: 30 * time.Second,
		FetchTimeout: 15 * time.Second,
		RetentionCap: 100,
	}
}

func newTestEngine(f engine.Fetcher, sink engine.Sink, clock clockwork.Clock) (*engine.Engine, *pubsub.Hub) {
	hub := pubsub.NewHub()
	e := engine.New(f, sink, hub, observability.NewMetricsForTesting(), discardLogger(), clock, testOptions())
	return e, hub
}

func awaitCall(t *testing.T, f *scriptedFetcher) {
	t.Helper()
	select {
	case <-f.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a feed fetch")
	}
}

// --- tests ---

func TestEngine_InitialCycleRunsImmediately(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := newScriptedFetcher(fetchResult{records: []domain.RawRecord{
		record("F24-1", "2024-04-26T15:10:00.000", "E1, L1", "fire rescue - structure"),
	}})
	eng, _ := newTestEngine(fetcher, nil, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	awaitCall(t, fetcher)
	require.Eventually(t, func() bool {
		return eng.CheckReadiness(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond)

	snap := eng.SnapshotIncidents()
	require.Len(t, snap, 1)
	assert.Equal(t, "F24-1", snap[0].ID)
	assert.Equal(t, []string{"E1", "L1"}, snap[0].Units)

	cancel()
	require.NoError(t, <-done)
}

func TestEngine_ScheduledTicksDriveCycles(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := newScriptedFetcher(fetchResult{})
	eng, _ := newTestEngine(fetcher, nil, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx) //nolint:errcheck

	awaitCall(t, fetcher) // initial cycle

	// The ticker is created after the initial cycle; wait for Run to block
	// on it before advancing time.
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(30 * time.Second)
	awaitCall(t, fetcher)

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(30 * time.Second)
	awaitCall(t, fetcher)

	assert.GreaterOrEqual(t, fetcher.callCount(), 3)
}

func TestEngine_FetchFailureDegradesAndRecovers(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := newScriptedFetcher(
		fetchResult{records: []domain.RawRecord{
			record("F24-1", "2024-04-26T15:10:00.000", "E1", "medical"),
		}},
		fetchResult{err: errors.New("connect timeout")},
		fetchResult{records: []domain.RawRecord{
			record("F24-1", "2024-04-26T15:10:00.000", "E1", "medical"),
		}},
	)
	eng, hub := newTestEngine(fetcher, nil, fc)

	var (
		mu       sync.Mutex
		statuses []domain.SystemStatus
	)
	hub.SubscribeStatus(func(st domain.SystemStatus) {
		mu.Lock()
		statuses = append(statuses, st)
		mu.Unlock()
	})

	// First cycle succeeds.
	require.NoError(t, eng.ForceRefresh(context.Background()))
	require.Len(t, eng.SnapshotIncidents(), 1)

	// Second cycle fails: feed flips to ERROR but the store is kept.
	err := eng.ForceRefresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.StateError, eng.Status().Feed)
	assert.Len(t, eng.SnapshotIncidents(), 1, "existing store preserved on fetch failure")

	// Third cycle recovers.
	require.NoError(t, eng.ForceRefresh(context.Background()))
	assert.Equal(t, domain.StateOnline, eng.Status().Feed)

	mu.Lock()
	defer mu.Unlock()
	// Replay + online + error + online.
	require.Len(t, statuses, 4)
	assert.Equal(t, domain.StateOnline, statuses[1].Feed)
	assert.Equal(t, domain.StateError, statuses[2].Feed)
	assert.Equal(t, domain.StateOnline, statuses[3].Feed)
	assert.Equal(t, domain.StateOnline, statuses[3].Store)
}

func TestEngine_PublishesUnitAdditionsBeforeSnapshot(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := newScriptedFetcher(
		fetchResult{records: []domain.RawRecord{
			record("F24-1", "2024-04-26T15:10:00.000", "E1", "medical"),
		}},
		fetchResult{records: []domain.RawRecord{
			record("F24-1", "2024-04-26T15:10:00.000", "E1, R4", "medical"),
		}},
	)
	eng, hub := newTestEngine(fetcher, nil, fc)

	var (
		mu    sync.Mutex
		order []string
		units []string
	)
	hub.SubscribeUnitAdditions(func(id string, u []string) {
		mu.Lock()
		order = append(order, "units:"+id)
		units = u
		mu.Unlock()
	})
	hub.SubscribeIncidents(func([]domain.Incident) {
		mu.Lock()
		order = append(order, "snapshot")
		mu.Unlock()
	})

	require.NoError(t, eng.ForceRefresh(context.Background()))
	require.NoError(t, eng.ForceRefresh(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"R4"}, units)
	// Replay, cycle-1 snapshot, then cycle-2 unit event before its snapshot.
	require.Equal(t, []string{"snapshot", "snapshot", "units:F24-1", "snapshot"}, order)
}

func TestEngine_SinkReceivesTouchedIncidents(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := newScriptedFetcher(
		fetchResult{records: []domain.RawRecord{
			record("F24-1", "2024-04-26T15:10:00.000", "E1", "medical"),
			record("F24-2", "2024-04-26T15:12:00.000", "L2", "alarm activation"),
		}},
		fetchResult{records: []domain.RawRecord{
			record("F24-1", "2024-04-26T15:10:00.000", "E1, R4", "medical"),
			record("F24-2", "2024-04-26T15:12:00.000", "L2", "alarm activation"),
		}},
	)
	sink := &captureSink{}
	eng, _ := newTestEngine(fetcher, sink, fc)

	require.NoError(t, eng.ForceRefresh(context.Background()))
	require.NoError(t, eng.ForceRefresh(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[0], 2, "first cycle: both incidents are new")
	require.Len(t, sink.batches[1], 1, "second cycle: only the modified incident")
	assert.Equal(t, "F24-1", sink.batches[1][0].ID)
}

func TestEngine_SinkFailureIsNotFatal(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := newScriptedFetcher(fetchResult{records: []domain.RawRecord{
		record("F24-1", "2024-04-26T15:10:00.000", "E1", "medical"),
	}})
	sink := &captureSink{err: errors.New("broker unreachable")}
	eng, _ := newTestEngine(fetcher, sink, fc)

	require.NoError(t, eng.ForceRefresh(context.Background()))
	assert.Equal(t, domain.StateOnline, eng.Status().Feed)
	assert.Len(t, eng.SnapshotIncidents(), 1)
}

func TestEngine_UnchangedBatchPublishesNothing(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := record("F24-1", "2024-04-26T15:10:00.000", "E1", "medical")
	fetcher := newScriptedFetcher(fetchResult{records: []domain.RawRecord{rec}})
	eng, hub := newTestEngine(fetcher, nil, fc)

	var (
		mu        sync.Mutex
		snapshots int
	)
	hub.SubscribeIncidents(func([]domain.Incident) {
		mu.Lock()
		snapshots++
		mu.Unlock()
	})

	require.NoError(t, eng.ForceRefresh(context.Background()))
	require.NoError(t, eng.ForceRefresh(context.Background()))
	require.NoError(t, eng.ForceRefresh(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, snapshots, "replay plus the single changed cycle")
}

func TestEngine_UpdateIncidentStatus(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := newScriptedFetcher(fetchResult{records: []domain.RawRecord{
		record("F24-1", "2024-04-26T15:10:00.000", "E1", "medical"),
	}})
	eng, hub := newTestEngine(fetcher, nil, fc)
	require.NoError(t, eng.ForceRefresh(context.Background()))

	var (
		mu   sync.Mutex
		last []domain.Incident
	)
	hub.SubscribeIncidents(func(incs []domain.Incident) {
		mu.Lock()
		last = incs
		mu.Unlock()
	})

	require.True(t, eng.UpdateIncidentStatus("F24-1", domain.StatusResolved))
	assert.False(t, eng.UpdateIncidentStatus("missing", domain.StatusResolved))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, last, 1)
	assert.Equal(t, domain.StatusResolved, last[0].Status)
	assert.Empty(t, last[0].ClosedTime, "manual override bypasses history synthesis")

	got := eng.SnapshotIncidents()
	require.Len(t, got, 1)
	assert.Len(t, got[0].UnitHistory, 1, "no ALL_UNITS entry appended")
}

func TestEngine_CyclesAreMutuallyExclusive(t *testing.T) {
	fetcher := newScriptedFetcher(fetchResult{})
	fetcher.blockCh = make(chan struct{})
	eng, _ := newTestEngine(fetcher, nil, clockwork.NewRealClock())

	// First refresh enters the fetch and parks there.
	go eng.ForceRefresh(context.Background()) //nolint:errcheck
	awaitCall(t, fetcher)

	// Second refresh must not reach the fetcher while the first holds the cycle.
	secondDone := make(chan struct{})
	go func() {
		eng.ForceRefresh(context.Background()) //nolint:errcheck
		close(secondDone)
	}()

	select {
	case <-fetcher.calls:
		t.Fatal("second cycle entered fetch while first was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	// Release both.
	close(fetcher.blockCh)
	awaitCall(t, fetcher)
	select {
	case <-secondDone:
	case <-time.After(5 * time.Second):
		t.Fatal("second refresh never completed")
	}
	assert.Equal(t, 2, fetcher.callCount())
}

func TestEngine_NotReadyBeforeFirstSuccessfulCycle(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := newScriptedFetcher(fetchResult{err: errors.New("boom")})
	eng, _ := newTestEngine(fetcher, nil, fc)

	require.Error(t, eng.CheckReadiness(context.Background()))
	require.Error(t, eng.ForceRefresh(context.Background()))
	assert.Error(t, eng.CheckReadiness(context.Background()), "failed cycle does not mark ready")
}
