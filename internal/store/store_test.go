package store

import (
	"fmt"
	"testing"

	"github.com/dispatchmon/cad-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incidents(ids ...string) []domain.Incident {
	out := make([]domain.Incident, len(ids))
	for i, id := range ids {
		out[i] = domain.Incident{ID: id, Status: domain.StatusDispatched, Units: []string{"E1"}}
	}
	return out
}

func TestReplaceAndSnapshot(t *testing.T) {
	s := New(10)
	s.Replace(incidents("a", "b", "c"))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "c", snap[2].ID)
	assert.Equal(t, 3, s.Len())
}

func TestReplace_DeduplicatesById(t *testing.T) {
	s := New(10)
	first := domain.Incident{ID: "a", Neighborhood: "Downtown"}
	second := domain.Incident{ID: "a", Neighborhood: "St. Vital"}
	s.Replace([]domain.Incident{first, second})

	require.Equal(t, 1, s.Len())
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Downtown", got.Neighborhood, "first occurrence wins")
}

func TestReplace_EvictsBeyondCap(t *testing.T) {
	s := New(100)

	// Feed 120 distinct ids across successive cycles, newest prepended, the
	// way the reconciler merges. The oldest arrivals must fall off the tail.
	var current []domain.Incident
	for i := 0; i < 120; i++ {
		in := domain.Incident{ID: fmt.Sprintf("inc-%03d", i)}
		current = append([]domain.Incident{in}, current...)
		s.Replace(current)
		current = s.Snapshot()
	}

	assert.Equal(t, 100, s.Len())
	snap := s.Snapshot()
	assert.Equal(t, "inc-119", snap[0].ID, "newest arrival kept at head")
	assert.Equal(t, "inc-020", snap[99].ID, "oldest surviving arrival at tail")

	_, ok := s.Get("inc-000")
	assert.False(t, ok, "oldest arrival evicted")
}

func TestSnapshot_ReturnsDeepCopies(t *testing.T) {
	s := New(10)
	s.Replace(incidents("a"))

	snap := s.Snapshot()
	snap[0].Units[0] = "tampered"
	snap[0].Status = domain.StatusResolved

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "E1", got.Units[0])
	assert.Equal(t, domain.StatusDispatched, got.Status)
}

func TestUpdateStatus(t *testing.T) {
	s := New(10)
	s.Replace(incidents("a", "b"))

	// Hold a snapshot across the update; it must not observe the change.
	before := s.Snapshot()

	require.True(t, s.UpdateStatus("a", domain.StatusResolved))
	assert.False(t, s.UpdateStatus("missing", domain.StatusResolved))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, domain.StatusResolved, got.Status)
	assert.Equal(t, domain.StatusDispatched, before[0].Status)
}

func TestGet_UnknownId(t *testing.T) {
	s := New(10)
	_, ok := s.Get("nope")
	assert.False(t, ok)
}
