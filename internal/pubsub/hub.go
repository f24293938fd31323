// Package pubsub fans engine state out to registered observers. Delivery is
// synchronous and in subscriber-registration order; incident and status
// subscribers receive the current value immediately on subscribe
// (replay-on-subscribe), unit-addition subscribers only receive future events.
//
// Callbacks run under the hub lock and must not re-enter the hub.
package pubsub

import (
	"sync"

	"github.com/dispatchmon/cad-engine/internal/domain"
)

// IncidentFunc receives the full incident snapshot after each change.
type IncidentFunc func([]domain.Incident)

// StatusFunc receives feed/store health updates.
type StatusFunc func(domain.SystemStatus)

// UnitAdditionFunc receives the ids of units newly attached to an incident.
type UnitAdditionFunc func(incidentID string, units []string)

// Hub is the engine's subscription registry.
type Hub struct {
	mu            sync.Mutex
	incidentSubs  []IncidentFunc
	statusSubs    []StatusFunc
	unitSubs      []UnitAdditionFunc
	lastIncidents []domain.Incident
	lastStatus    domain.SystemStatus
}

// NewHub creates a hub. Both components start ONLINE; the first failed fetch
// flips the feed state.
func NewHub() *Hub {
	return &Hub{
		lastStatus: domain.SystemStatus{Feed: domain.StateOnline, Store: domain.StateOnline},
	}
}

// SubscribeIncidents registers an incident observer and immediately replays
// the last published snapshot (empty before the first cycle).
func (h *Hub) SubscribeIncidents(fn IncidentFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.incidentSubs = append(h.incidentSubs, fn)
	fn(h.lastIncidents)
}

// SubscribeStatus registers a status observer and immediately replays the
// current system status.
func (h *Hub) SubscribeStatus(fn StatusFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusSubs = append(h.statusSubs, fn)
	fn(h.lastStatus)
}

// SubscribeUnitAdditions registers a unit-addition observer. No replay: these
// are transient events, not state.
func (h *Hub) SubscribeUnitAdditions(fn UnitAdditionFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unitSubs = append(h.unitSubs, fn)
}

// PublishIncidents delivers a snapshot to all incident subscribers and
// retains it for replay.
func (h *Hub) PublishIncidents(incidents []domain.Incident) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastIncidents = incidents
	for _, fn := range h.incidentSubs {
		fn(incidents)
	}
}

// PublishStatus delivers a status update to all status subscribers and
// retains it for replay.
func (h *Hub) PublishStatus(status domain.SystemStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastStatus = status
	for _, fn := range h.statusSubs {
		fn(status)
	}
}

// PublishUnitAdditions delivers one unit-addition event to all unit
// subscribers.
func (h *Hub) PublishUnitAdditions(incidentID string, units []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, fn := range h.unitSubs {
		fn(incidentID, units)
	}
}

// Status returns the last published system status.
func (h *Hub) Status() domain.SystemStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastStatus
}
