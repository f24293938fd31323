package domain

import "time"

// Priority is the derived urgency tier of an incident.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Status is the lifecycle state of an incident as reported upstream.
// The conceptual forward path is PENDING → DISPATCHED → EN_ROUTE → ON_SCENE →
// RESOLVED, but upstream is authoritative and may skip or repeat states.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusDispatched Status = "DISPATCHED"
	StatusEnRoute    Status = "EN_ROUTE"
	StatusOnScene    Status = "ON_SCENE"
	StatusResolved   Status = "RESOLVED"

	// StatusAvailable is used only in unit history entries, marking units
	// released when an incident resolves.
	StatusAvailable Status = "AVAILABLE"
)

// HistoryAction describes one kind of unit history entry.
type HistoryAction string

const (
	ActionAdded        HistoryAction = "ADDED"
	ActionRemoved      HistoryAction = "REMOVED"
	ActionStatusChange HistoryAction = "STATUS_CHANGE"
)

// AllUnits is the sentinel unit code for incident-wide history entries.
const AllUnits = "ALL_UNITS"

// UnitHistoryEntry is one event in an incident's append-only unit audit trail.
type UnitHistoryEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	Action    HistoryAction `json:"action"`
	Unit      string        `json:"unit"`
	Status    Status        `json:"status,omitempty"`
	Notes     string        `json:"notes,omitempty"`
}

// Incident is one dispatched emergency call tracked by ID through its
// lifecycle. Values are treated as immutable once published: updates build a
// new Incident with cloned slices rather than mutating in place.
type Incident struct {
	ID           string     `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Neighborhood string     `json:"neighborhood"`
	Address      string     `json:"address"`
	Units        []string   `json:"units"`
	Type         string     `json:"type"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	ClosedTime   *time.Time `json:"closed_time,omitempty"`

	// UnitHistory grows monotonically; entries are never deleted or reordered.
	UnitHistory []UnitHistoryEntry `json:"unit_history,omitempty"`

	// Raw feed fields, retained for traceability and never interpreted.
	RawType       string `json:"raw_type,omitempty"`
	District      string `json:"district,omitempty"`
	RawUnits      string `json:"raw_units,omitempty"`
	RawClosedTime string `json:"raw_closed_time,omitempty"`
	MotorVehicle  string `json:"motor_vehicle_incident,omitempty"`
}

// Clone returns a deep copy of the incident. Units and UnitHistory share no
// backing arrays with the original.
func (in Incident) Clone() Incident {
	cp := in
	if in.Units != nil {
		cp.Units = append([]string(nil), in.Units...)
	}
	if in.UnitHistory != nil {
		cp.UnitHistory = append([]UnitHistoryEntry(nil), in.UnitHistory...)
	}
	if in.ClosedTime != nil {
		t := *in.ClosedTime
		cp.ClosedTime = &t
	}
	return cp
}

// RawRecord is one row of the Socrata CAD feed as fetched, before
// normalization.
type RawRecord struct {
	IncidentNumber string `json:"incident_number"`
	CallTime       string `json:"call_time"`
	IncidentType   string `json:"incident_type"`
	ClosedTime     string `json:"closed_time,omitempty"`
	MotorVehicle   string `json:"motor_vehicle_incident,omitempty"`
	Units          string `json:"units"`
	Neighbourhood  string `json:"neighbourhood"`
	Ward           string `json:"ward"`
}

// ComponentState is the health of one engine component.
type ComponentState string

const (
	StateOnline ComponentState = "ONLINE"
	StateError  ComponentState = "ERROR"
)

// SystemStatus reports feed and store health to status subscribers.
type SystemStatus struct {
	Feed  ComponentState `json:"feed"`
	Store ComponentState `json:"store"`
}
