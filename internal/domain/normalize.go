package domain

import (
	"strings"
	"time"
)

// Socrata floating timestamps carry no zone; UTC by convention. Layouts are
// tried in order, RFC3339 first for records that do carry an offset.
var feedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// NormalizeRecord converts one raw feed record into a canonical Incident with
// its seed unit history. Malformed fields degrade to documented fallbacks;
// NormalizeRecord never fails and never rejects a record.
func NormalizeRecord(rec RawRecord) Incident {
	callTime := parseFeedTime(rec.CallTime)
	if callTime.IsZero() {
		callTime = clock.Now().UTC()
	}

	units := ParseUnits(rec.Units)
	canonicalType := NormalizeIncidentType(rec.IncidentType)
	if rec.MotorVehicle == "YES" {
		canonicalType = "Motor Vehicle Incident - " + canonicalType
	}

	// Base priority keys off the raw type; escalation off the unit count.
	priority := EscalatePriority(rec.IncidentType, len(units), BasePriority(rec.IncidentType))

	var closedTime *time.Time
	if t := parseFeedTime(rec.ClosedTime); !t.IsZero() {
		closedTime = &t
	}

	status := StatusDispatched
	if closedTime != nil {
		status = StatusResolved
	}

	history := make([]UnitHistoryEntry, 0, len(units)+1)
	for _, unit := range units {
		history = append(history, UnitHistoryEntry{
			Timestamp: callTime,
			Action:    ActionAdded,
			Unit:      unit,
			Status:    StatusDispatched,
			Notes:     "Initial dispatch",
		})
	}
	if closedTime != nil {
		history = append(history, UnitHistoryEntry{
			Timestamp: *closedTime,
			Action:    ActionStatusChange,
			Unit:      AllUnits,
			Status:    StatusAvailable,
			Notes:     "Incident resolved - all units available",
		})
	}

	return Incident{
		ID:           rec.IncidentNumber,
		Timestamp:    callTime,
		Neighborhood: fallbackLocation(rec.Neighbourhood, rec.Ward, "Unknown"),
		Address:      fallbackLocation(rec.Neighbourhood, rec.Ward, "Location not specified"),
		Units:        units,
		Type:         canonicalType,
		Priority:     priority,
		Status:       status,
		ClosedTime:   closedTime,
		UnitHistory:  history,

		RawType:       rec.IncidentType,
		District:      rec.Ward,
		RawUnits:      rec.Units,
		RawClosedTime: rec.ClosedTime,
		MotorVehicle:  rec.MotorVehicle,
	}
}

// parseFeedTime parses a feed timestamp, returning the zero time on failure.
func parseFeedTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// fallbackLocation picks the best available location label: the neighbourhood
// text, then a ward label, then the given last-resort fallback.
func fallbackLocation(neighbourhood, ward, fallback string) string {
	if n := strings.TrimSpace(neighbourhood); n != "" {
		return n
	}
	if w := strings.TrimSpace(ward); w != "" {
		return "Ward " + w
	}
	return fallback
}
