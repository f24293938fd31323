package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIncidentType(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"exact match", "mva", "Motor Vehicle Accident"},
		{"exact match mixed case", "HAZMAT", "Hazardous Materials"},
		{"exact match with padding", "  ems  ", "Medical Emergency"},
		{"structure fire rescue", "fire rescue - structure", "Structure Fire/Rescue"},
		{"vehicle fire rescue", "FIRE RESCUE - VEHICLE", "Vehicle Fire/Rescue"},
		{"substring match", "reported mva on route 90", "Motor Vehicle Accident"},
		{"substring alarm activation", "ALARM ACTIVATION - COMMERCIAL", "Alarm Activation"},
		{"unmatched title-cased", "GRASS FIRE NEAR RIVER", "Grass Fire Near River"},
		{"empty", "", "Unknown"},
		{"whitespace only", "   ", "Unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeIncidentType(tc.raw))
		})
	}
}

func TestBasePriority(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Priority
	}{
		{"structure fire critical", "STRUCTURE FIRE", PriorityCritical},
		{"cardiac critical", "cardiac arrest", PriorityCritical},
		{"hazmat critical", "possible hazmat spill", PriorityCritical},
		{"explosion critical", "explosion reported", PriorityCritical},
		{"mva high", "MVA with injuries", PriorityHigh},
		{"gas leak high", "gas leak - residential", PriorityHigh},
		{"chest pain high", "chest pain complaint", PriorityHigh},
		{"alarm medium", "fire alarm activation", PriorityMedium},
		{"brush fire medium", "brush fire", PriorityMedium},
		{"welfare check medium", "welfare check request", PriorityMedium},
		{"unknown low", "assist citizen", PriorityLow},
		{"empty low", "", PriorityLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BasePriority(tc.raw))
		})
	}
}

// Critical keywords take precedence over lower tiers when both match.
func TestBasePriority_CriticalWinsOverMedium(t *testing.T) {
	assert.Equal(t, PriorityCritical, BasePriority("structure fire alarm"))
}

func TestEscalatePriority(t *testing.T) {
	cases := []struct {
		name    string
		typ     string
		count   int
		current Priority
		want    Priority
	}{
		{"non-alarm five units escalates", "Structure Fire/Rescue", 5, PriorityHigh, PriorityCritical},
		{"non-alarm four units preserved", "Structure Fire/Rescue", 4, PriorityHigh, PriorityHigh},
		{"alarm six units escalates", "Alarm Activation", 6, PriorityMedium, PriorityCritical},
		{"alarm five units preserved", "Alarm Activation", 5, PriorityMedium, PriorityMedium},
		{"never downgrades", "Alarm Activation", 0, PriorityCritical, PriorityCritical},
		{"zero units preserved", "Medical Emergency", 0, PriorityLow, PriorityLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EscalatePriority(tc.typ, tc.count, tc.current))
		})
	}
}
