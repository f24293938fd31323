package domain

import "strings"

// typeTable maps lower-cased feed type strings to canonical labels. Checked
// exact-match first, then by substring in declaration order, so more specific
// keys must precede shorter ones they contain.
var typeTable = []struct {
	key   string
	label string
}{
	{"fire rescue - outdoor", "Outdoor Fire/Rescue"},
	{"fire rescue - indoor", "Indoor Fire/Rescue"},
	{"fire rescue - vehicle", "Vehicle Fire/Rescue"},
	{"fire rescue - structure", "Structure Fire/Rescue"},
	{"medical", "Medical Emergency"},
	{"ems", "Medical Emergency"},
	{"mva", "Motor Vehicle Accident"},
	{"mvc", "Motor Vehicle Collision"},
	{"alarm activation", "Alarm Activation"},
	{"hazmat", "Hazardous Materials"},
}

// Priority keyword tiers, checked most severe first. Matching is substring on
// the lower-cased raw type.
var (
	criticalKeywords = []string{
		"structure fire", "building fire", "house fire", "cardiac", "heart attack",
		"stroke", "unconscious", "not breathing", "explosion", "hazmat",
	}
	highKeywords = []string{
		"medical emergency", "ems", "motor vehicle accident", "mva", "collision",
		"vehicle fire", "gas leak", "chest pain", "difficulty breathing",
	}
	mediumKeywords = []string{
		"alarm", "grass fire", "brush fire", "lift assist", "welfare check",
	}
)

// NormalizeIncidentType canonicalizes a raw feed type string into a
// human-presentable label. Unmatched types are title-cased word by word;
// empty input yields "Unknown".
func NormalizeIncidentType(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown"
	}

	normalized := strings.ToLower(strings.TrimSpace(raw))

	for _, e := range typeTable {
		if normalized == e.key {
			return e.label
		}
	}
	for _, e := range typeTable {
		if strings.Contains(normalized, e.key) {
			return e.label
		}
	}

	return titleCase(raw)
}

// BasePriority classifies a raw type string into a priority tier by keyword.
// Empty input yields LOW.
func BasePriority(raw string) Priority {
	if strings.TrimSpace(raw) == "" {
		return PriorityLow
	}

	normalized := strings.ToLower(raw)

	if containsAny(normalized, criticalKeywords) {
		return PriorityCritical
	}
	if containsAny(normalized, highKeywords) {
		return PriorityHigh
	}
	if containsAny(normalized, mediumKeywords) {
		return PriorityMedium
	}
	return PriorityLow
}

// EscalatePriority forces CRITICAL once the responding unit count crosses a
// threshold: 6+ units for alarm calls (which routinely draw large initial
// assignments), 5+ for everything else. It only ever escalates; below the
// threshold the current priority is preserved.
func EscalatePriority(typ string, unitCount int, current Priority) Priority {
	isAlarm := strings.Contains(strings.ToLower(typ), "alarm")

	if isAlarm && unitCount >= 6 {
		return PriorityCritical
	}
	if !isAlarm && unitCount >= 5 {
		return PriorityCritical
	}
	return current
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
