package domain

import (
	"regexp"
	"strings"
)

// maxUnits caps the number of unit codes kept from a single record. Feed rows
// occasionally contain garbage runs that would otherwise balloon the list.
const maxUnits = 15

// unitSplitRe separates unit mentions on commas, semicolons, pipes, tabs, or
// whitespace runs.
var unitSplitRe = regexp.MustCompile(`[,;|\t\s]+`)

// unitStopWords are filler tokens that appear between unit mentions in the
// free-text feed field and never name a unit.
var unitStopWords = map[string]struct{}{
	"AND": {}, "PLUS": {}, "WITH": {}, "ALSO": {},
	"RESPONDING": {}, "DISPATCH": {}, "DISPATCHED": {},
}

// unitPatterns rewrite spelled-out unit forms to canonical short codes. Order
// matters: the first matching rule wins. Tokens are upper-cased before
// matching, so the patterns only need upper-case forms. A "P" prefix is
// dropped entirely (paramedic units are identified by bare number), and bare
// 1-3 digit numbers pass through unchanged.
var unitPatterns = []struct {
	re     *regexp.Regexp
	prefix string
}{
	{regexp.MustCompile(`^E(\d+)$`), "E"},
	{regexp.MustCompile(`^ENGINE(\d+)$`), "E"},
	{regexp.MustCompile(`^L(\d+)$`), "L"},
	{regexp.MustCompile(`^LADDER(\d+)$`), "L"},
	{regexp.MustCompile(`^R(\d+)$`), "R"},
	{regexp.MustCompile(`^RESCUE(\d+)$`), "R"},
	{regexp.MustCompile(`^S(\d+)$`), "S"},
	{regexp.MustCompile(`^SQUAD(\d+)$`), "S"},
	{regexp.MustCompile(`^SPECIAL(\d+)$`), "S"},
	{regexp.MustCompile(`^SUPPORT(\d+)$`), "S"},
	{regexp.MustCompile(`^D(\d+)$`), "D"},
	{regexp.MustCompile(`^DISTRICT(\d+)$`), "D"},
	{regexp.MustCompile(`^FI(\d+)$`), "FI"},
	{regexp.MustCompile(`^FIRE(\d+)$`), "FI"},
	{regexp.MustCompile(`^P(\d+)$`), ""},
	{regexp.MustCompile(`^(\d{1,3})$`), ""},
}

// unitLikeRes accept tokens that match no rewrite rule but still look like a
// unit code: letters-then-digits, or digits-then-optional-letters.
var unitLikeRes = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]+\d+$`),
	regexp.MustCompile(`^\d+[A-Z]*$`),
}

// ParseUnits parses a free-text responding-units field into an ordered,
// deduplicated list of canonical unit codes, capped at 15 entries. First-seen
// order is preserved; later duplicates of an already-kept code are dropped.
// Empty or all-whitespace input yields nil. ParseUnits never fails.
//
// Note that canonicalization happens per token, so "ENGINE12, E12, 12" yields
// ["E12", "12"]: both spellings of engine 12 collapse, but the bare number is
// a distinct code (it may be a paramedic unit, see the package doc).
func ParseUnits(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var (
		units []string
		seen  = map[string]struct{}{}
	)
	keep := func(code string) {
		if _, dup := seen[code]; dup {
			return
		}
		seen[code] = struct{}{}
		units = append(units, code)
	}

	for _, raw := range unitSplitRe.Split(s, -1) {
		token := strings.ToUpper(strings.TrimSpace(raw))
		if token == "" {
			continue
		}
		if _, stop := unitStopWords[token]; stop {
			continue
		}

		if code, ok := rewriteUnit(token); ok {
			keep(code)
			continue
		}

		// No rule matched; keep the token verbatim if it looks unit-like.
		if len(token) < 10 && looksUnitLike(token) {
			keep(token)
		}
	}

	if len(units) > maxUnits {
		units = units[:maxUnits]
	}
	return units
}

func rewriteUnit(token string) (string, bool) {
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(token); m != nil {
			return p.prefix + m[1], true
		}
	}
	return "", false
}

func looksUnitLike(token string) bool {
	for _, re := range unitLikeRes {
		if re.MatchString(token) {
			return true
		}
	}
	return false
}
