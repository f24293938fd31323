// Package domain models City of Winnipeg Computer-Aided Dispatch (CAD) incident data.
//
// # Data Source
//
// Incidents originate from the Winnipeg Open Data portal's live fire and
// paramedic dispatch dataset (https://data.winnipeg.ca/resource/yg42-q284.json),
// a Socrata endpoint that exposes currently-tracked calls as flat JSON. A single
// fetch returns incidents ordered by call time descending, capped at 1000 rows.
// The feed is a snapshot of currently-tracked incidents, not a full history:
// an incident absent from one fetch may reappear in a later one.
//
// # Feed Conventions
//
// Unit lists:
//
//	Free text, delimited by commas, semicolons, pipes, tabs, or whitespace runs.
//	Unit mentions mix short codes ("E12", "L2") with spelled-out forms
//	("ENGINE12", "LADDER2") and filler words ("AND", "RESPONDING").
//	[ParseUnits] canonicalizes these into deduplicated short codes:
//
//	  ENGINE# → E#    LADDER# → L#    RESCUE# → R#
//	  SQUAD# / SPECIAL# / SUPPORT# → S#
//	  DISTRICT# → D#  FIRE# → FI#
//	  P# → #          bare 1-3 digit numbers pass through
//
//	A paramedic code "P12" and a bare "12" may denote the same physical unit;
//	roster-level aliasing is out of scope here, so "E12" and "12" survive as
//	distinct codes. First-seen order wins and later duplicates are dropped.
//
// Call and closed times:
//
//	Socrata floating timestamps, e.g. "2024-04-26T15:10:00.000" (no zone, UTC
//	by convention). Unparseable call times fall back to the current time;
//	unparseable closed times are kept verbatim in the raw passthrough fields
//	but treated as absent.
//
// Incident types:
//
//	Free text such as "FIRE RESCUE - STRUCTURE" or "mva". Canonicalized by an
//	exact-match table, then a substring pass, then title-casing as a last
//	resort. A motor_vehicle_incident flag of "YES" decorates the final label
//	with a "Motor Vehicle Incident - " prefix.
//
// Priority:
//
//	Derived, not upstream data. A keyword tier (critical, high, medium, low)
//	gives the base priority; the unit-count escalation rule can then force
//	CRITICAL (5+ units, or 6+ for alarm calls). Escalation never downgrades.
//
// Status:
//
//	The feed only distinguishes open (no closed_time) from closed. Open calls
//	normalize to DISPATCHED, closed calls to RESOLVED. Intermediate states
//	(EN_ROUTE, ON_SCENE) exist in the model for manual overrides; the engine
//	records whatever upstream reports and does not enforce transition legality.
package domain
