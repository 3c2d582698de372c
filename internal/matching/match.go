// Package matching selects volunteers for an event by skill overlap.
//
// A volunteer qualifies when at least one of their skills appears in the
// event's required set. There is no ranking or weighting: any overlap is a
// match, and an event that requires nothing matches nobody.
package matching

import "strings"

// Volunteer is the minimal view of a roster member needed for matching.
type Volunteer struct {
	UserID   uint64
	FullName string
	Skills   []string
}

// Candidate is a roster member that passed the filter, with the skills that
// made it qualify.
type Candidate struct {
	Volunteer
	SharedSkills []string
}

func key(label string) string { return strings.ToLower(strings.TrimSpace(label)) }

func skillSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if k := key(l); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// Matches reports whether required and skills share at least one label.
func Matches(required, skills []string) bool {
	req := skillSet(required)
	if len(req) == 0 {
		return false
	}
	for _, s := range skills {
		if _, ok := req[key(s)]; ok {
			return true
		}
	}
	return false
}

// SharedSkills returns the volunteer's labels that are also required, in the
// volunteer's order and spelling, without duplicates.
func SharedSkills(required, skills []string) []string {
	req := skillSet(required)
	var out []string
	seen := make(map[string]bool)
	for _, s := range skills {
		k := key(s)
		if _, ok := req[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

// Filter returns the roster members whose skills intersect required,
// preserving roster order.
func Filter(required []string, roster []Volunteer) []Volunteer {
	out := make([]Volunteer, 0, len(roster))
	if len(skillSet(required)) == 0 {
		return out
	}
	for _, v := range roster {
		if Matches(required, v.Skills) {
			out = append(out, v)
		}
	}
	return out
}

// Candidates is Filter with the shared skills attached to each result.
func Candidates(required []string, roster []Volunteer) []Candidate {
	matched := Filter(required, roster)
	out := make([]Candidate, 0, len(matched))
	for _, v := range matched {
		out = append(out, Candidate{Volunteer: v, SharedSkills: SharedSkills(required, v.Skills)})
	}
	return out
}
