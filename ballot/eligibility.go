package ballot

import "ballot-bot/models"

// ReservedUsernames are system and bot identities that can never vote or be voted for.
var ReservedUsernames = []string{"flipbot", "flipbot_test", "discobot", "alternative_vote_bot"}

// Set is a set of lower-case usernames.
type Set map[string]struct{}

// NewSet builds a Set from the given names, normalizing each of them.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, name := range names {
		s[Normalize(name)] = struct{}{}
	}
	return s
}

// Contains reports whether the set holds the name, compared case-insensitively.
func (s Set) Contains(name string) bool {
	_, ok := s[Normalize(name)]
	return ok
}

// Len returns the number of names in the set.
func (s Set) Len() int {
	return len(s)
}

// IsEligible reports whether a roster entry may take part in the election: it must be
// active, not suspended and not one of the reserved identities.
func IsEligible(record models.VoterRecord, reserved Set) bool {
	return record.Active && record.SuspendedAt == nil && !reserved.Contains(record.Username)
}

// EligibleSet derives the lower-case usernames of all eligible roster entries.
func EligibleSet(roster []models.VoterRecord, reserved Set) Set {
	eligible := make(Set)
	for _, record := range roster {
		if IsEligible(record, reserved) {
			eligible[Normalize(record.Username)] = struct{}{}
		}
	}
	return eligible
}

// FilterLegal keeps the votes that name an eligible voter. Order is preserved.
func FilterLegal(votes []string, eligible Set) []string {
	legal := []string{}
	for _, name := range votes {
		if eligible.Contains(name) {
			legal = append(legal, Normalize(name))
		}
	}
	return legal
}
