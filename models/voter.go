package models

import "time"

// VoterRecord is one entry of the forum roster snapshot.
type VoterRecord struct {
	Username    string     `json:"username"`
	Active      bool       `json:"active"`
	SuspendedAt *time.Time `json:"suspended_at,omitempty"`
}

// ElectionResult is the anonymized tally of all open ballots.
type ElectionResult struct {
	Lists [][]string `json:"lists"` // one legal vote list per ballot, in random order
	Voted int        `json:"voted"`
	Total int        `json:"total"`
}
