package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TopicID identifies a ballot thread on the forum.
// Discourse uses integers, Discord uses snowflake strings; both are kept as text.
type TopicID string

// UnmarshalJSON accepts both a JSON number and a JSON string, so topic lists
// written as plain integers remain readable.
func (t *TopicID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TopicID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("topic id must be a string or number: %w", err)
	}
	*t = TopicID(n.String())
	return nil
}

// BallotTopic is the private thread opened for a single voter.
type BallotTopic struct {
	TopicID        TopicID `json:"topic_id"`
	TargetUsername string  `json:"target_username"`
}

// Post represents one message inside a ballot thread.
type Post struct {
	ID      string  `json:"id"`
	TopicID TopicID `json:"topic_id"`
	Self    bool    `json:"self"` // authored by the bot account
	Body    string  `json:"body"` // rendered text
}
