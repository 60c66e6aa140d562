package ballot

import "strings"

// Separator divides the sections of a feedback message.
const Separator = "\n\n-----\n\n"

// Texts are the localized building blocks of a feedback message.
type Texts struct {
	// Confirmation heads the list of accepted names and asks the voter to verify it.
	Confirmation string
	// NoNames is sent when not a single eligible name was recognized.
	NoNames string
	// Rejected heads the list of names that could not be counted.
	Rejected string
}

// ComposeFeedback builds the reply to a voter from their vote list and its legal part.
// Exactly one of three forms is produced:
//   - no legal name: the NoNames text
//   - some names rejected: the rejected names, then the confirmation body
//   - all names accepted: the confirmation body
func ComposeFeedback(votes, legal []string, texts Texts) string {
	if len(legal) == 0 {
		return texts.NoNames
	}
	confirmation := texts.Confirmation + Separator + strings.Join(legal, "\n")
	if len(legal) < len(votes) {
		return texts.Rejected + "\n" + strings.Join(rejectedNames(votes, legal), "\n") + Separator + confirmation
	}
	return confirmation
}

func rejectedNames(votes, legal []string) []string {
	accepted := NewSet(legal...)
	var rejected []string
	for _, name := range votes {
		if !accepted.Contains(name) {
			rejected = append(rejected, name)
		}
	}
	return rejected
}
