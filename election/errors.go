package election

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingRoster is returned when no roster snapshot has been saved yet.
	ErrMissingRoster = errors.New("roster snapshot not found")
	// ErrEmptyRoster is returned when initiation is requested without any users.
	ErrEmptyRoster = errors.New("did not get any users")
	// ErrMalformedReminder is returned when a reminder message lacks the reminder marker.
	ErrMalformedReminder = errors.New("reminder message does not contain the reminder marker")
)

// ValidateReminder checks that message carries marker, so the reminder post is later
// recognized and never edited.
func ValidateReminder(message, marker string) error {
	if marker == "" || !strings.Contains(message, marker) {
		return fmt.Errorf("%w: message should contain the keyword %q", ErrMalformedReminder, marker)
	}
	return nil
}
