package i18n

import (
	"fmt"
	"time"

	"ballot-bot/ballot"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Localizer renders every text the bot writes in one locale.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Localizer for the closest supported match of locale.
func New(locale string) Localizer {
	tag := supported[0]
	if requested, err := language.Parse(locale); err == nil {
		if _, index, confidence := matcher.Match(requested); confidence != language.No {
			tag = supported[index]
		}
	}
	return Localizer{tag: tag, printer: message.NewPrinter(tag)}
}

// Tag returns the locale the Localizer settled on.
func (l Localizer) Tag() language.Tag {
	return l.tag
}

// Text returns the message registered under key.
func (l Localizer) Text(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}

// Texts returns the building blocks of feedback messages.
func (l Localizer) Texts() ballot.Texts {
	return ballot.Texts{
		Confirmation: l.Text(KeyConfirmation),
		NoNames:      l.Text(KeyNoNames),
		Rejected:     l.Text(KeyRejected),
	}
}

// FormatDeadline formats t with the locale's date layout.
func (l Localizer) FormatDeadline(t time.Time) string {
	return t.Format(l.Text(KeyDeadlineLayout))
}

// BallotBody returns body followed by the deadline sentence, if a deadline is set.
func (l Localizer) BallotBody(body string, deadline time.Time) string {
	if body == "" {
		body = l.Text(KeyBallotBody)
	}
	if deadline.IsZero() {
		return body
	}
	return fmt.Sprintf("%s\n\n%s", body, l.Text(KeyBallotDeadline, l.FormatDeadline(deadline)))
}
