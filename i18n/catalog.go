package i18n

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BaseLocale is used when the configured locale matches none of the catalogs.
const BaseLocale = "de-DE"

// Message keys.
const (
	KeyConfirmation    = "feedback.confirmation"
	KeyNoNames         = "feedback.no_names"
	KeyRejected        = "feedback.rejected"
	KeyBallotTitle     = "ballot.title"
	KeyBallotBody      = "ballot.body"
	KeyBallotDeadline  = "ballot.deadline"
	KeyDeadlineLayout  = "format.deadline"
	KeyReminderKeyword = "reminder.keyword"
)

var catalogs = map[string]map[string]string{
	"de-DE": {
		KeyConfirmation: "Du hast für die folgende Liste von Membern abgestimmt.\n" +
			"Überprüfe bitte, ob alle Personen, für die du abstimmen möchtest, enthalten sind.",
		KeyNoNames: "Du hast keinen mir bekannten Namen eingegeben :(\n" +
			"Denke daran, @name zu schreiben und nur für existierende Member abzustimmen ;)",
		KeyRejected: "Für die folgenden Personen konnte nicht abgestimmt werden. Bitte überprüfe deine Eingabe." +
			" Solltest du nichts ändern, werden diese Einträge ignoriert.",
		KeyBallotTitle: "Abstimmung",
		KeyBallotBody: "Hallo!\n" +
			"Bitte schreibe mir die Member, die du wählen möchtest, in der gewünschten Reihenfolge zurück. " +
			"Setze vor jeden Namen ein @, zum Beispiel @name. " +
			"Du kannst deine Liste jederzeit ändern, indem du einfach eine neue Nachricht schickst.",
		KeyBallotDeadline:  "Abstimmen kannst du bis %s.",
		KeyDeadlineLayout:  "02.01.2006 15:04",
		KeyReminderKeyword: "Erinnerung",
	},
	"en-US": {
		KeyConfirmation: "You voted for the following list of members.\n" +
			"Please check that everybody you want to vote for is included.",
		KeyNoNames: "You did not enter any name I know :(\n" +
			"Remember to write @name and to vote for existing members only ;)",
		KeyRejected: "The following names could not be voted for. Please check your input." +
			" If you change nothing, these entries will be ignored.",
		KeyBallotTitle: "Election",
		KeyBallotBody: "Hi!\n" +
			"Please reply with the members you want to elect, in order of preference. " +
			"Put an @ in front of every name, for example @name. " +
			"You can change your list at any time by sending a new message.",
		KeyBallotDeadline:  "Voting is open until %s.",
		KeyDeadlineLayout:  "Jan 2, 2006 15:04",
		KeyReminderKeyword: "Reminder",
	},
}

var (
	supported []language.Tag
	matcher   language.Matcher
)

func init() {
	if err := register(); err != nil {
		panic(err)
	}
}

// register pushes every catalog into the x/text message catalog.
func register() error {
	locales := Locales()
	supported = make([]language.Tag, 0, len(locales))
	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		for key, value := range catalogs[locale] {
			if err := message.SetString(tag, key, value); err != nil {
				return fmt.Errorf("register %s/%s: %w", locale, key, err)
			}
		}
		supported = append(supported, tag)
	}
	matcher = language.NewMatcher(supported)
	return nil
}

// Locales returns the available locales, base locale first.
func Locales() []string {
	out := make([]string, 0, len(catalogs))
	for locale := range catalogs {
		if locale != BaseLocale {
			out = append(out, locale)
		}
	}
	sort.Strings(out)
	return append([]string{BaseLocale}, out...)
}
