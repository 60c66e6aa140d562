package ballot

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MentionPattern is the grammar of a vote: "@" followed by letters (umlauts and ß
// included), digits, underscores or hyphens.
const MentionPattern = `@[\p{L}0-9_-]+`

var (
	mentionRegexp     = regexp.MustCompile(MentionPattern)
	mentionableRegexp = regexp.MustCompile("^" + MentionPattern + "$")
)

// Mentionable reports whether username can be written as a single mention.
func Mentionable(username string) bool {
	return mentionableRegexp.MatchString("@" + username)
}

// ExtractMentions returns the usernames mentioned in a rendered post body, in order of
// first appearance, lower-cased and without the leading "@". Case variants of an already
// seen name are dropped.
func ExtractMentions(text string) []string {
	names := []string{}
	seen := make(map[string]bool)
	for _, match := range mentionRegexp.FindAllString(text, -1) {
		name := Normalize(match[1:])
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Normalize lower-cases a username the way every set in this package stores it.
func Normalize(username string) string {
	return cases.Lower(language.Und).String(username)
}
