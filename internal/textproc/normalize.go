package textproc

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholder tokens substituted for structured substrings
const (
	URLToken    = "URL"
	EmailToken  = "EMAIL"
	NumberToken = "NUMBER"
)

// nonSpace matches any rune strings.Fields would not split on
const nonSpace = `[^\s\v\x{85}\p{Z}]`

var (
	urlPattern     = regexp.MustCompile(`http` + nonSpace + `+|www` + nonSpace + `+|https` + nonSpace + `+`)
	emailPattern   = regexp.MustCompile(nonSpace + `+@` + nonSpace + `+`)
	digitPattern   = regexp.MustCompile(`\p{Nd}+`)
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	upperRun       = regexp.MustCompile(`[\p{Lu}\p{Lt}]+`)
	placeholderRun = regexp.MustCompile(`^(?:` + URLToken + `|` + EmailToken + `|` + NumberToken + `)+$`)
)

// Normalize cleans email text for vectorization. It never fails: invalid
// UTF-8 is dropped and empty input yields the empty string. Applying it to its
// own output is a no-op.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToValidUTF8(text, "")

	text = lower(text)
	text = urlPattern.ReplaceAllString(text, URLToken)
	text = emailPattern.ReplaceAllString(text, EmailToken)
	text = digitPattern.ReplaceAllString(text, NumberToken)
	text = nonWordPattern.ReplaceAllString(text, " ")

	return strings.Join(strings.Fields(text), " ")
}

// NormalizeAll normalizes every text, preserving order
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Normalize(t)
	}
	return out
}

// lower lowercases text except for runs of placeholder tokens left by an
// earlier pass. URL and EMAIL consume every non-space rune after them, so a
// run ending in either is only a placeholder when no letter follows it.
func lower(text string) string {
	caser := cases.Lower(language.Und)

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, loc := range upperRun.FindAllStringIndex(text, -1) {
		if !isPlaceholderRun(text, loc[0], loc[1]) {
			continue
		}
		b.WriteString(caser.String(text[prev:loc[0]]))
		b.WriteString(text[loc[0]:loc[1]])
		prev = loc[1]
	}
	b.WriteString(caser.String(text[prev:]))

	return b.String()
}

func isPlaceholderRun(text string, start, end int) bool {
	run := text[start:end]
	if !placeholderRun.MatchString(run) {
		return false
	}
	if strings.HasSuffix(run, NumberToken) || end == len(text) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[end:])
	return !unicode.IsLetter(next)
}
