package dictionary

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnsafeInput is wrapped by [CheckWord] when a word must not be looked up.
var ErrUnsafeInput = errors.New("dictionary: unsafe input")

// blockedPatterns reject markup, template syntax, shell and URL-like input
// before it reaches the scorer or the logs.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[<>]`),
	regexp.MustCompile(`[{}]`),
	regexp.MustCompile("[$`]"),
	regexp.MustCompile(`^/`),
	regexp.MustCompile(`(?i)^http`),
	regexp.MustCompile(`^!`),
	regexp.MustCompile(`^\s*#`),
	regexp.MustCompile(`[\x00-\x1f\x7f]`),
	regexp.MustCompile(`(?i)(javascript|vbscript):`),
	regexp.MustCompile(`(?i)(data|file):`),
}

var (
	disallowedChars = regexp.MustCompile(`[^a-z0-9\s\-']`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// CheckWord returns nil when word is safe to score. Otherwise the error wraps
// [ErrUnsafeInput] and names the reason without echoing the input.
func CheckWord(word string, maxLen int) error {
	if strings.TrimSpace(word) == "" {
		return fmt.Errorf("%w: empty word", ErrUnsafeInput)
	}
	if n := utf8.RuneCountInString(word); maxLen > 0 && n > maxLen {
		return fmt.Errorf("%w: %d runes exceeds limit of %d", ErrUnsafeInput, n, maxLen)
	}
	if !utf8.ValidString(word) {
		return fmt.Errorf("%w: invalid utf-8", ErrUnsafeInput)
	}
	for _, r := range word {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("%w: non-printable character %U", ErrUnsafeInput, r)
		}
	}
	for _, re := range blockedPatterns {
		if re.MatchString(word) {
			return fmt.Errorf("%w: matches blocked pattern %s", ErrUnsafeInput, re)
		}
	}
	return nil
}

// Sanitize normalises free text for matching: lowercase, only letters,
// digits, hyphens and apostrophes, single spaces.
func Sanitize(s string) string {
	s = strings.ToLower(s)
	s = disallowedChars.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
