package channel

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidFormat is returned when user input cannot be resolved to a valid
// channel handle: 5-32 characters from [A-Za-z0-9_].
var ErrInvalidFormat = errors.New("invalid channel handle")

type matcher struct {
	re *regexp.Regexp
}

func (m matcher) match(input string) (string, bool) {
	sub := m.re.FindStringSubmatch(input)
	if sub == nil {
		return "", false
	}
	return sub[1], true
}

// Recognized input shapes, tried in priority order. Each pattern captures the
// handle candidate in its first group; the first match wins.
var handleMatchers = []matcher{
	{regexp.MustCompile(`(?i)^https?://t\.me/s/([A-Za-z0-9_]+)`)},
	{regexp.MustCompile(`(?i)^https?://t\.me/([A-Za-z0-9_]+)`)},
	{regexp.MustCompile(`(?i)^t\.me/s/([A-Za-z0-9_]+)`)},
	{regexp.MustCompile(`(?i)^t\.me/([A-Za-z0-9_]+)`)},
	{regexp.MustCompile(`^@([A-Za-z0-9_]+)$`)},
	{regexp.MustCompile(`^([A-Za-z0-9_]+)$`)},
}

var (
	handleRe     = regexp.MustCompile(`^[A-Za-z0-9_]{5,32}$`)
	disallowedRe = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// Normalize resolves free-form user input (t.me URLs, @name, bare name) to a
// validated channel handle.
func Normalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	for _, m := range handleMatchers {
		candidate, ok := m.match(input)
		if !ok {
			continue
		}
		if !handleRe.MatchString(candidate) {
			return "", fmt.Errorf("%w: %q", ErrInvalidFormat, candidate)
		}
		return candidate, nil
	}

	return "", fmt.Errorf("%w: no recognized shape in %q", ErrInvalidFormat, input)
}

// SanitizeForFeed validates a handle that arrives claiming to be already
// normalized (the feed-serving path). Disallowed characters are stripped
// before the length check, so an escaped or injected string cannot reach the
// upstream URL.
func SanitizeForFeed(raw string) (string, error) {
	name := disallowedRe.ReplaceAllString(raw, "")
	if !handleRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	return name, nil
}
