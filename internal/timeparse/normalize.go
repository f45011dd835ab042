// Package timeparse turns "text - date/time" reminder input into a canonical
// UTC instant anchored to a fixed local offset.
package timeparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Separator splits reminder text from its date/time phrase.
const Separator = "-"

// Parsed is a successfully normalized reminder.
type Parsed struct {
	Body  string
	Local time.Time // resolved wall clock in the configured offset
	UTC   time.Time // canonical storage instant
}

// Normalizer resolves reminder input. It is safe for concurrent use.
type Normalizer struct {
	loc    *time.Location
	parser PhraseParser
}

// New returns a Normalizer anchored to loc.
func New(loc *time.Location, parser PhraseParser) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, parser: parser}
}

// Location returns the configured local offset.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// SplitReminder splits raw on the first separator. ok is false when there is
// no separator or either side is blank.
func SplitReminder(raw string) (body, phrase string, ok bool) {
	before, after, found := strings.Cut(raw, Separator)
	if !found {
		return "", "", false
	}
	body = strings.TrimSpace(before)
	phrase = strings.TrimSpace(after)
	if body == "" || phrase == "" {
		return "", "", false
	}
	return body, phrase, true
}

// Normalize parses raw as "text - date/time" relative to now.
// The result depends only on raw, now and the configured offset.
func (n *Normalizer) Normalize(raw string, now time.Time) (Parsed, error) {
	body, phrase, ok := SplitReminder(raw)
	if !ok {
		return Parsed{}, &ParseFailure{Kind: MalformedInput, Input: raw}
	}
	local, err := n.Resolve(phrase, now)
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{Body: body, Local: local, UTC: local.UTC()}, nil
}

// Resolve parses a bare date/time phrase and returns it in the configured
// offset.
func (n *Normalizer) Resolve(phrase string, now time.Time) (time.Time, error) {
	base := now.In(n.loc)
	t, ok := n.parser.ParsePhrase(phrase, base)
	if !ok {
		return time.Time{}, &ParseFailure{Kind: Unrecognized, Input: phrase}
	}
	// The parser's zone is not trusted; only its wall clock is.
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, n.loc), nil
}

// ParseOffset parses a fixed UTC offset such as "+03:00", "-0530", "+3" or
// "UTC+3".
func ParseOffset(s string) (*time.Location, error) {
	raw := s
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.TrimPrefix(s, "UTC")
	s = strings.TrimPrefix(s, "GMT")
	if s == "" || s == "Z" {
		return time.UTC, nil
	}

	sign := 1
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}

	var hours, minutes int
	var err error
	switch {
	case strings.Contains(s, ":"):
		h, m, _ := strings.Cut(s, ":")
		if hours, err = strconv.Atoi(h); err == nil {
			minutes, err = strconv.Atoi(m)
		}
	case len(s) == 4:
		if hours, err = strconv.Atoi(s[:2]); err == nil {
			minutes, err = strconv.Atoi(s[2:])
		}
	default:
		hours, err = strconv.Atoi(s)
	}
	if err != nil || hours < 0 || hours > 14 || minutes < 0 || minutes > 59 {
		return nil, fmt.Errorf("invalid utc offset %q", raw)
	}

	offset := sign * (hours*3600 + minutes*60)
	return time.FixedZone(FormatOffset(offset), offset), nil
}

// FormatOffset renders an offset in seconds as "UTC+03:00".
func FormatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}
