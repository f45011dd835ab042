package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/olebedev/when/rules/ru"
)

// PhraseParser resolves a date/time phrase relative to base.
// The returned wall clock is interpreted in base's location.
type PhraseParser interface {
	ParsePhrase(phrase string, base time.Time) (time.Time, bool)
}

// Chain tries parsers in order and returns the first match.
type Chain []PhraseParser

// ParsePhrase implements PhraseParser.
func (c Chain) ParsePhrase(phrase string, base time.Time) (time.Time, bool) {
	for _, p := range c {
		if t, ok := p.ParsePhrase(phrase, base); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

type layout struct {
	format  string
	hasDate bool
	hasYear bool
}

// DefaultLayouts are the explicit formats accepted before falling back to
// natural language.
var DefaultLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
	"02.01.06 15:04",
	"02.01 15:04",
	"02/01/2006 15:04",
	"15:04",
}

// LayoutParser matches phrases against explicit time layouts.
// Layouts without a year take base's year; time-only layouts resolve to the
// next occurrence of that clock time.
type LayoutParser struct {
	layouts []layout
}

// NewLayoutParser builds a parser for the given layouts (DefaultLayouts when empty).
func NewLayoutParser(formats ...string) *LayoutParser {
	if len(formats) == 0 {
		formats = DefaultLayouts
	}
	lp := &LayoutParser{layouts: make([]layout, 0, len(formats))}
	for _, f := range formats {
		lp.layouts = append(lp.layouts, layout{
			format:  f,
			hasDate: strings.Contains(f, "02"),
			hasYear: strings.Contains(f, "06"),
		})
	}
	return lp
}

// ParsePhrase implements PhraseParser.
func (p *LayoutParser) ParsePhrase(phrase string, base time.Time) (time.Time, bool) {
	phrase = strings.TrimSpace(phrase)
	loc := base.Location()
	for _, l := range p.layouts {
		t, err := time.ParseInLocation(l.format, phrase, loc)
		if err != nil {
			continue
		}
		switch {
		case !l.hasDate:
			t = time.Date(base.Year(), base.Month(), base.Day(), t.Hour(), t.Minute(), 0, 0, loc)
			if t.Before(base) {
				t = t.AddDate(0, 0, 1)
			}
		case !l.hasYear:
			t = time.Date(base.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		}
		return t, true
	}
	return time.Time{}, false
}

// WhenParser resolves natural-language phrases ("завтра в 9", "tomorrow at 5pm",
// "в пятницу") with olebedev/when. A phrase is accepted only when the matched
// span covers all of it apart from connective words, so "завтра в 9" never
// degrades to "завтра" at the current clock time.
type WhenParser struct {
	w *when.Parser
}

var localeRules = map[string][]rules.Rule{
	"ru": {
		dayAfterTomorrow(),
		dayMonthRU(),
		ru.Weekday(rules.Override),
		ru.CasualDate(rules.Override),
		ru.CasualTime(rules.Override),
		ru.Hour(rules.Override),
		ru.HourMinute(rules.Override),
		ru.Deadline(rules.Override),
		ru.DotDateTime(rules.Override),
	},
	"en": en.All,
}

// connectives may stand outside the matched span.
var connectives = map[string]bool{
	"в": true, "во": true, "к": true, "ко": true, "на": true,
	"at": true, "on": true, "in": true, "by": true,
}

// bareHour finds an hour without minutes after в, к or at ("в 9", "в 9 часов").
var bareHour = regexp.MustCompile(`(?i)(^|\s)(в|к|at)(\s+)(\d{1,2})(?:\s*час(?:а|ов)?)?(\s|$)`)

// NewWhenParser builds a parser for the given locales. Common numeric rules
// are always enabled.
func NewWhenParser(locales ...string) (*WhenParser, error) {
	w := when.New(nil)
	for _, locale := range locales {
		locale = strings.ToLower(strings.TrimSpace(locale))
		rs, ok := localeRules[locale]
		if !ok {
			return nil, fmt.Errorf("unsupported locale %q", locale)
		}
		w.Add(rs...)
	}
	w.Add(common.All...)
	return &WhenParser{w: w}, nil
}

// ParsePhrase implements PhraseParser.
func (p *WhenParser) ParsePhrase(phrase string, base time.Time) (time.Time, bool) {
	text := bareHour.ReplaceAllString(strings.TrimSpace(phrase), "$1$2$3$4:00$5")
	r, err := p.w.Parse(text, base)
	if err != nil || r == nil || r.Index < 0 {
		return time.Time{}, false
	}
	if !onlyConnectives(text[:r.Index]) || !onlyConnectives(text[r.Index+len(r.Text):]) {
		return time.Time{}, false
	}
	return r.Time, true
}

func onlyConnectives(s string) bool {
	for _, f := range strings.Fields(strings.ToLower(s)) {
		if !connectives[strings.Trim(f, ",.!")] {
			return false
		}
	}
	return true
}

// dayAfterTomorrow handles "послезавтра", which the stock Russian rules lack.
func dayAfterTomorrow() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?i)(?:\P{L}|^)(послезавтра)(?:\P{L}|$)`),
		Applier: func(_ *rules.Match, c *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
			c.Duration += 48 * time.Hour
			return true, nil
		},
	}
}

// dayMonthRU handles "16 октября [2027]". Without a year the next occurrence
// on or after ref's date is used. The time of day defaults to midnight and is
// overridden by an hour rule later in the chain.
func dayMonthRU() rules.Rule {
	return &rules.F{
		RegExp: regexp.MustCompile(`(?i)(?:^|[^\p{L}\d])(\d{1,2})\s*(` + ru.MONTHS_PATTERN[3:] + `(?:\s*(\d{4}))?(?:\P{L}|$)`),
		Applier: func(m *rules.Match, c *rules.Context, _ *rules.Options, ref time.Time) (bool, error) {
			day, err := strconv.Atoi(m.Captures[0])
			if err != nil || day < 1 || day > 31 {
				return false, nil
			}
			month := ru.MONTHS[strings.ToLower(m.Captures[1])]

			year := ref.Year()
			if m.Captures[2] != "" {
				if year, err = strconv.Atoi(m.Captures[2]); err != nil {
					return false, nil
				}
			}
			target := time.Date(year, month, day, 0, 0, 0, 0, ref.Location())
			if target.Day() != day {
				return false, nil
			}
			today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
			if m.Captures[2] == "" && target.Before(today) {
				target = target.AddDate(1, 0, 0)
			}

			// Applied as a shift from ref: the context sets month before day,
			// which overflows when ref is on the 31st.
			c.Duration = target.Sub(today)
			zero := 0
			c.Hour, c.Minute, c.Second = &zero, &zero, &zero
			return true, nil
		},
	}
}

// NewDefaultParser chains explicit layouts with natural-language parsing.
func NewDefaultParser(locales ...string) (PhraseParser, error) {
	wp, err := NewWhenParser(locales...)
	if err != nil {
		return nil, err
	}
	return Chain{NewLayoutParser(), wp}, nil
}
