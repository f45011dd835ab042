package timeparse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var moscow = time.FixedZone("UTC+03:00", 3*60*60)

// stubParser returns a fixed wall clock in an arbitrary zone.
type stubParser struct {
	t  time.Time
	ok bool
}

func (s stubParser) ParsePhrase(string, time.Time) (time.Time, bool) { return s.t, s.ok }

// NormalizerSuite exercises Normalize with the default parser chain.
type NormalizerSuite struct {
	suite.Suite
	n   *Normalizer
	now time.Time
}

func (s *NormalizerSuite) SetupTest() {
	p, err := NewDefaultParser("ru", "en")
	s.Require().NoError(err)
	s.n = New(moscow, p)
	// 2026-10-15 12:00 local
	s.now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
}

func TestNormalizerSuite(t *testing.T) {
	suite.Run(t, new(NormalizerSuite))
}

func (s *NormalizerSuite) TestExplicitLayout() {
	got, err := s.n.Normalize("buy milk - 16.10.2026 09:00", s.now)
	s.Require().NoError(err)

	s.Equal("buy milk", got.Body)
	s.Equal(time.Date(2026, 10, 16, 9, 0, 0, 0, moscow), got.Local)
	s.Equal(time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC), got.UTC)
	s.Equal(time.UTC, got.UTC.Location())
}

func (s *NormalizerSuite) TestSplitsOnFirstSeparator() {
	got, err := s.n.Normalize("call Anna - 2026-10-20 18:30", s.now)
	s.Require().NoError(err)
	s.Equal("call Anna", got.Body)
	s.Equal(time.Date(2026, 10, 20, 15, 30, 0, 0, time.UTC), got.UTC)
}

func (s *NormalizerSuite) TestTimeOnlyRollsToNextDay() {
	got, err := s.n.Normalize("standup - 10:00", s.now)
	s.Require().NoError(err)
	// 10:00 already passed at 12:00 local, so tomorrow.
	s.Equal(time.Date(2026, 10, 16, 10, 0, 0, 0, moscow), got.Local)

	got, err = s.n.Normalize("lunch - 13:15", s.now)
	s.Require().NoError(err)
	s.Equal(time.Date(2026, 10, 15, 13, 15, 0, 0, moscow), got.Local)
}

func (s *NormalizerSuite) TestNaturalLanguage() {
	got, err := s.n.Normalize("buy milk and eggs - tomorrow at 9am", s.now)
	s.Require().NoError(err)
	s.Equal(time.Date(2026, 10, 16, 9, 0, 0, 0, moscow), got.Local)
	s.Equal(time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC), got.UTC)
}

func (s *NormalizerSuite) TestNaturalLanguageRussian() {
	// s.now is Thursday 2026-10-15 12:00 local.
	tests := []struct {
		phrase string
		want   time.Time
	}{
		{"завтра в 9", time.Date(2026, 10, 16, 9, 0, 0, 0, moscow)},
		{"завтра в 9 утра", time.Date(2026, 10, 16, 9, 0, 0, 0, moscow)},
		{"завтра в 21", time.Date(2026, 10, 16, 21, 0, 0, 0, moscow)},
		{"Завтра в 9 часов", time.Date(2026, 10, 16, 9, 0, 0, 0, moscow)},
		{"завтра в 9:30", time.Date(2026, 10, 16, 9, 30, 0, 0, moscow)},
		{"в 18", time.Date(2026, 10, 15, 18, 0, 0, 0, moscow)},
		{"в пятницу в 18:00", time.Date(2026, 10, 16, 18, 0, 0, 0, moscow)},
		{"послезавтра в 10:00", time.Date(2026, 10, 17, 10, 0, 0, 0, moscow)},
		{"послезавтра в 10", time.Date(2026, 10, 17, 10, 0, 0, 0, moscow)},
		{"через 2 часа", time.Date(2026, 10, 15, 14, 0, 0, 0, moscow)},
		{"16 октября в 10:00", time.Date(2026, 10, 16, 10, 0, 0, 0, moscow)},
		{"16 октября", time.Date(2026, 10, 16, 0, 0, 0, 0, moscow)},
		{"1 января", time.Date(2027, 1, 1, 0, 0, 0, 0, moscow)},
		{"1 января 2028 в 08:15", time.Date(2028, 1, 1, 8, 15, 0, 0, moscow)},
	}
	for _, tt := range tests {
		s.Run(tt.phrase, func() {
			got, err := s.n.Normalize("позвонить маме - "+tt.phrase, s.now)
			s.Require().NoError(err)
			s.Equal(tt.want, got.Local)
			s.Equal(tt.want.UTC(), got.UTC)
		})
	}
}

// A phrase that is only partly understood must fail rather than resolve to
// the understood part.
func (s *NormalizerSuite) TestPartialPhraseIsUnrecognized() {
	phrases := []string{
		"завтра qwzx",
		"завтра в 25",
		"31 февраля",
		"через 2 часа и ещё немного потом",
		"tomorrow after lunch maybe",
	}
	for _, phrase := range phrases {
		_, err := s.n.Resolve(phrase, s.now)
		s.Require().Error(err, phrase)
		s.True(errors.Is(err, ErrUnrecognized), phrase)
	}
}

func (s *NormalizerSuite) TestMalformedInput() {
	tests := []string{
		"no separator here",
		"- 10:00",
		"text -   ",
		"",
	}
	for _, raw := range tests {
		_, err := s.n.Normalize(raw, s.now)
		s.Require().Error(err, raw)
		s.True(errors.Is(err, ErrMalformedInput), raw)

		var pf *ParseFailure
		s.Require().True(errors.As(err, &pf))
		s.Equal(MalformedInput, pf.Kind)
	}
}

func (s *NormalizerSuite) TestUnrecognized() {
	_, err := s.n.Normalize("buy milk - qwzx", s.now)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrUnrecognized))
	s.False(errors.Is(err, ErrMalformedInput))
}

// Same phrase and instant must give the same result whatever zone "now" is
// expressed in.
func (s *NormalizerSuite) TestIndependentOfCallerZone() {
	elsewhere := time.FixedZone("UTC-07:00", -7*60*60)

	a, err := s.n.Normalize("x - 18:00", s.now)
	s.Require().NoError(err)
	b, err := s.n.Normalize("x - 18:00", s.now.In(elsewhere))
	s.Require().NoError(err)

	s.Equal(a.UTC, b.UTC)
}

func (s *NormalizerSuite) TestRoundTripThroughUTC() {
	phrases := []string{
		"a - 16.10.2026 09:00",
		"b - 2026-12-31 23:59",
		"c - 01.01.2027 00:00",
		"d - 21:45",
		"e - tomorrow at 9am",
		"f - завтра в 9",
	}
	for _, raw := range phrases {
		got, err := s.n.Normalize(raw, s.now)
		s.Require().NoError(err, raw)

		back := got.UTC.In(moscow)
		s.Equal(got.Local.Format("2006-01-02 15:04"), back.Format("2006-01-02 15:04"), raw)
	}
}

func TestResolveReattachesOffset(t *testing.T) {
	// The parser reports 09:00 in UTC-5; only the wall clock must survive.
	other := time.FixedZone("other", -5*60*60)
	n := New(moscow, stubParser{t: time.Date(2026, 10, 16, 9, 0, 30, 999, other), ok: true})

	got, err := n.Resolve("anything", time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 16, 9, 0, 30, 0, moscow), got)
}

func TestSplitReminder(t *testing.T) {
	tests := []struct {
		raw    string
		body   string
		phrase string
		ok     bool
	}{
		{"buy milk - tomorrow", "buy milk", "tomorrow", true},
		{"a-b-c", "a", "b-c", true},
		{"  spaced  -  out  ", "spaced", "out", true},
		{"nothing", "", "", false},
		{" - tomorrow", "", "", false},
		{"text - ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			body, phrase, ok := SplitReminder(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.body, body)
			assert.Equal(t, tt.phrase, phrase)
		})
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		seconds int
		wantErr bool
	}{
		{"+03:00", 3 * 3600, false},
		{"+3", 3 * 3600, false},
		{"UTC+3", 3 * 3600, false},
		{"-05:30", -(5*3600 + 30*60), false},
		{"+0545", 5*3600 + 45*60, false},
		{"", 0, false},
		{"Z", 0, false},
		{"+15", 0, true},
		{"+03:75", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, err := ParseOffset(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
			assert.Equal(t, tt.seconds, offset)
		})
	}
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "UTC+03:00", FormatOffset(3*3600))
	assert.Equal(t, "UTC-05:30", FormatOffset(-(5*3600 + 30*60)))
	assert.Equal(t, "UTC+00:00", FormatOffset(0))
}

func TestNewWhenParser_UnknownLocale(t *testing.T) {
	_, err := NewWhenParser("xx")
	assert.Error(t, err)
}

func TestChainOrder(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	c := Chain{stubParser{ok: false}, stubParser{t: first, ok: true}, stubParser{t: second, ok: true}}
	got, ok := c.ParsePhrase("x", time.Now())
	assert.True(t, ok)
	assert.Equal(t, first, got)

	_, ok = Chain{}.ParsePhrase("x", time.Now())
	assert.False(t, ok)
}
