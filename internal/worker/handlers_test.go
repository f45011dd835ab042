package worker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/notekeeper/internal/clock"
	"github.com/thebtf/notekeeper/internal/db/sqlite"
	"github.com/thebtf/notekeeper/internal/metrics"
	"github.com/thebtf/notekeeper/internal/scheduler"
	"github.com/thebtf/notekeeper/pkg/models"
)

type fakeScanner struct {
	report scheduler.Report
	calls  int
}

func (f *fakeScanner) Scan(context.Context) scheduler.Report {
	f.calls++
	return f.report
}

type HandlersSuite struct {
	suite.Suite
	ctx     context.Context
	store   *sqlite.Store
	clock   *clock.Fixed
	scanner *fakeScanner
	svc     *Service
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	s.ctx = context.Background()
	db, err := sqlite.Open(s.ctx, sqlite.Config{Path: filepath.Join(s.T().TempDir(), "test.db")})
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.store = db

	m, err := metrics.New()
	s.Require().NoError(err)

	s.clock = clock.NewFixed(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	s.scanner = &fakeScanner{}
	s.svc = New(Deps{
		Store:    s.store,
		Scanner:  s.scanner,
		Metrics:  m,
		Location: time.FixedZone("UTC+03:00", 3*3600),
		Clock:    s.clock,
		Version:  "test-version",
		Pending:  func() int { return 2 },
	})
	s.svc.SetReady(true)
}

func (s *HandlersSuite) get(path string) (*httptest.ResponseRecorder, map[string]any) {
	return s.do(http.MethodGet, path)
}

func (s *HandlersSuite) do(method, path string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.svc.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func (s *HandlersSuite) TestHealth() {
	rec, body := s.get("/api/health")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ready", body["status"])
	s.Equal("test-version", body["version"])
	s.Equal(float64(2), body["pending_actions"])
}

func (s *HandlersSuite) TestHealthStarting() {
	s.svc.SetReady(false)
	rec, body := s.get("/api/health")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("starting", body["status"])
}

func (s *HandlersSuite) TestHealthDegradedWhenStoreClosed() {
	s.Require().NoError(s.store.Close())
	rec, body := s.get("/api/health")
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Equal("degraded", body["status"])
}

func (s *HandlersSuite) TestVersion() {
	rec, body := s.get("/api/version")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("test-version", body["version"])
}

func (s *HandlersSuite) TestReady() {
	rec, _ := s.get("/api/ready")
	s.Equal(http.StatusOK, rec.Code)

	s.svc.SetReady(false)
	rec, _ = s.get("/api/ready")
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlersSuite) TestRequireReadyBlocksDataRoutes() {
	s.svc.SetReady(false)
	rec, _ := s.get("/api/owners/1/notes")
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlersSuite) TestNotesAndTags() {
	s.Require().NoError(s.store.InsertNote(s.ctx, models.NewNote(1, "work", "call Bob")))
	s.Require().NoError(s.store.InsertNote(s.ctx, models.NewNote(1, "home", "fix sink")))
	s.Require().NoError(s.store.InsertNote(s.ctx, models.NewNote(2, "work", "other owner")))

	rec, body := s.get("/api/owners/1/tags")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]any{"home", "work"}, body["tags"])

	rec, body = s.get("/api/owners/1/notes?tag=%23work")
	s.Equal(http.StatusOK, rec.Code)
	notes := body["notes"].([]any)
	s.Require().Len(notes, 1)
	s.Equal("call Bob", notes[0].(map[string]any)["body"])

	_, body = s.get("/api/owners/1/notes")
	s.Len(body["notes"], 2)

	_, body = s.get("/api/owners/3/notes")
	s.Equal([]any{}, body["notes"])
}

func (s *HandlersSuite) TestBadOwner() {
	rec, body := s.get("/api/owners/bob/notes")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.NotEmpty(body["error"])
}

func (s *HandlersSuite) TestReminders_TableDriven() {
	now := s.clock.Now()
	seed := []*models.Reminder{
		models.NewReminder(1, now.Add(-48*time.Hour), "past"),
		models.NewReminder(1, now.Add(2*time.Hour), "today"),
		models.NewReminder(1, now.Add(26*time.Hour), "tomorrow"),
		models.NewReminder(1, now.Add(5*24*time.Hour), "this week"),
		models.NewReminder(2, now.Add(2*time.Hour), "other owner"),
	}
	for _, r := range seed {
		s.Require().NoError(s.store.InsertReminder(s.ctx, r))
	}

	tests := []struct {
		name   string
		query  string
		code   int
		bodies []string
	}{
		{name: "today", query: "?period=today", code: http.StatusOK, bodies: []string{"today"}},
		{name: "tomorrow", query: "?period=tomorrow", code: http.StatusOK, bodies: []string{"tomorrow"}},
		{name: "week default", query: "", code: http.StatusOK, bodies: []string{"today", "tomorrow", "this week"}},
		{name: "past", query: "?period=past", code: http.StatusOK, bodies: []string{"past"}},
		{name: "local date", query: "?date=2026-10-16", code: http.StatusOK, bodies: []string{"tomorrow"}},
		{name: "bad date", query: "?date=16.10.2026", code: http.StatusBadRequest},
		{name: "bad period", query: "?period=year", code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec, body := s.get("/api/owners/1/reminders" + tt.query)
			s.Equal(tt.code, rec.Code)
			if tt.code != http.StatusOK {
				return
			}
			got := []string{}
			for _, r := range body["reminders"].([]any) {
				got = append(got, r.(map[string]any)["body"].(string))
			}
			s.ElementsMatch(tt.bodies, got)
		})
	}
}

func (s *HandlersSuite) TestReminderLocalTime() {
	r := models.NewReminder(1, time.Date(2026, 10, 15, 12, 30, 0, 0, time.UTC), "lunch")
	s.Require().NoError(s.store.InsertReminder(s.ctx, r))

	_, body := s.get("/api/owners/1/reminders?period=today")
	list := body["reminders"].([]any)
	s.Require().Len(list, 1)
	s.Equal("2026-10-15 15:30", list[0].(map[string]any)["due_local"])
}

func (s *HandlersSuite) TestStats() {
	s.Require().NoError(s.store.InsertNote(s.ctx, models.NewNote(1, "", "plain")))
	s.Require().NoError(s.store.InsertReminder(s.ctx, models.NewReminder(2, s.clock.Now().Add(-time.Minute), "late")))

	rec, body := s.get("/api/stats")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(float64(1), body["notes"])
	s.Equal(float64(1), body["reminders"])
	s.Equal(float64(2), body["owners"])
	s.Equal(float64(1), body["overdue"])
}

func (s *HandlersSuite) TestScan() {
	s.scanner.report = scheduler.Report{Due: 2, Delivered: 1, Failed: 1}

	rec, body := s.do(http.MethodPost, "/api/scan")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(1, s.scanner.calls)
	s.Equal(float64(2), body["due"])
	s.Equal(float64(1), body["delivered"])
	s.Nil(body["error"])

	rec, _ = s.get("/api/scan")
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
}

func (s *HandlersSuite) TestScanQueryFailure() {
	s.scanner.report = scheduler.Report{Err: errors.New("db down")}
	rec, body := s.do(http.MethodPost, "/api/scan")
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Equal("db down", body["error"])
}

func (s *HandlersSuite) TestMetricsEndpoint() {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.svc.Handler().ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlersSuite) TestIndex() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.svc.Handler().ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "/api/events")
}

func TestReminderDeliveredCounts(t *testing.T) {
	svc := New(Deps{Store: nil, Location: time.UTC})
	r := models.NewReminder(1, time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC), "buy milk")

	svc.ReminderDelivered(r, time.Date(2026, 10, 15, 9, 0, 30, 0, time.UTC))
	assert.Equal(t, int64(1), svc.delivered.Load())

	view := reminderView(r, time.Date(2026, 10, 15, 9, 0, 30, 0, time.UTC), time.UTC)
	require.NotNil(t, view.At)
	assert.Equal(t, "2026-10-15 09:00", view.DueLocal)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	svc := New(Deps{Location: time.UTC})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/ready")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("serve did not return")
	}
	assert.False(t, svc.ready.Load())
}
