package worker

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/notekeeper/internal/assistant"
	"github.com/thebtf/notekeeper/internal/intent"
	"github.com/thebtf/notekeeper/internal/storage"
	"github.com/thebtf/notekeeper/pkg/models"
)

// ReminderView is a reminder as the admin API renders it.
type ReminderView struct {
	ID       string         `json:"id"`
	OwnerID  models.OwnerID `json:"owner_id"`
	Body     string         `json:"body"`
	DueAt    time.Time      `json:"due_at"`
	DueLocal string         `json:"due_local"`
	At       *time.Time     `json:"delivered_at,omitempty"`
}

// ScanView is the JSON form of a scheduler report.
type ScanView struct {
	Due          int    `json:"due"`
	Delivered    int    `json:"delivered"`
	Failed       int    `json:"failed"`
	DeleteFailed int    `json:"delete_failed"`
	Error        string `json:"error,omitempty"`
}

func reminderView(r *models.Reminder, deliveredAt time.Time, loc *time.Location) ReminderView {
	v := ReminderView{
		ID:       r.ID,
		OwnerID:  r.OwnerID,
		Body:     r.Body,
		DueAt:    r.DueAt.UTC(),
		DueLocal: r.DueAt.In(loc).Format(assistant.DisplayLayout),
	}
	if !deliveredAt.IsZero() {
		at := deliveredAt.UTC()
		v.At = &at
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	code := http.StatusOK
	if s.ready.Load() {
		status = "ready"
		if err := s.store.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	resp := map[string]any{
		"status":      status,
		"version":     s.version,
		"uptime":      s.clock.Now().Sub(s.startTime).Round(time.Second).String(),
		"sse_clients": s.sseBroadcaster.ClientCount(),
		"delivered":   s.delivered.Load(),
	}
	if s.pending != nil {
		resp["pending_actions"] = s.pending()
	}
	writeJSON(w, code, resp)
}

func (s *Service) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context(), s.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read stats")
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Service) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, http.StatusNotImplemented, "scheduler not configured")
		return
	}
	report := s.scanner.Scan(r.Context())
	view := ScanView{
		Due:          report.Due,
		Delivered:    report.Delivered,
		Failed:       report.Failed,
		DeleteFailed: report.DeleteFailed,
	}
	if report.Err != nil {
		view.Error = report.Err.Error()
	}
	s.sseBroadcaster.Publish(EventScan, view)

	status := http.StatusOK
	if report.Err != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, view)
}

func (s *Service) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context(), ownerFrom(r))
	if err != nil {
		log.Error().Err(err).Int64("owner", int64(ownerFrom(r))).Msg("Failed to list tags")
		writeError(w, http.StatusInternalServerError, "tags unavailable")
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// handleNotes lists notes, filtered by ?tag= when given. The tag may be
// passed with or without its leading marker.
func (s *Service) handleNotes(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	tag := models.NormalizeTag(r.URL.Query().Get("tag"))
	notes, err := s.store.FindNotes(r.Context(), owner, tag)
	if err != nil {
		log.Error().Err(err).Int64("owner", int64(owner)).Msg("Failed to list notes")
		writeError(w, http.StatusInternalServerError, "notes unavailable")
		return
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// handleReminders lists reminders for ?period=today|tomorrow|week|past or a
// local calendar ?date=YYYY-MM-DD. Without either it lists the week.
func (s *Service) handleReminders(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	q := r.URL.Query()

	var (
		reminders []*models.Reminder
		err       error
	)
	switch {
	case q.Get("date") != "":
		day, perr := time.ParseInLocation(time.DateOnly, q.Get("date"), s.location)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		reminders, err = storage.FindRemindersByLocalDate(r.Context(), s.store, owner, day, s.location)
	default:
		period := intent.Period(q.Get("period"))
		if period == "" {
			period = intent.PeriodWeek
		}
		win, werr := assistant.PeriodWindow(period, s.clock.Now(), s.location)
		if werr != nil {
			writeError(w, http.StatusBadRequest, werr.Error())
			return
		}
		if win.Start.IsZero() {
			reminders, err = s.store.FindRemindersBefore(r.Context(), owner, win.End)
		} else {
			reminders, err = s.store.FindRemindersInRange(r.Context(), owner, win.Start, win.End)
		}
	}
	if err != nil {
		log.Error().Err(err).Int64("owner", int64(owner)).Msg("Failed to list reminders")
		writeError(w, http.StatusInternalServerError, "reminders unavailable")
		return
	}

	views := make([]ReminderView, 0, len(reminders))
	for _, rem := range reminders {
		views = append(views, reminderView(rem, time.Time{}, s.location))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": views})
}
