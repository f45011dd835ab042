// Package worker provides the admin HTTP service for notekeeper.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/notekeeper/internal/clock"
	"github.com/thebtf/notekeeper/internal/metrics"
	"github.com/thebtf/notekeeper/internal/scheduler"
	"github.com/thebtf/notekeeper/internal/storage"
	"github.com/thebtf/notekeeper/internal/worker/sse"
	"github.com/thebtf/notekeeper/pkg/models"
)

// Event types published on the SSE stream.
const (
	EventReminderDelivered = "reminder_delivered"
	EventScan              = "scan"
)

// Scanner runs one due-reminder scan on demand.
type Scanner interface {
	Scan(ctx context.Context) scheduler.Report
}

// Deps are the collaborators the admin service reads from.
type Deps struct {
	Store    storage.Store
	Scanner  Scanner
	Metrics  *metrics.Collector
	Location *time.Location
	Clock    clock.Clock
	Version  string
	// Pending reports owners with a pending action; optional.
	Pending func() int
}

// Service is the admin HTTP API.
type Service struct {
	version        string
	store          storage.Store
	scanner        Scanner
	metrics        *metrics.Collector
	location       *time.Location
	clock          clock.Clock
	pending        func() int
	sseBroadcaster *sse.Broadcaster
	router         chi.Router
	startTime      time.Time
	ready          atomic.Bool
	delivered      atomic.Int64
}

var _ scheduler.Observer = (*Service)(nil)

// New creates the service and its routes. It starts not ready.
func New(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	s := &Service{
		version:        d.Version,
		store:          d.Store,
		scanner:        d.Scanner,
		metrics:        d.Metrics,
		location:       d.Location,
		clock:          d.Clock,
		pending:        d.Pending,
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		startTime:      d.Clock.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/", serveIndex)
	s.router.Get("/metrics", s.metrics.Handler().ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/ready", s.handleReady)
		r.Get("/events", s.sseBroadcaster.HandleSSE)

		r.Group(func(r chi.Router) {
			r.Use(s.requireReady)
			r.Get("/stats", s.handleStats)
			r.Post("/scan", s.handleScan)
			r.Route("/owners/{owner}", func(r chi.Router) {
				r.Use(ownerCtx)
				r.Get("/tags", s.handleTags)
				r.Get("/notes", s.handleNotes)
				r.Get("/reminders", s.handleReminders)
			})
		})
	})
}

// Handler returns the root HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Broadcaster exposes the SSE hub.
func (s *Service) Broadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// SetReady marks the service as able to serve data routes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// ReminderDelivered publishes a delivery on the event stream.
func (s *Service) ReminderDelivered(r *models.Reminder, at time.Time) {
	s.delivered.Add(1)
	s.sseBroadcaster.Publish(EventReminderDelivered, reminderView(r, at, s.location))
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Service) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Service) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("Admin API listening")
		errCh <- srv.Serve(ln)
	}()
	s.SetReady(true)

	select {
	case err := <-errCh:
		s.SetReady(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown admin api: %w", err)
	}
	return nil
}

// requireReady rejects data routes until the service is ready.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeError(w, http.StatusServiceUnavailable, "service not ready")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ownerKey struct{}

func ownerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "owner"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "owner must be a numeric id")
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, models.OwnerID(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFrom(r *http.Request) models.OwnerID {
	owner, _ := r.Context().Value(ownerKey{}).(models.OwnerID)
	return owner
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Admin request")
	})
}
