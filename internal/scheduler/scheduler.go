// Package scheduler periodically delivers due reminders and deletes them.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/notekeeper/internal/clock"
	"github.com/thebtf/notekeeper/internal/metrics"
	"github.com/thebtf/notekeeper/pkg/models"
)

// DefaultInterval is how often due reminders are checked.
const DefaultInterval = time.Minute

// NotificationPrefix starts every delivered reminder message.
const NotificationPrefix = "⏰ Напоминание: "

// Source is the persistence the scheduler needs.
type Source interface {
	FindRemindersDue(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	DeleteReminderByID(ctx context.Context, owner models.OwnerID, id string) (int64, error)
}

// Notifier delivers a notification to an owner.
type Notifier interface {
	Notify(ctx context.Context, owner models.OwnerID, text string) error
}

// Observer is told about every delivered reminder.
type Observer interface {
	ReminderDelivered(r *models.Reminder, at time.Time)
}

// Report summarizes one scan.
type Report struct {
	Due          int
	Delivered    int
	Failed       int
	DeleteFailed int
	Err          error // set when the due query failed
}

// Config holds scheduler settings.
type Config struct {
	Interval time.Duration
}

// Scheduler runs the due-reminder scan on a fixed interval.
type Scheduler struct {
	source   Source
	notifier Notifier
	clock    clock.Clock
	metrics  *metrics.Collector
	interval time.Duration

	mu       sync.Mutex
	observer Observer
	cron     *cron.Cron
	stopOnce sync.Once
	scanMu   sync.Mutex
}

// New creates a Scheduler. m may be nil.
func New(cfg Config, source Source, notifier Notifier, clk clock.Clock, m *metrics.Collector) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Scheduler{
		source:   source,
		notifier: notifier,
		clock:    clk,
		metrics:  m,
		interval: interval,
	}
}

// SetObserver registers o to hear about delivered reminders.
func (s *Scheduler) SetObserver(o Observer) {
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

// Interval returns the scan period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start schedules the scan. It returns immediately; the scan runs in cron's
// goroutine until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	cl := cronLogger{l: log.With().Str("component", "cron").Logger()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	))
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(spec, func() { s.Scan(ctx) }); err != nil {
		return fmt.Errorf("schedule scan %q: %w", spec, err)
	}
	c.Start()
	s.cron = c

	log.Info().Dur("interval", s.interval).Msg("Reminder scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop prevents further scans and waits for a running one to finish. Safe to
// call more than once and from several goroutines.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()

	if c == nil {
		return
	}
	s.stopOnce.Do(func() {
		<-c.Stop().Done()
		log.Info().Msg("Reminder scheduler stopped")
	})
}

// Run starts the scheduler and blocks until ctx is done and the last scan has
// finished.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Scan delivers every reminder due now and deletes each delivered one. A
// failed delivery keeps the reminder for the next scan. Cancellation of ctx
// does not interrupt a scan in progress.
func (s *Scheduler) Scan(ctx context.Context) Report {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	now := s.clock.Now().UTC()

	var rep Report
	defer func() {
		s.metrics.RecordScan(ctx, metrics.ScanReport{
			Delivered:    rep.Delivered,
			Failed:       rep.Failed,
			DeleteFailed: rep.DeleteFailed,
			Duration:     time.Since(start),
			Err:          rep.Err,
		})
	}()

	due, err := s.source.FindRemindersDue(ctx, now)
	if err != nil {
		rep.Err = fmt.Errorf("find due reminders: %w", err)
		log.Error().Err(err).Msg("Reminder scan failed")
		return rep
	}
	rep.Due = len(due)
	if rep.Due == 0 {
		return rep
	}

	s.mu.Lock()
	observer := s.observer
	s.mu.Unlock()

	for _, r := range due {
		if err := s.notifier.Notify(ctx, r.OwnerID, NotificationPrefix+r.Body); err != nil {
			rep.Failed++
			log.Warn().Err(err).
				Int64("owner", int64(r.OwnerID)).
				Str("reminder", r.ID).
				Msg("Reminder delivery failed; will retry next scan")
			continue
		}
		rep.Delivered++

		if observer != nil {
			observer.ReminderDelivered(r, now)
		}

		if _, err := s.source.DeleteReminderByID(ctx, r.OwnerID, r.ID); err != nil {
			rep.DeleteFailed++
			log.Error().Err(err).
				Int64("owner", int64(r.OwnerID)).
				Str("reminder", r.ID).
				Msg("Delete after delivery failed; reminder may be sent again")
		}
	}

	log.Info().
		Int("due", rep.Due).
		Int("delivered", rep.Delivered).
		Int("failed", rep.Failed).
		Int("delete_failed", rep.DeleteFailed).
		Msg("Reminder scan finished")
	return rep
}

// cronLogger routes cron's messages into zerolog. cron reports routine
// scheduling at Info, which is noise next to the scan's own logs.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	if msg == "skip" {
		c.l.Warn().Fields(keysAndValues).Msg("Scan still running, tick skipped")
		return
	}
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
