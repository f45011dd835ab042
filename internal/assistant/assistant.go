// Package assistant applies intents produced from chat input: it owns the
// per-owner critical section, talks to storage, renders replies and commits
// the next dialog state.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/notekeeper/internal/clock"
	"github.com/thebtf/notekeeper/internal/dialog"
	"github.com/thebtf/notekeeper/internal/i18n"
	"github.com/thebtf/notekeeper/internal/intent"
	"github.com/thebtf/notekeeper/internal/interpreter"
	"github.com/thebtf/notekeeper/internal/metrics"
	"github.com/thebtf/notekeeper/internal/router"
	"github.com/thebtf/notekeeper/internal/storage"
	"github.com/thebtf/notekeeper/internal/timeparse"
	"github.com/thebtf/notekeeper/pkg/models"
)

// DisplayLayout is how reminder times are shown to users.
const DisplayLayout = "2006-01-02 15:04"

// Deps are the collaborators of a Service.
type Deps struct {
	Store      storage.Store
	States     dialog.Store
	Normalizer *timeparse.Normalizer
	Catalog    *i18n.Catalog      // defaults to i18n.Default()
	Clock      clock.Clock        // defaults to clock.System
	Locks      *dialog.Locks      // defaults to a fresh set
	Metrics    *metrics.Collector // optional
}

// Service handles inbound text and button presses.
type Service struct {
	store   storage.Store
	states  dialog.Store
	locks   *dialog.Locks
	interp  *interpreter.Interpreter
	router  *router.Router
	catalog *i18n.Catalog
	clock   clock.Clock
	loc     *time.Location
	metrics *metrics.Collector
}

// New creates a Service.
func New(d Deps) *Service {
	if d.Catalog == nil {
		d.Catalog = i18n.Default()
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Locks == nil {
		d.Locks = dialog.NewLocks()
	}

	interp := interpreter.New(d.States, d.Normalizer, d.Clock)
	interp.Alias(d.Catalog.Text(i18n.ButtonMenu), interpreter.CommandMenu)
	interp.Alias(d.Catalog.Text(i18n.ButtonAddNote), interpreter.CommandAddNote)
	interp.Alias(d.Catalog.Text(i18n.ButtonAddReminder), interpreter.CommandAddReminder)

	return &Service{
		store:   d.Store,
		states:  d.States,
		locks:   d.Locks,
		interp:  interp,
		router:  router.New(d.Store, d.States),
		catalog: d.Catalog,
		clock:   d.Clock,
		loc:     d.Normalizer.Location(),
		metrics: d.Metrics,
	}
}

// Location is the zone reminder times are shown in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// HandleText processes a chat message from owner.
func (s *Service) HandleText(ctx context.Context, owner models.OwnerID, text string, out Messenger) error {
	return s.handle(ctx, owner, out, false, func() (intent.Outcome, error) {
		return s.interp.Interpret(ctx, owner, text)
	})
}

// HandleCallback processes an inline button press from owner.
func (s *Service) HandleCallback(ctx context.Context, owner models.OwnerID, token string, out Messenger) error {
	return s.handle(ctx, owner, out, true, func() (intent.Outcome, error) {
		return s.router.Route(ctx, owner, token)
	})
}

func (s *Service) handle(ctx context.Context, owner models.OwnerID, out Messenger, callback bool, decide func() (intent.Outcome, error)) error {
	unlock := s.locks.Lock(owner)
	defer unlock()

	outcome, err := decide()
	if err != nil {
		return s.fail(ctx, owner, out, "decide", err)
	}

	name := outcome.Intent.Name()
	replies, err := s.execute(ctx, owner, outcome.Intent, callback)
	s.metrics.RecordIntent(ctx, name, err)
	if err != nil {
		return s.fail(ctx, owner, out, name, err)
	}

	// A terminal intent has already written to storage, so its target is
	// stale from here on and the next state must not wait for the reply.
	committed := outcome.Intent.Terminal()
	if committed {
		if err := s.states.Set(ctx, owner, outcome.Next); err != nil {
			return s.fail(ctx, owner, out, name, fmt.Errorf("commit dialog state: %w", err))
		}
	}

	for _, r := range replies {
		if err := out.Send(ctx, r); err != nil {
			if committed {
				log.Warn().Err(err).Int64("owner", int64(owner)).Str("intent", name).Msg("Reply lost after commit")
				return fmt.Errorf("send reply: %w", err)
			}
			return s.fail(ctx, owner, out, name, fmt.Errorf("send reply: %w", err))
		}
	}

	if !committed {
		if err := s.states.Set(ctx, owner, outcome.Next); err != nil {
			return s.fail(ctx, owner, out, name, fmt.Errorf("commit dialog state: %w", err))
		}
	}

	log.Debug().
		Int64("owner", int64(owner)).
		Str("intent", name).
		Str("next", outcome.Next.Kind.String()).
		Msg("Handled update")
	return nil
}

// fail logs err and makes a best-effort attempt to tell the user.
func (s *Service) fail(ctx context.Context, owner models.OwnerID, out Messenger, stage string, err error) error {
	log.Error().Err(err).Int64("owner", int64(owner)).Str("stage", stage).Msg("Update handling failed")
	if sendErr := out.Send(ctx, Reply{Text: s.catalog.Text(i18n.GenericError)}); sendErr != nil {
		err = errors.Join(err, sendErr)
	}
	return err
}
