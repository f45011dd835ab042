package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/notekeeper/internal/assistant"
	"github.com/thebtf/notekeeper/internal/clock"
	"github.com/thebtf/notekeeper/internal/config"
	"github.com/thebtf/notekeeper/internal/i18n"
	"github.com/thebtf/notekeeper/internal/metrics"
	"github.com/thebtf/notekeeper/internal/scheduler"
	"github.com/thebtf/notekeeper/internal/telegram"
	"github.com/thebtf/notekeeper/internal/watcher"
	"github.com/thebtf/notekeeper/internal/worker"
)

var (
	adminAddr     string
	noAdmin       bool
	watchSettings bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the reminder scheduler and the admin API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&adminAddr, "admin-addr", "", "Admin API listen address (default 127.0.0.1:<worker port>)")
	serveCmd.Flags().BoolVar(&noAdmin, "no-admin", false, "Do not start the admin API")
	serveCmd.Flags().BoolVar(&watchSettings, "watch-settings", true, "Exit when settings.json changes so a supervisor restarts with it")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, c *config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Shutdown(shutdownCtx)
	}()

	store, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer store.Close()

	states, pending, err := openStates(ctx, c)
	if err != nil {
		return err
	}
	defer states.Close()
	if pending != nil {
		if err := m.ObservePending(pending); err != nil {
			log.Warn().Err(err).Msg("Failed to register pending actions gauge")
		}
	}

	normalizer, err := newNormalizer(c)
	if err != nil {
		return err
	}

	catalog, err := i18n.Load(c.MessagesFile)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	svc := assistant.New(assistant.Deps{
		Store:      store,
		States:     states,
		Normalizer: normalizer,
		Catalog:    catalog,
		Clock:      clock.System{},
		Metrics:    m,
	})

	api, err := telegram.Connect(c.TelegramToken, c.TelegramDebug)
	if err != nil {
		return err
	}
	bot := telegram.New(api, svc, telegram.Config{SendRate: float64(c.SendRate)}, m)

	sched := scheduler.New(scheduler.Config{Interval: c.ScanInterval}, store, bot, clock.System{}, m)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if watchSettings {
		w, err := watcher.New(config.SettingsPath(), func(op fsnotify.Op) {
			log.Warn().Str("op", op.String()).Msg("Settings changed, shutting down for restart")
			cancel()
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create settings watcher")
		} else if err := w.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to start settings watcher")
		} else {
			defer w.Stop()
		}
	}

	var admin *worker.Service
	if !noAdmin {
		admin = worker.New(worker.Deps{
			Store:    store,
			Scanner:  sched,
			Metrics:  m,
			Location: normalizer.Location(),
			Clock:    clock.System{},
			Version:  Version,
			Pending:  pending,
		})
		sched.SetObserver(admin)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	if admin != nil {
		addr := adminAddr
		if addr == "" {
			addr = fmt.Sprintf("127.0.0.1:%d", c.WorkerPort)
		}
		g.Go(func() error { return admin.Serve(gctx, addr) })
	}

	log.Info().
		Str("version", Version).
		Str("db", c.DBDriver).
		Str("dialog", c.DialogBackend).
		Str("zone", normalizer.Location().String()).
		Dur("scan_interval", c.ScanInterval).
		Msg("notekeeper started")

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("notekeeper stopped")
	return nil
}
