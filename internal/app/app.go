// Package app wires the full automation together and runs its long-lived
// loops.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solvant/claimant/internal/chat"
	"github.com/solvant/claimant/internal/engine"
	"github.com/solvant/claimant/internal/feed"
	"github.com/solvant/claimant/internal/lookup"
	"github.com/solvant/claimant/internal/scheduler"
	"github.com/solvant/claimant/internal/setup/config"
	"github.com/solvant/claimant/internal/store"
	"github.com/solvant/claimant/internal/tracker"
	"github.com/solvant/claimant/internal/wishlist"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// totalsSaveInterval is how often the lifetime counters are flushed.
const totalsSaveInterval = time.Minute

// initialRollBudget seeds the budget before the first status message arrives.
const initialRollBudget = 10

const pausedSettingKey = "paused"

// Automation toggles the external setup UI may flip between runs. Stored
// values override the config file at startup.
var storedToggles = []struct {
	key   string
	apply func(*config.Config, bool)
}{
	{"auto_roll", func(c *config.Config, v bool) { c.Automation.AutoRoll = v }},
	{"auto_kakera", func(c *config.Config, v bool) { c.Automation.AutoKakera = v }},
	{"auto_daily", func(c *config.Config, v bool) { c.Automation.AutoDaily = v }},
	{"wishlist_enabled", func(c *config.Config, v bool) { c.Wishlist.Enabled = v }},
	{"fuzzy_enabled", func(c *config.Config, v bool) { c.Wishlist.FuzzyEnabled = v }},
}

// App owns every component and their shared state.
type App struct {
	cfg       *config.Config
	client    *chat.Client
	engine    *engine.Engine
	scheduler *scheduler.Scheduler
	verifier  *lookup.Verifier
	lookups   *lookup.Coordinator
	wishlist  *wishlist.Store
	tracker   *tracker.Tracker
	recorder  *feed.Recorder
	db        *store.DB
	logger    *zap.Logger
}

// New builds the application from configuration. The returned App holds an
// open database; callers must Run it or close the database themselves.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg.Discord.Token == "" {
		return nil, errors.New("no token configured")
	}

	db, err := store.Open(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	totals, err := db.LoadTotals()
	if err != nil {
		db.Close()
		return nil, err
	}

	// Stored toggles must land before components capture the config.
	applyStoredSettings(db, cfg)

	wl, err := wishlist.NewStore(db, cfg.Wishlist.StoreOptions(), logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	recorder := feed.New(totals)

	tr := tracker.New(cfg.Automation.RollCooldown())
	tr.SetRolls(initialRollBudget)

	if value, ok, err := db.GetSetting(pausedSettingKey); err == nil && ok && value == "true" {
		tr.Pause()
	}

	client := chat.NewClient(cfg.Discord.Token, logger)

	lookups := lookup.New(client, logger)

	var verifyChannel uint64
	if len(cfg.Discord.Channels) > 0 {
		verifyChannel = cfg.Discord.Channels[0]
	}

	verifier := lookup.NewVerifier(lookups, wl, verifyChannel, logger)

	eng := engine.New(engine.Options{
		BotID:           cfg.Discord.BotID,
		TargetChannels:  cfg.Discord.Channels,
		WishlistEnabled: cfg.Wishlist.Enabled,
		AutoKakera:      cfg.Automation.AutoKakera,
	}, client, wl, tr, recorder, lookups, logger)

	sched := scheduler.New(scheduler.Options{
		Channels:     cfg.Discord.Channels,
		RollCommands: cfg.Automation.RollCommands,
		AutoRoll:     cfg.Automation.AutoRoll,
		AutoDaily:    cfg.Automation.AutoDaily,
		DailyTime:    cfg.Automation.DailySchedule(),
	}, client, tr, recorder, logger)

	return &App{
		cfg:       cfg,
		client:    client,
		engine:    eng,
		scheduler: sched,
		verifier:  verifier,
		lookups:   lookups,
		wishlist:  wl,
		tracker:   tr,
		recorder:  recorder,
		db:        db,
		logger:    logger.Named("app"),
	}, nil
}

// applyStoredSettings overlays toggles persisted in the database onto the
// loaded configuration.
func applyStoredSettings(db *store.DB, cfg *config.Config) {
	for _, toggle := range storedToggles {
		value, ok, err := db.GetSetting(toggle.key)
		if err != nil || !ok {
			continue
		}

		toggle.apply(cfg, value == "true")
	}
}

// Wishlist exposes the wishlist store for command-line management.
func (a *App) Wishlist() *wishlist.Store { return a.wishlist }

// Verifier exposes the wishlist verifier for command-line management.
func (a *App) Verifier() *lookup.Verifier { return a.verifier }

// Lookups exposes the lookup coordinator for ad-hoc character queries.
func (a *App) Lookups() *lookup.Coordinator { return a.lookups }

// Recorder exposes the session recorder.
func (a *App) Recorder() *feed.Recorder { return a.recorder }

// Tracker exposes the shared pacing state.
func (a *App) Tracker() *tracker.Tracker { return a.tracker }

// Close flushes counters and releases the database.
func (a *App) Close() error {
	if err := a.db.SaveTotals(a.recorder.Totals()); err != nil {
		a.logger.Error("Failed to save totals on shutdown", zap.Error(err))
	}

	paused := "false"
	if a.tracker.Paused() {
		paused = "true"
	}

	if err := a.db.SetSetting(pausedSettingKey, paused); err != nil {
		a.logger.Error("Failed to save pause state", zap.Error(err))
	}

	return a.db.Close()
}

// Run connects the gateway and drives every loop until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	if err := a.client.Open(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer a.client.Close()

	a.recorder.Log(feed.Info, "Event loop started")

	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(a.runEvents)
	p.Go(a.scheduler.Run)
	p.Go(a.runTotalsSaver)

	if a.cfg.Automation.StatusRefresh() > 0 {
		p.Go(a.runStatusRefresh)
	}

	if a.cfg.Wishlist.Enabled && a.cfg.Wishlist.AutoVerify {
		p.Go(a.runStartupVerification)
	}

	err := p.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// runEvents feeds gateway events into the engine.
func (a *App) runEvents(ctx context.Context) error {
	for {
		select {
		case event, ok := <-a.client.Events():
			if !ok {
				return errors.New("gateway event stream closed")
			}

			a.engine.HandleEvent(ctx, event)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runTotalsSaver periodically persists the lifetime counters.
func (a *App) runTotalsSaver(ctx context.Context) error {
	ticker := time.NewTicker(totalsSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.db.SaveTotals(a.recorder.Totals()); err != nil {
				a.logger.Error("Failed to save totals", zap.Error(err))
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runStatusRefresh keeps the roll and claim state current by asking the game
// periodically. Answers flow back through the engine.
func (a *App) runStatusRefresh(ctx context.Context) error {
	if len(a.cfg.Discord.Channels) == 0 {
		return nil
	}

	channelID := a.cfg.Discord.Channels[0]

	ticker := time.NewTicker(a.cfg.Automation.StatusRefresh())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.tracker.Paused() {
				continue
			}

			if err := a.scheduler.RefreshStatus(ctx, channelID); err != nil {
				a.logger.Warn("Status refresh failed", zap.Error(err))
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runStartupVerification confirms unverified wishlist entries once the
// session is up.
func (a *App) runStartupVerification(ctx context.Context) error {
	report, err := a.verifier.VerifyUnverified(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}

		a.logger.Warn("Wishlist verification failed", zap.Error(err))

		return nil
	}

	if report.Total > 0 {
		a.logger.Info("Wishlist verification finished",
			zap.Int("total", report.Total),
			zap.Int("verified", report.Verified),
			zap.Int("failed", report.Failed))
	}

	return nil
}
