// Package scheduler drives the outbound command cadence: periodic rolls
// against the remaining budget, the once-a-day command pair, and status
// refreshes.
package scheduler

import (
	"context"
	"time"

	"github.com/solvant/claimant/internal/feed"
	"github.com/solvant/claimant/internal/tracker"
	"go.uber.org/zap"
)

const (
	// pauseWait is how long to idle while rolling is disabled or paused.
	pauseWait = 5 * time.Second

	// budgetWait is how long to idle with no rolls left.
	budgetWait = 10 * time.Second

	// rollSpacing separates consecutive roll commands.
	rollSpacing = time.Second

	// dailySpacing separates the two daily commands.
	dailySpacing = 2 * time.Second
)

// Sender sends plain text into a channel.
type Sender interface {
	SendText(ctx context.Context, channelID uint64, content string) error
}

// Options configure the command cadence.
type Options struct {
	Channels     []uint64
	RollCommands []string

	AutoRoll  bool
	AutoDaily bool

	// DailyTime is the local wall-clock time ("15:04") after which the
	// daily pair may run.
	DailyTime time.Time
}

// Scheduler owns the roll loop. Run blocks until the context is canceled.
type Scheduler struct {
	opts     Options
	sender   Sender
	tracker  *tracker.Tracker
	recorder *feed.Recorder
	logger   *zap.Logger

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error
}

// New wires a scheduler.
func New(opts Options, sender Sender, tr *tracker.Tracker, recorder *feed.Recorder, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		opts:     opts,
		sender:   sender,
		tracker:  tr,
		recorder: recorder,
		logger:   logger.Named("scheduler"),
		sleep:    sleepCtx,
	}
}

// Run rolls continuously until ctx ends, checking on every cycle whether the
// daily pair became due.
func (s *Scheduler) Run(ctx context.Context) error {
	s.recorder.Log(feed.Info, "Roll scheduler started")

	if len(s.opts.Channels) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		for _, channelID := range s.opts.Channels {
			if err := s.RunDaily(ctx, channelID); err != nil {
				return err
			}

			if err := s.step(ctx, channelID); err != nil {
				return err
			}
		}
	}
}

// step issues at most one roll in channelID, idling when rolling is blocked.
func (s *Scheduler) step(ctx context.Context, channelID uint64) error {
	if !s.opts.AutoRoll || s.tracker.Paused() {
		return s.sleep(ctx, pauseWait)
	}

	if s.tracker.RollsRemaining() == 0 {
		if wait, ok := s.tracker.TimeUntilRollReset(); ok {
			s.logger.Debug("No rolls remaining, waiting for reset",
				zap.Duration("remaining", wait))
		} else {
			s.logger.Debug("No rolls remaining, waiting for reset")
		}

		return s.sleep(ctx, budgetWait)
	}

	commands := s.tracker.AvailableCommands(s.opts.RollCommands)
	if len(commands) == 0 {
		return s.sleep(ctx, pauseWait)
	}

	cmd := commands[0]
	if err := s.sender.SendText(ctx, channelID, cmd); err != nil {
		s.logger.Warn("Failed to send roll command", zap.String("command", cmd), zap.Error(err))
		return s.sleep(ctx, rollSpacing)
	}

	s.tracker.MarkUsed(cmd)
	s.tracker.DecrementRolls()
	s.recorder.CountRollExecuted()
	s.recorder.Log(feed.Roll, "Rolling with "+cmd)

	return s.sleep(ctx, rollSpacing)
}

// RunDaily sends the daily command pair when it is due.
func (s *Scheduler) RunDaily(ctx context.Context, channelID uint64) error {
	if !s.opts.AutoDaily || !s.tracker.ShouldRunDaily(s.opts.DailyTime) {
		return nil
	}

	if err := s.sender.SendText(ctx, channelID, "$daily"); err != nil {
		s.logger.Warn("Failed to send daily command", zap.Error(err))
		return nil
	}

	if err := s.sleep(ctx, dailySpacing); err != nil {
		return err
	}

	if err := s.sender.SendText(ctx, channelID, "$dk"); err != nil {
		s.logger.Warn("Failed to send daily kakera command", zap.Error(err))
	}

	s.tracker.MarkDailyRun()
	s.recorder.Log(feed.Success, "Executed daily commands")

	return nil
}

// RefreshStatus asks the game for the current roll and claim state. The
// answers come back as ordinary messages and are absorbed by the engine.
func (s *Scheduler) RefreshStatus(ctx context.Context, channelID uint64) error {
	if err := s.sender.SendText(ctx, channelID, "$ru"); err != nil {
		return err
	}

	if err := s.sleep(ctx, dailySpacing); err != nil {
		return err
	}

	return s.sender.SendText(ctx, channelID, "$tu")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
