// Package engine reacts to classified channel traffic: it decides which rolls
// to claim, which kakera to collect, and keeps the shared pacing state
// current.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/solvant/claimant/internal/chat"
	"github.com/solvant/claimant/internal/classify"
	"github.com/solvant/claimant/internal/feed"
	"github.com/solvant/claimant/internal/lookup"
	"github.com/solvant/claimant/internal/tracker"
	"github.com/solvant/claimant/internal/wishlist"
	"go.uber.org/zap"
)

const (
	claimEmoji  = "💖"
	kakeraEmoji = "💎"

	// Claims wait a beat so they do not land the instant the roll appears.
	claimDelayBase   = 100 * time.Millisecond
	claimDelaySpread = 500 * time.Millisecond

	// Kakera drops are less contested and get a shorter pause.
	kakeraDelayBase   = 50 * time.Millisecond
	kakeraDelaySpread = 200 * time.Millisecond
)

// Sender is the outbound surface the engine needs.
type Sender interface {
	SendText(ctx context.Context, channelID uint64, content string) error
	AddReaction(ctx context.Context, channelID, messageID uint64, emoji string) error
	ClickButton(ctx context.Context, req chat.ClickRequest) error
}

// Options configure which traffic the engine acts on.
type Options struct {
	// BotID identifies the game bot whose messages are interpreted.
	BotID uint64

	// TargetChannels limits processing; empty means every channel.
	TargetChannels []uint64

	// WishlistEnabled allows claims on stored wishlist matches in addition
	// to rolls the game itself marks as wished.
	WishlistEnabled bool

	// AutoKakera enables kakera collection.
	AutoKakera bool
}

// Engine consumes gateway events and issues claims.
type Engine struct {
	opts     Options
	sender   Sender
	wishlist *wishlist.Store
	tracker  *tracker.Tracker
	recorder *feed.Recorder
	lookups  *lookup.Coordinator
	logger   *zap.Logger

	userID uint64

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error
}

// New wires an engine. The lookup coordinator may be shared with a verifier.
func New(
	opts Options,
	sender Sender,
	wl *wishlist.Store,
	tr *tracker.Tracker,
	recorder *feed.Recorder,
	lookups *lookup.Coordinator,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		opts:     opts,
		sender:   sender,
		wishlist: wl,
		tracker:  tr,
		recorder: recorder,
		lookups:  lookups,
		logger:   logger.Named("engine"),
		sleep:    sleepCtx,
	}
}

// HandleEvent dispatches one gateway event.
func (e *Engine) HandleEvent(ctx context.Context, event any) {
	switch ev := event.(type) {
	case chat.ReadyEvent:
		e.userID = ev.UserID
		e.recorder.SetIdentity(ev.UserID, ev.Username)
		e.recorder.Log(feed.Success, "Connected as "+ev.Username)
		e.logger.Info("Session ready",
			zap.Uint64("userID", ev.UserID),
			zap.String("username", ev.Username))

	case chat.MessageEvent:
		e.handleMessage(ctx, &ev.Message)

	case chat.ReactionEvent:
		// Only logged; claims are confirmed by message updates.
		if ev.UserID != e.userID {
			e.logger.Debug("Reaction observed",
				zap.Uint64("messageID", ev.MessageID),
				zap.String("emoji", ev.Emoji))
		}
	}
}

func (e *Engine) handleMessage(ctx context.Context, m *chat.Message) {
	if !e.isTargetChannel(m.ChannelID) {
		return
	}

	if !e.isBotMessage(m) {
		e.recordUserMessage(m)
		return
	}

	switch ev := classify.Classify(m).(type) {
	case classify.CharacterOffer:
		e.handleOffer(ctx, ev)
	case classify.KakeraLoot:
		e.handleKakera(ctx, ev)
	case classify.LookupResult:
		e.handleLookupResult(m.ChannelID, ev)
	case classify.RollsStatus:
		e.handleRollsStatus(ev)
	case classify.ClaimStatus:
		e.handleClaimStatus(ev)
	case classify.DailyReady:
		e.recorder.AddChannelNote("", "Daily commands ready!")
		e.recorder.Log(feed.Info, "Daily commands ready")
	case classify.Unrecognized:
		// Info pages without the usual fields classify as Unrecognized;
		// when a lookup is waiting here, the embed author is the answer.
		if result, ok := classify.LookupFallback(m); ok && e.lookups.HasPending(m.ChannelID) {
			e.handleLookupResult(m.ChannelID, result)
			return
		}

		if summary := classify.DisplaySummary(&ev.Message); summary != "" {
			e.recorder.AddChannelNote("", summary)
		}
	}
}

func (e *Engine) handleOffer(ctx context.Context, offer classify.CharacterOffer) {
	e.recorder.CountRolled()
	e.tracker.DecrementRolls()
	e.recorder.AddRoll(feed.RollRecord{
		Name:        offer.Name,
		Series:      offer.Series,
		KakeraValue: offer.KakeraValue,
		HasKakera:   offer.HasKakera,
		Claimed:     offer.Claimed,
		Wished:      offer.Wished,
	})

	if offer.Claimed {
		e.logger.Debug("Character already claimed", zap.String("name", offer.Name))
		return
	}

	if e.tracker.Paused() {
		return
	}

	if !e.shouldClaim(offer) {
		return
	}

	if !e.tracker.ClaimAvailable() {
		e.logger.Debug("Claim on cooldown, letting match pass", zap.String("name", offer.Name))
		return
	}

	e.recorder.CountWishlistMatch()
	e.recorder.Log(feed.Wishlist, "Match found: "+offer.Name)

	if err := e.sleep(ctx, jitter(claimDelayBase, claimDelaySpread)); err != nil {
		return
	}

	if err := e.claim(ctx, offer); err != nil {
		e.recorder.Log(feed.Error, fmt.Sprintf("Failed to claim %s: %v", offer.Name, err))
		e.logger.Warn("Claim failed", zap.String("name", offer.Name), zap.Error(err))

		return
	}

	e.recorder.CountClaimed()
	e.recorder.Log(feed.Claim, "Claimed: "+offer.Name)
	e.logger.Info("Claimed character",
		zap.String("name", offer.Name),
		zap.String("series", offer.Series))
}

// shouldClaim prefers the game's own wish marker, then the stored wishlist.
func (e *Engine) shouldClaim(offer classify.CharacterOffer) bool {
	if offer.Wished {
		return true
	}

	if !e.opts.WishlistEnabled {
		return false
	}

	_, ok := e.wishlist.Match(offer.Name, offer.Series)

	return ok
}

// claim clicks the claim button when one exists and falls back to a heart
// reaction when the click fails or no button was offered.
func (e *Engine) claim(ctx context.Context, offer classify.CharacterOffer) error {
	if offer.HasClaimButton && offer.ClaimButtonID != "" {
		err := e.sender.ClickButton(ctx, chat.ClickRequest{
			MessageID: offer.MessageID,
			ChannelID: offer.ChannelID,
			GuildID:   offer.GuildID,
			AppID:     e.opts.BotID,
			CustomID:  offer.ClaimButtonID,
		})
		if err == nil {
			return nil
		}

		e.logger.Warn("Claim button click failed, falling back to reaction", zap.Error(err))
	}

	return e.sender.AddReaction(ctx, offer.ChannelID, offer.MessageID, claimEmoji)
}

func (e *Engine) handleKakera(ctx context.Context, loot classify.KakeraLoot) {
	if !e.opts.AutoKakera {
		return
	}

	e.recorder.Log(feed.Kakera, "Kakera detected: "+loot.Kind.String())

	if err := e.sleep(ctx, jitter(kakeraDelayBase, kakeraDelaySpread)); err != nil {
		return
	}

	var err error
	if loot.ButtonID != "" {
		err = e.sender.ClickButton(ctx, chat.ClickRequest{
			MessageID: loot.MessageID,
			ChannelID: loot.ChannelID,
			GuildID:   loot.GuildID,
			AppID:     e.opts.BotID,
			CustomID:  loot.ButtonID,
		})
	} else {
		err = e.sender.AddReaction(ctx, loot.ChannelID, loot.MessageID, kakeraEmoji)
	}

	if err != nil {
		e.recorder.Log(feed.Error, fmt.Sprintf("Failed to collect kakera: %v", err))
		e.logger.Warn("Kakera collection failed", zap.Error(err))

		return
	}

	e.recorder.CountKakera(0)
	e.recorder.Log(feed.Success, "Kakera collected")
}

func (e *Engine) handleLookupResult(channelID uint64, result classify.LookupResult) {
	e.lookups.Resolve(channelID, lookup.Result{
		Name:        result.Name,
		Series:      result.Series,
		ImageURL:    result.ImageURL,
		KakeraValue: result.KakeraValue,
		HasKakera:   result.HasKakera,
		ExternalID:  result.ExternalID,
		Found:       result.Found,
	})

	if result.Found {
		e.recorder.AddChannelNote("", result.Name+" ("+result.Series+")")
	}
}

func (e *Engine) handleRollsStatus(status classify.RollsStatus) {
	e.tracker.SetRolls(status.Remaining)
	if status.HasReset {
		e.tracker.SetRollReset(status.ResetIn)
	}

	msg := fmt.Sprintf("%d rolls remaining", status.Remaining)
	if status.Remaining == 0 {
		msg = "No rolls left"
	}

	e.recorder.AddChannelNote("", msg)
	e.recorder.Log(feed.Info, msg)
}

func (e *Engine) handleClaimStatus(status classify.ClaimStatus) {
	e.tracker.SetClaimAvailable(status.Available)
	if status.HasReset {
		e.tracker.SetClaimReset(status.ResetIn)
	}

	msg := "Claim on cooldown"
	if status.Available {
		msg = "Claim available!"
	}

	e.recorder.AddChannelNote("", msg)
	e.recorder.Log(feed.Info, "Claim status: "+msg)
}

func (e *Engine) recordUserMessage(m *chat.Message) {
	if m.Content == "" || m.Author.ID == e.userID {
		return
	}

	const maxLen = 50

	content := m.Content
	if len(content) > maxLen {
		content = content[:maxLen-3] + "..."
	}

	e.recorder.AddChannelNote(m.Author.Username, content)
}

func (e *Engine) isTargetChannel(channelID uint64) bool {
	if len(e.opts.TargetChannels) == 0 {
		return true
	}

	for _, id := range e.opts.TargetChannels {
		if id == channelID {
			return true
		}
	}

	return false
}

func (e *Engine) isBotMessage(m *chat.Message) bool {
	return m.Author.ID == e.opts.BotID ||
		strings.Contains(strings.ToLower(m.Author.Username), "mudae")
}

func jitter(base, spread time.Duration) time.Duration {
	return base + rand.N(spread)
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
