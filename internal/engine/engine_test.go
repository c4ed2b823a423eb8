package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/solvant/claimant/internal/chat"
	"github.com/solvant/claimant/internal/feed"
	"github.com/solvant/claimant/internal/lookup"
	"github.com/solvant/claimant/internal/store"
	"github.com/solvant/claimant/internal/tracker"
	"github.com/solvant/claimant/internal/wishlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBotID = 432610292342587392

// fakeSender records every outbound action.
type fakeSender struct {
	mu        sync.Mutex
	texts     []string
	reactions []string
	clicks    []chat.ClickRequest
	clickErr  error
	reactErr  error
}

func (s *fakeSender) SendText(_ context.Context, _ uint64, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.texts = append(s.texts, content)

	return nil
}

func (s *fakeSender) AddReaction(_ context.Context, _, _ uint64, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reactions = append(s.reactions, emoji)

	return s.reactErr
}

func (s *fakeSender) ClickButton(_ context.Context, req chat.ClickRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clicks = append(s.clicks, req)

	return s.clickErr
}

func (s *fakeSender) outboundCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.texts) + len(s.reactions) + len(s.clicks)
}

type memPersister struct {
	entries []wishlist.Entry
}

func (p *memPersister) SaveWishlist(entries []wishlist.Entry) error {
	p.entries = append([]wishlist.Entry(nil), entries...)
	return nil
}

func (p *memPersister) LoadWishlist() ([]wishlist.Entry, error) {
	return append([]wishlist.Entry(nil), p.entries...), nil
}

type fixture struct {
	engine   *Engine
	sender   *fakeSender
	wishlist *wishlist.Store
	tracker  *tracker.Tracker
	recorder *feed.Recorder
	lookups  *lookup.Coordinator
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	sender := &fakeSender{}
	wl, err := wishlist.NewStore(&memPersister{}, wishlist.DefaultOptions(), zap.NewNop())
	require.NoError(t, err)

	tr := tracker.New(time.Hour)
	recorder := feed.New(store.Totals{})
	lookups := lookup.New(sender, zap.NewNop())

	e := New(opts, sender, wl, tr, recorder, lookups, zap.NewNop())
	e.sleep = func(context.Context, time.Duration) error { return nil }

	return &fixture{engine: e, sender: sender, wishlist: wl, tracker: tr, recorder: recorder, lookups: lookups}
}

func defaultOptions() Options {
	return Options{BotID: testBotID, WishlistEnabled: true, AutoKakera: true}
}

func wishedRoll(buttonID string) chat.Message {
	description := "Re:Zero\nWished by you 💖"

	m := chat.Message{
		ID:        100,
		ChannelID: 200,
		GuildID:   300,
		Author:    chat.Author{ID: testBotID, Username: "Mudae", Bot: true},
		Embeds: []chat.Embed{{
			AuthorName:  "Rem",
			Description: description,
			FooterText:  "250 <:kakera:123>",
		}},
	}
	if buttonID != "" {
		m.Rows = []chat.ButtonRow{{Buttons: []chat.Button{
			{CustomID: buttonID, Emoji: &chat.ButtonEmoji{Name: "💖"}},
		}}}
	}

	return m
}

func plainRoll(name, series string) chat.Message {
	return chat.Message{
		ID:        101,
		ChannelID: 200,
		Author:    chat.Author{ID: testBotID, Username: "Mudae", Bot: true},
		Embeds: []chat.Embed{{
			AuthorName:  name,
			Description: series,
		}},
	}
}

func TestClaimedRollNoOutbound(t *testing.T) {
	f := newFixture(t, defaultOptions())

	m := wishedRoll("btn")
	m.Embeds[0].Description = "Re:Zero\nBelongs to someone"

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: m})

	assert.Zero(t, f.sender.outboundCount())
	assert.Equal(t, uint64(1), f.recorder.Totals().Rolled)
}

func TestWishedRollClicksButton(t *testing.T) {
	f := newFixture(t, defaultOptions())

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: wishedRoll("claim-btn")})

	require.Len(t, f.sender.clicks, 1)
	assert.Empty(t, f.sender.reactions)

	click := f.sender.clicks[0]
	assert.Equal(t, uint64(100), click.MessageID)
	assert.Equal(t, uint64(200), click.ChannelID)
	assert.Equal(t, uint64(300), click.GuildID)
	assert.Equal(t, uint64(testBotID), click.AppID)
	assert.Equal(t, "claim-btn", click.CustomID)

	totals := f.recorder.Totals()
	assert.Equal(t, uint64(1), totals.Claimed)
	assert.Equal(t, uint64(1), totals.WishlistMatches)
}

func TestClickFailureFallsBackToReaction(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.sender.clickErr = errors.New("interaction rejected")

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: wishedRoll("claim-btn")})

	require.Len(t, f.sender.clicks, 1)
	require.Equal(t, []string{"💖"}, f.sender.reactions)
	assert.Equal(t, uint64(1), f.recorder.Totals().Claimed)
}

func TestRollWithoutButtonReacts(t *testing.T) {
	f := newFixture(t, defaultOptions())

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: wishedRoll("")})

	assert.Empty(t, f.sender.clicks)
	assert.Equal(t, []string{"💖"}, f.sender.reactions)
}

func TestWishlistMatchTriggersClaim(t *testing.T) {
	f := newFixture(t, defaultOptions())

	_, err := f.wishlist.Add("Rem", "")
	require.NoError(t, err)

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: plainRoll("Rem", "Re:Zero")})

	assert.Equal(t, []string{"💖"}, f.sender.reactions)
}

func TestUnmatchedRollIgnored(t *testing.T) {
	f := newFixture(t, defaultOptions())

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: plainRoll("Nobody", "Nothing")})

	assert.Zero(t, f.sender.outboundCount())
	assert.Equal(t, uint64(1), f.recorder.Totals().Rolled)
}

func TestWishlistDisabledStillClaimsWished(t *testing.T) {
	opts := defaultOptions()
	opts.WishlistEnabled = false
	f := newFixture(t, opts)

	_, err := f.wishlist.Add("Emilia", "")
	require.NoError(t, err)

	// Stored match is ignored with the wishlist disabled.
	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: plainRoll("Emilia", "Re:Zero")})
	assert.Zero(t, f.sender.outboundCount())

	// The game's own wish marker still claims.
	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: wishedRoll("")})
	assert.Equal(t, []string{"💖"}, f.sender.reactions)
}

func TestPausedSkipsClaims(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.tracker.Pause()

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: wishedRoll("btn")})

	assert.Zero(t, f.sender.outboundCount())
}

func TestClaimUnavailableSkipsClaims(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.tracker.SetClaimAvailable(false)

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: wishedRoll("btn")})

	assert.Zero(t, f.sender.outboundCount())
	// The match itself is not counted when the claim cannot happen.
	assert.Zero(t, f.recorder.Totals().WishlistMatches)
}

func TestOfferDecrementsBudget(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.tracker.SetRolls(3)

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: plainRoll("Nobody", "Nothing")})

	assert.Equal(t, 2, f.tracker.RollsRemaining())
}

func TestKakeraButtonClick(t *testing.T) {
	f := newFixture(t, defaultOptions())

	m := chat.Message{
		ID:        300,
		ChannelID: 200,
		Author:    chat.Author{ID: testBotID, Username: "Mudae", Bot: true},
		Embeds:    []chat.Embed{{Color: 0x9B59B6, HasColor: true}},
		Rows: []chat.ButtonRow{{Buttons: []chat.Button{
			{CustomID: "loot", Emoji: &chat.ButtonEmoji{Name: "kakeraP"}},
		}}},
	}

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: m})

	require.Len(t, f.sender.clicks, 1)
	assert.Equal(t, "loot", f.sender.clicks[0].CustomID)
	assert.Equal(t, uint64(1), f.recorder.Totals().Kakera)
}

func TestKakeraDisabled(t *testing.T) {
	opts := defaultOptions()
	opts.AutoKakera = false
	f := newFixture(t, opts)

	m := chat.Message{
		Author: chat.Author{ID: testBotID, Username: "Mudae", Bot: true},
		Rows: []chat.ButtonRow{{Buttons: []chat.Button{
			{CustomID: "loot", Emoji: &chat.ButtonEmoji{Name: "kakeraT"}},
		}}},
	}

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: m})

	assert.Zero(t, f.sender.outboundCount())
}

func TestLookupResultResolvesPending(t *testing.T) {
	f := newFixture(t, defaultOptions())

	done := make(chan lookup.Result, 1)
	go func() {
		result, _ := f.lookups.Request(context.Background(), 200, "Rem")
		done <- result
	}()

	require.Eventually(t, func() bool { return f.lookups.HasPending(200) },
		time.Second, time.Millisecond)

	m := chat.Message{
		ChannelID: 200,
		Author:    chat.Author{ID: testBotID, Username: "Mudae", Bot: true},
		Embeds: []chat.Embed{{
			AuthorName:  "Rem",
			Description: "Re:Zero\ndetail",
			Fields:      []chat.EmbedField{{Name: "Claim Rank", Value: "#12"}},
		}},
	}
	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: m})

	select {
	case result := <-done:
		assert.True(t, result.Found)
		assert.Equal(t, "Rem", result.Name)
		assert.Equal(t, "Re:Zero", result.Series)
	case <-time.After(time.Second):
		t.Fatal("lookup did not resolve")
	}
}

func TestFieldlessInfoPageResolvesLookup(t *testing.T) {
	f := newFixture(t, defaultOptions())

	done := make(chan lookup.Result, 1)
	go func() {
		result, _ := f.lookups.Request(context.Background(), 200, "Rem")
		done <- result
	}()

	require.Eventually(t, func() bool { return f.lookups.HasPending(200) },
		time.Second, time.Millisecond)

	// No description and no fields, so only the embed author names the
	// character. The pending lookup still gets an answer.
	m := chat.Message{
		ChannelID: 200,
		Author:    chat.Author{ID: testBotID, Username: "Mudae", Bot: true},
		Embeds: []chat.Embed{{
			AuthorName: "Rem",
			FooterText: "250 <:kakera:123>",
			ImageURL:   "https://mudae.net/uploads/408012/rem.png",
		}},
	}
	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: m})

	select {
	case result := <-done:
		assert.True(t, result.Found)
		assert.Equal(t, "Rem", result.Name)
		assert.Equal(t, 250, result.KakeraValue)
		assert.Equal(t, "408012", result.ExternalID)
	case <-time.After(time.Second):
		t.Fatal("lookup did not resolve")
	}
}

func TestStatusMessagesUpdateTracker(t *testing.T) {
	f := newFixture(t, defaultOptions())

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: chat.Message{
		ChannelID: 200,
		Author:    chat.Author{ID: testBotID, Username: "Mudae", Bot: true},
		Content:   "**you** have 7 rolls left. Next rolls reset in 33 min.",
	}})

	assert.Equal(t, 7, f.tracker.RollsRemaining())
	_, ok := f.tracker.TimeUntilRollReset()
	assert.True(t, ok)

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: chat.Message{
		ChannelID: 200,
		Author:    chat.Author{ID: testBotID, Username: "Mudae", Bot: true},
		Content:   "you can't claim for another 2h. The next claim reset is in 2h.",
	}})

	assert.False(t, f.tracker.ClaimAvailable())
	until, ok := f.tracker.TimeUntilClaimReset()
	require.True(t, ok)
	assert.InDelta(t, float64(2*time.Hour), float64(until), float64(time.Minute))
}

func TestNonTargetChannelIgnored(t *testing.T) {
	opts := defaultOptions()
	opts.TargetChannels = []uint64{999}
	f := newFixture(t, opts)

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: wishedRoll("btn")})

	assert.Zero(t, f.sender.outboundCount())
	assert.Zero(t, f.recorder.Totals().Rolled)
}

func TestUserMessageRecorded(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.engine.HandleEvent(context.Background(), chat.ReadyEvent{UserID: 7, Username: "me"})

	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: chat.Message{
		ChannelID: 200,
		Author:    chat.Author{ID: 55, Username: "someone"},
		Content:   "hello there",
	}})

	// Own messages are not recorded.
	f.engine.HandleEvent(context.Background(), chat.MessageEvent{Message: chat.Message{
		ChannelID: 200,
		Author:    chat.Author{ID: 7, Username: "me"},
		Content:   "$wa",
	}})

	notes := f.recorder.ChannelFeed()
	require.Len(t, notes, 1)
	assert.Equal(t, "someone", notes[0].Username)
	assert.Equal(t, "hello there", notes[0].Text)
}
