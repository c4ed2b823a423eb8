package classify

import (
	"testing"
	"time"

	"github.com/solvant/claimant/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rollMessage(description, footer string, rows ...chat.ButtonRow) *chat.Message {
	return &chat.Message{
		ID:        111,
		ChannelID: 222,
		Embeds: []chat.Embed{{
			AuthorName:  "Rem",
			Description: description,
			FooterText:  footer,
		}},
		Rows: rows,
	}
}

func TestClassifyCharacterOffer(t *testing.T) {
	tests := []struct {
		name        string
		description string
		footer      string
		wantSeries  string
		wantClaimed bool
		wantKakera  int
		wantHasKak  bool
		wantWished  bool
	}{
		{
			name:        "basic roll",
			description: "Re:Zero kara Hajimeru Isekai Seikatsu\nReact with any emoji to claim!",
			footer:      "250 <:kakera:469835869059153940>",
			wantSeries:  "Re:Zero kara Hajimeru Isekai Seikatsu",
			wantKakera:  250,
			wantHasKak:  true,
		},
		{
			name:        "claimed roll",
			description: "Re:Zero\nBelongs to someone_else",
			wantSeries:  "Re:Zero",
			wantClaimed: true,
		},
		{
			name:        "wished roll",
			description: "Re:Zero\nWished by you 💖",
			wantSeries:  "Re:Zero",
			wantWished:  true,
		},
		{
			name:        "no footer means no kakera value",
			description: "Re:Zero",
			footer:      "2 ROLLS LEFT",
			wantSeries:  "Re:Zero",
		},
		{
			name:        "series line is trimmed",
			description: "  Re:Zero  \nmore",
			wantSeries:  "Re:Zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Classify(rollMessage(tt.description, tt.footer))

			offer, ok := ev.(CharacterOffer)
			require.True(t, ok, "expected CharacterOffer, got %T", ev)

			assert.Equal(t, "Rem", offer.Name)
			assert.Equal(t, tt.wantSeries, offer.Series)
			assert.Equal(t, tt.wantClaimed, offer.Claimed)
			assert.Equal(t, tt.wantWished, offer.Wished)
			assert.Equal(t, tt.wantHasKak, offer.HasKakera)

			if tt.wantHasKak {
				assert.Equal(t, tt.wantKakera, offer.KakeraValue)
			}

			assert.Equal(t, uint64(111), offer.MessageID)
			assert.Equal(t, uint64(222), offer.ChannelID)
		})
	}
}

func TestClassifyClaimRank(t *testing.T) {
	ev := Classify(rollMessage("Re:Zero\nClaims: #42", ""))

	offer := ev.(CharacterOffer)
	assert.True(t, offer.HasRank)
	assert.Equal(t, 42, offer.ClaimRank)
}

func TestFindClaimButton(t *testing.T) {
	tests := []struct {
		name       string
		rows       []chat.ButtonRow
		wantFound  bool
		wantButton string
	}{
		{
			name: "emoji match",
			rows: []chat.ButtonRow{{Buttons: []chat.Button{
				{CustomID: "claim-1", Emoji: &chat.ButtonEmoji{Name: "💖"}},
			}}},
			wantFound:  true,
			wantButton: "claim-1",
		},
		{
			name: "marry label match",
			rows: []chat.ButtonRow{{Buttons: []chat.Button{
				{CustomID: "other", Label: "Info"},
				{CustomID: "claim-2", Label: "Marry"},
			}}},
			wantFound:  true,
			wantButton: "claim-2",
		},
		{
			name: "first match wins across rows",
			rows: []chat.ButtonRow{
				{Buttons: []chat.Button{{CustomID: "row0", Emoji: &chat.ButtonEmoji{Name: "💕"}}}},
				{Buttons: []chat.Button{{CustomID: "row1", Emoji: &chat.ButtonEmoji{Name: "💖"}}}},
			},
			wantFound:  true,
			wantButton: "row0",
		},
		{
			name: "no claim button",
			rows: []chat.ButtonRow{{Buttons: []chat.Button{
				{CustomID: "x", Emoji: &chat.ButtonEmoji{Name: "💎"}},
			}}},
		},
		{
			name: "no buttons at all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Classify(rollMessage("Re:Zero", "", tt.rows...))

			offer := ev.(CharacterOffer)
			assert.Equal(t, tt.wantFound, offer.HasClaimButton)
			assert.Equal(t, tt.wantButton, offer.ClaimButtonID)
		})
	}
}

func TestClassifyLookupResult(t *testing.T) {
	msg := &chat.Message{
		Embeds: []chat.Embed{{
			AuthorName:  "Rem",
			Description: "Re:Zero kara Hajimeru Isekai Seikatsu\nmore detail",
			FooterText:  "320 <:kakera:123>",
			ImageURL:    "https://mudae.net/uploads/408012/rem.png",
			Fields:      []chat.EmbedField{{Name: "Claim Rank", Value: "#12"}},
		}},
	}

	ev := Classify(msg)

	result, ok := ev.(LookupResult)
	require.True(t, ok, "expected LookupResult, got %T", ev)
	assert.Equal(t, "Rem", result.Name)
	assert.Equal(t, "Re:Zero kara Hajimeru Isekai Seikatsu", result.Series)
	assert.True(t, result.Found)
	assert.True(t, result.HasKakera)
	assert.Equal(t, 320, result.KakeraValue)
	assert.Equal(t, "408012", result.ExternalID)
}

func TestLookupFallback(t *testing.T) {
	// Author-only embed: no description, so the full info-page rule misses.
	msg := &chat.Message{
		Embeds: []chat.Embed{{
			AuthorName: "Rem",
			FooterText: "250 <:kakera:123>",
			ImageURL:   "https://mudae.net/uploads/408012/rem.png",
		}},
	}

	_, ok := Classify(msg).(Unrecognized)
	require.True(t, ok)

	result, ok := LookupFallback(msg)
	require.True(t, ok)
	assert.True(t, result.Found)
	assert.Equal(t, "Rem", result.Name)
	assert.Empty(t, result.Series)
	assert.Equal(t, 250, result.KakeraValue)
	assert.Equal(t, "408012", result.ExternalID)

	// No embed or no author: nothing to answer with.
	_, ok = LookupFallback(&chat.Message{Content: "plain text"})
	assert.False(t, ok)

	_, ok = LookupFallback(&chat.Message{Embeds: []chat.Embed{{Description: "only description"}}})
	assert.False(t, ok)
}

func TestExtractCharacterID(t *testing.T) {
	assert.Equal(t, "408012", ExtractCharacterID("https://mudae.net/uploads/408012/aBcDeF.png"))
	assert.Empty(t, ExtractCharacterID("https://example.com/rem.png"))
	assert.Empty(t, ExtractCharacterID(""))
}

func TestLookupResultRequiresFields(t *testing.T) {
	// Same embed without fields is a roll, not an info page.
	ev := Classify(rollMessage("Re:Zero", ""))

	_, ok := ev.(CharacterOffer)
	assert.True(t, ok, "expected CharacterOffer, got %T", ev)
}

func TestClassifyKakeraLoot(t *testing.T) {
	msg := &chat.Message{
		ID:        5,
		ChannelID: 6,
		Embeds:    []chat.Embed{{Color: 0x3498DB, HasColor: true}},
		Rows: []chat.ButtonRow{{Buttons: []chat.Button{
			{CustomID: "loot-1", Emoji: &chat.ButtonEmoji{Name: "kakeraP"}},
		}}},
	}

	ev := Classify(msg)

	loot, ok := ev.(KakeraLoot)
	require.True(t, ok, "expected KakeraLoot, got %T", ev)
	assert.Equal(t, KakeraBlue, loot.Kind)
	assert.Equal(t, "loot-1", loot.ButtonID)
}

func TestKakeraKindFromColor(t *testing.T) {
	assert.Equal(t, KakeraPurple, KakeraKindFromColor(0x9B59B6, true))
	assert.Equal(t, KakeraRainbow, KakeraKindFromColor(0x00FFFF, true))
	assert.Equal(t, KakeraUnknown, KakeraKindFromColor(0x123456, true))
	assert.Equal(t, KakeraUnknown, KakeraKindFromColor(0x9B59B6, false))
}

func TestClassifyRollsStatus(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		wantRemaining int
		wantReset     time.Duration
		wantHasReset  bool
	}{
		{
			name:          "rolls left with hour reset",
			content:       "**you** have 2 rolls left. Next rolls reset in 47 min.",
			wantRemaining: 2,
			wantReset:     47 * time.Minute,
			wantHasReset:  true,
		},
		{
			name:          "hour pattern takes priority",
			content:       "5 rolls left, reset in 1h 30 min",
			wantRemaining: 5,
			wantReset:     time.Hour,
			wantHasReset:  true,
		},
		{
			name:          "limited roulette",
			content:       "the roulette is limited, 17 min left",
			wantRemaining: 0,
			wantReset:     17 * time.Minute,
			wantHasReset:  true,
		},
		{
			name:          "unparsable count defaults to zero",
			content:       "rolls reset soon, no rolls left wording here",
			wantRemaining: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Classify(&chat.Message{Content: tt.content})

			status, ok := ev.(RollsStatus)
			require.True(t, ok, "expected RollsStatus, got %T", ev)
			assert.Equal(t, tt.wantRemaining, status.Remaining)
			assert.Equal(t, tt.wantHasReset, status.HasReset)

			if tt.wantHasReset {
				assert.Equal(t, tt.wantReset, status.ResetIn)
			}
		})
	}
}

func TestClassifyClaimStatus(t *testing.T) {
	ev := Classify(&chat.Message{Content: "**you** can claim right now! The next claim reset is in 2h 13 min."})
	status, ok := ev.(ClaimStatus)
	require.True(t, ok)
	assert.True(t, status.Available)
	assert.True(t, status.HasReset)
	assert.Equal(t, 2*time.Hour, status.ResetIn)

	ev = Classify(&chat.Message{Content: "you can't claim for another 1h 10 min. The next claim reset is in 2h."})
	status = ev.(ClaimStatus)
	assert.False(t, status.Available)
	assert.True(t, status.HasReset)
	assert.Equal(t, 2*time.Hour, status.ResetIn)

	// No hint leaves the reset unset.
	ev = Classify(&chat.Message{Content: "claim available"})
	status = ev.(ClaimStatus)
	assert.True(t, status.Available)
	assert.False(t, status.HasReset)
}

func TestClassifyDailyReady(t *testing.T) {
	ev := Classify(&chat.Message{Content: "your $daily is ready!"})
	_, ok := ev.(DailyReady)
	assert.True(t, ok)
}

func TestClassifyUnrecognized(t *testing.T) {
	msg := &chat.Message{Content: "something entirely different"}

	ev := Classify(msg)

	un, ok := ev.(Unrecognized)
	require.True(t, ok)
	assert.Equal(t, msg.Content, un.Message.Content)
}

func TestClassifyIsTotal(t *testing.T) {
	// Degenerate inputs must still classify, never panic.
	for _, msg := range []*chat.Message{
		{},
		{Embeds: []chat.Embed{{}}},
		{Rows: []chat.ButtonRow{{}}},
		{Embeds: []chat.Embed{{AuthorName: "only author"}}},
		{Embeds: []chat.Embed{{Description: "only description"}}},
	} {
		assert.NotNil(t, Classify(msg))
	}
}

func TestExtractKakeraValue(t *testing.T) {
	v, ok := ExtractKakeraValue("250 <:kakera:469835869059153940>")
	require.True(t, ok)
	assert.Equal(t, 250, v)

	_, ok = ExtractKakeraValue("no marker here")
	assert.False(t, ok)
}

func TestIsClaimEmoji(t *testing.T) {
	assert.True(t, IsClaimEmoji("💖"))
	assert.True(t, IsClaimEmoji("❤️"))
	assert.False(t, IsClaimEmoji("💎"))
	assert.False(t, IsClaimEmoji("kakera"))
}

func TestDisplaySummary(t *testing.T) {
	withEmbed := &chat.Message{Embeds: []chat.Embed{{AuthorName: "Rem", Description: "Re:Zero\nrest"}}}
	assert.Equal(t, "Rem (Re:Zero)", DisplaySummary(withEmbed))

	long := &chat.Message{Content: "0123456789012345678901234567890123456789012345678901234567890"}
	assert.Len(t, DisplaySummary(long), 50)
}
