package classify

import (
	"strings"
	"time"

	"github.com/solvant/claimant/internal/chat"
)

// rule pairs a predicate with its event builder. Rules are evaluated in
// fixed priority order; the first match wins.
type rule struct {
	name  string
	match func(*chat.Message) bool
	build func(*chat.Message) Event
}

var rules = []rule{
	{"lookup-result", isLookupResult, buildLookupResult},
	{"character-offer", isCharacterOffer, buildCharacterOffer},
	{"kakera-loot", isKakeraLoot, buildKakeraLoot},
	{"rolls-status", isRollsStatus, buildRollsStatus},
	{"claim-status", isClaimStatus, buildClaimStatus},
	{"daily-ready", isDailyReady, buildDailyReady},
}

// Classify maps a message to exactly one Event. It is pure, deterministic,
// and total: anything that matches no rule becomes Unrecognized.
func Classify(m *chat.Message) Event {
	for _, r := range rules {
		if r.match(m) {
			return r.build(m)
		}
	}

	return Unrecognized{Message: *m}
}

// A lookup response carries an author and description like a roll, but is
// distinguished by its (name, value) fields and the absence of buttons. Roll
// embeds never carry fields; info pages always do.
func isLookupResult(m *chat.Message) bool {
	e := m.FirstEmbed()
	if e == nil {
		return false
	}

	return e.AuthorName != "" &&
		e.Description != "" &&
		len(e.Fields) > 0 &&
		!m.HasButtons() &&
		!strings.Contains(e.Description, ownershipMarker)
}

func buildLookupResult(m *chat.Message) Event {
	e := m.FirstEmbed()

	result := LookupResult{
		Name:       e.AuthorName,
		Series:     firstLine(e.Description),
		ImageURL:   e.ImageURL,
		ExternalID: ExtractCharacterID(e.ImageURL),
		Found:      true,
	}
	result.KakeraValue, result.HasKakera = ExtractKakeraValue(e.FooterText)

	return result
}

// LookupFallback builds a lookup result from a message that matched no rule
// but still names a character in its embed. Info pages sometimes arrive
// without the usual fields; the author line is enough to answer a pending
// lookup.
func LookupFallback(m *chat.Message) (LookupResult, bool) {
	e := m.FirstEmbed()
	if e == nil || e.AuthorName == "" {
		return LookupResult{}, false
	}

	result := LookupResult{
		Name:       e.AuthorName,
		Series:     firstLine(e.Description),
		ImageURL:   e.ImageURL,
		ExternalID: ExtractCharacterID(e.ImageURL),
		Found:      true,
	}
	result.KakeraValue, result.HasKakera = ExtractKakeraValue(e.FooterText)

	return result, true
}

func isCharacterOffer(m *chat.Message) bool {
	e := m.FirstEmbed()
	return e != nil && e.AuthorName != "" && e.Description != ""
}

func buildCharacterOffer(m *chat.Message) Event {
	e := m.FirstEmbed()

	offer := CharacterOffer{
		Name:      e.AuthorName,
		Series:    firstLine(e.Description),
		ImageURL:  e.ImageURL,
		Claimed:   strings.Contains(e.Description, ownershipMarker),
		Wished:    containsWishGlyph(e.Description),
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
	}

	offer.KakeraValue, offer.HasKakera = ExtractKakeraValue(e.FooterText)
	offer.ClaimRank, offer.HasRank = extractClaimRank(e.Description)
	offer.HasClaimButton, offer.ClaimButtonID = findClaimButton(m)

	return offer
}

// findClaimButton returns the first button whose emoji name matches the claim
// heart set, or whose label carries a heart glyph or marry wording. A roll
// without any such button is valid; the claim then falls back to a reaction.
func findClaimButton(m *chat.Message) (bool, string) {
	var (
		found    bool
		customID string
	)

	m.EachButton(func(b *chat.Button) bool {
		if b.Emoji != nil && IsClaimEmoji(b.Emoji.Name) {
			found, customID = true, b.CustomID
			return true
		}

		if b.Label != "" &&
			(strings.Contains(b.Label, claimGlyph) ||
				strings.Contains(strings.ToLower(b.Label), marryLabelMarker)) {
			found, customID = true, b.CustomID
			return true
		}

		return false
	})

	return found, customID
}

func isKakeraLoot(m *chat.Message) bool {
	_, ok := findKakeraButton(m)
	return ok
}

func buildKakeraLoot(m *chat.Message) Event {
	loot := KakeraLoot{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Kind:      KakeraUnknown,
	}

	if e := m.FirstEmbed(); e != nil {
		loot.Kind = KakeraKindFromColor(e.Color, e.HasColor)
	}

	loot.ButtonID, _ = findKakeraButton(m)

	return loot
}

func findKakeraButton(m *chat.Message) (string, bool) {
	var (
		customID string
		found    bool
	)

	m.EachButton(func(b *chat.Button) bool {
		if b.Emoji != nil && strings.Contains(b.Emoji.Name, lootEmojiMarker) {
			customID, found = b.CustomID, true
			return true
		}

		return false
	})

	return customID, found
}

func isRollsStatus(m *chat.Message) bool {
	content := m.Content
	return strings.Contains(content, "rolls left") ||
		(strings.Contains(content, "roll") && strings.Contains(content, "reset")) ||
		strings.Contains(content, limitedMarker)
}

func buildRollsStatus(m *chat.Message) Event {
	content := m.Content

	// The roulette-limited form reports zero rolls and a minutes-only wait.
	if strings.Contains(content, limitedMarker) {
		status := RollsStatus{Remaining: 0}
		if minutes, ok := extractInt(limitedWaitPattern, content); ok {
			status.ResetIn = time.Duration(minutes) * time.Minute
			status.HasReset = true
		}

		return status
	}

	status := RollsStatus{}
	status.Remaining, _ = extractInt(rollsLeftPattern, content)

	if hours, ok := extractInt(resetHoursPattern, content); ok {
		status.ResetIn = time.Duration(hours) * time.Hour
		status.HasReset = true
	} else if minutes, ok := extractInt(resetMinutesPattern, content); ok {
		status.ResetIn = time.Duration(minutes) * time.Minute
		status.HasReset = true
	}

	return status
}

func isClaimStatus(m *chat.Message) bool {
	content := m.Content
	return strings.Contains(content, "claim") &&
		(strings.Contains(content, "available") || strings.Contains(content, "reset"))
}

func buildClaimStatus(m *chat.Message) Event {
	content := m.Content

	status := ClaimStatus{
		Available: strings.Contains(content, "can claim") ||
			strings.Contains(content, "claim available"),
	}

	if hours, ok := extractInt(resetHoursPattern, content); ok {
		status.ResetIn = time.Duration(hours) * time.Hour
		status.HasReset = true
	} else if minutes, ok := extractInt(resetMinutesPattern, content); ok {
		status.ResetIn = time.Duration(minutes) * time.Minute
		status.HasReset = true
	}

	return status
}

func isDailyReady(m *chat.Message) bool {
	return strings.Contains(m.Content, dailyMarker) && strings.Contains(m.Content, "ready")
}

func buildDailyReady(*chat.Message) Event {
	return DailyReady{}
}

// DisplaySummary renders a best-effort one-liner for an unrecognized message:
// embed author plus first description line when present, else truncated text.
func DisplaySummary(m *chat.Message) string {
	if e := m.FirstEmbed(); e != nil && e.AuthorName != "" {
		if series := firstLine(e.Description); series != "" {
			return e.AuthorName + " (" + series + ")"
		}

		return e.AuthorName
	}

	const maxLen = 50
	if len(m.Content) > maxLen {
		return m.Content[:maxLen-3] + "..."
	}

	return m.Content
}
