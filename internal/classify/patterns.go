package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// All heuristic patterns live here so classification rules stay independently
// testable. Order of evaluation is owned by classify.go; this file only
// defines what each pattern extracts.
var (
	// "250 <:kakera..." in an embed footer.
	kakeraValuePattern = regexp.MustCompile(`(\d+)\s*<:kakera`)

	// Emoji names that mark a claim button.
	claimEmojiPattern = regexp.MustCompile(`^(💖|❤️|💕|💗|💘|💝)$`)

	// "Claims: #404" inside a roll description.
	claimRankPattern = regexp.MustCompile(`Claims: #(\d+)`)

	// Budget phrasing: "2 rolls left", "roulette is limited", "17 min left".
	rollsLeftPattern   = regexp.MustCompile(`(\d+)\s*rolls?\s*left`)
	limitedWaitPattern = regexp.MustCompile(`(\d+)\s*min\s*left`)

	// Reset hints; the hour form takes priority over the minute form.
	resetHoursPattern   = regexp.MustCompile(`reset\s+(?:is\s+)?(?:in\s+)?(\d+)\s*(?:h|hour|hours|hr|hrs)`)
	resetMinutesPattern = regexp.MustCompile(`reset\s+(?:is\s+)?(?:in\s+)?(\d+)\s*(?:m|min|minute|minutes)`)

	// "/uploads/408012/..." in a character image URL.
	characterIDPattern = regexp.MustCompile(`/uploads/(\d+)/`)
)

const (
	ownershipMarker  = "Belongs to"
	lootEmojiMarker  = "kakera"
	limitedMarker    = "roulette is limited"
	dailyMarker      = "$daily"
	claimGlyph       = "💖"
	marryLabelMarker = "marry"
)

// wishGlyphs are the markers Mudae prepends to wished rolls.
var wishGlyphs = []string{"💖", "❤️"}

// ExtractKakeraValue parses the kakera amount from footer text. The second
// return is false when no marker is present.
func ExtractKakeraValue(text string) (int, bool) {
	return extractInt(kakeraValuePattern, text)
}

// IsClaimEmoji reports whether an emoji name counts as a claim heart.
func IsClaimEmoji(name string) bool {
	return claimEmojiPattern.MatchString(name)
}

// ExtractCharacterID pulls the game's numeric character id out of an image
// URL. Returns "" when the URL does not carry one.
func ExtractCharacterID(imageURL string) string {
	m := characterIDPattern.FindStringSubmatch(imageURL)
	if m == nil {
		return ""
	}

	return m[1]
}

func extractClaimRank(description string) (int, bool) {
	return extractInt(claimRankPattern, description)
}

func extractInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	return n, true
}

// firstLine returns the first line of a description, trimmed. Roll embeds put
// the series name there.
func firstLine(description string) string {
	line, _, _ := strings.Cut(description, "\n")
	return strings.TrimSpace(line)
}

func containsWishGlyph(description string) bool {
	for _, glyph := range wishGlyphs {
		if strings.Contains(description, glyph) {
			return true
		}
	}

	return false
}
