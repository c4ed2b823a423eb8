package classify

import (
	"time"

	"github.com/solvant/claimant/internal/chat"
)

// Event is the closed set of semantic message kinds the engine consumes.
// Exactly one Event is produced per message; unmapped shapes classify as
// Unrecognized rather than failing.
type Event interface {
	event()
}

// CharacterOffer is a rolled character that may be claimable.
type CharacterOffer struct {
	Name        string
	Series      string
	KakeraValue int
	HasKakera   bool
	ImageURL    string
	Claimed     bool
	ClaimRank   int
	HasRank     bool
	Wished      bool

	MessageID      uint64
	ChannelID      uint64
	GuildID        uint64
	HasClaimButton bool
	ClaimButtonID  string
}

// KakeraLoot is a collectible kakera drop, color-coded by kind.
type KakeraLoot struct {
	MessageID uint64
	ChannelID uint64
	GuildID   uint64
	Kind      KakeraKind
	ButtonID  string
}

// LookupResult is the response to a character lookup command. ExternalID is
// the game's character id when the image URL carries one.
type LookupResult struct {
	Name        string
	Series      string
	ImageURL    string
	KakeraValue int
	HasKakera   bool
	ExternalID  string
	Found       bool
}

// RollsStatus reports the remaining roll budget, with an optional reset hint
// parsed from free text.
type RollsStatus struct {
	Remaining int
	ResetIn   time.Duration
	HasReset  bool
}

// ClaimStatus reports whether the global claim affordance is available, with
// an optional reset hint parsed from free text.
type ClaimStatus struct {
	Available bool
	ResetIn   time.Duration
	HasReset  bool
}

// DailyReady signals that the recurring daily commands became available.
type DailyReady struct{}

// Unrecognized retains the raw message for best-effort display.
type Unrecognized struct {
	Message chat.Message
}

func (CharacterOffer) event() {}
func (KakeraLoot) event()     {}
func (LookupResult) event()   {}
func (RollsStatus) event()    {}
func (ClaimStatus) event()    {}
func (DailyReady) event()     {}
func (Unrecognized) event()   {}
