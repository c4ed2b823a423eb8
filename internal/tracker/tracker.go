// Package tracker holds the mutable pacing state shared by the engine and the
// scheduler: per-command cooldowns, the remaining roll budget, claim
// availability, and the pause switch.
package tracker

import (
	"sync"
	"time"
)

// Tracker is safe for concurrent use. The clock is injectable so cooldown
// logic can be tested without sleeping.
type Tracker struct {
	mu sync.RWMutex

	cooldown time.Duration
	lastUsed map[string]time.Time

	rollsRemaining int
	rollReset      time.Time
	hasRollReset   bool

	claimAvailable bool
	claimReset     time.Time
	hasClaimReset  bool

	lastDaily time.Time
	ranDaily  bool

	paused bool

	now func() time.Time
}

// New creates a tracker with every command immediately available, the claim
// assumed available, and an unknown roll budget.
func New(cooldown time.Duration) *Tracker {
	return &Tracker{
		cooldown:       cooldown,
		lastUsed:       make(map[string]time.Time),
		claimAvailable: true,
		now:            time.Now,
	}
}

// AvailableCommands filters commands down to those off cooldown, preserving
// order. A command that was never used is always available.
func (t *Tracker) AvailableCommands(commands []string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()

	var available []string

	for _, cmd := range commands {
		last, used := t.lastUsed[cmd]
		if !used || now.Sub(last) >= t.cooldown {
			available = append(available, cmd)
		}
	}

	return available
}

// MarkUsed starts the cooldown for cmd.
func (t *Tracker) MarkUsed(cmd string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastUsed[cmd] = t.now()
}

// TimeUntilNextAvailable returns how long until at least one of commands comes
// off cooldown. Zero means one is available right now. The second return is
// false when commands is empty.
func (t *Tracker) TimeUntilNextAvailable(commands []string) (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(commands) == 0 {
		return 0, false
	}

	now := t.now()

	minWait := time.Duration(-1)

	for _, cmd := range commands {
		last, used := t.lastUsed[cmd]
		if !used {
			return 0, true
		}

		remaining := t.cooldown - now.Sub(last)
		if remaining <= 0 {
			return 0, true
		}

		if minWait < 0 || remaining < minWait {
			minWait = remaining
		}
	}

	return minWait, true
}

// SetRolls records the budget reported by a roll status message.
func (t *Tracker) SetRolls(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollsRemaining = n
}

// RollsRemaining returns the last known roll budget.
func (t *Tracker) RollsRemaining() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.rollsRemaining
}

// DecrementRolls consumes one roll from the budget. Already-zero budgets stay
// at zero; the authoritative count arrives with the next status message.
func (t *Tracker) DecrementRolls() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rollsRemaining > 0 {
		t.rollsRemaining--
	}
}

// SetRollReset records that the roll budget resets after d.
func (t *Tracker) SetRollReset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollReset = t.now().Add(d)
	t.hasRollReset = true
}

// TimeUntilRollReset returns the remaining wait before the roll budget resets.
// The second return is false when no reset hint has been seen.
func (t *Tracker) TimeUntilRollReset() (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.hasRollReset {
		return 0, false
	}

	remaining := t.rollReset.Sub(t.now())
	if remaining < 0 {
		remaining = 0
	}

	return remaining, true
}

// SetClaimAvailable records whether the claim affordance is currently open.
func (t *Tracker) SetClaimAvailable(available bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.claimAvailable = available
}

// ClaimAvailable reports the last known claim availability.
func (t *Tracker) ClaimAvailable() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.claimAvailable
}

// SetClaimReset records that the claim affordance reopens after d.
func (t *Tracker) SetClaimReset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.claimReset = t.now().Add(d)
	t.hasClaimReset = true
}

// TimeUntilClaimReset returns the remaining wait before the claim reopens.
func (t *Tracker) TimeUntilClaimReset() (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.hasClaimReset {
		return 0, false
	}

	remaining := t.claimReset.Sub(t.now())
	if remaining < 0 {
		remaining = 0
	}

	return remaining, true
}

// ShouldRunDaily reports whether the daily pair is due: never run before, or
// last run on a previous day with the local clock past scheduleTime.
func (t *Tracker) ShouldRunDaily(scheduleTime time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.ranDaily {
		return true
	}

	now := t.now()

	lastY, lastM, lastD := t.lastDaily.Date()
	nowY, nowM, nowD := now.Date()
	if lastY == nowY && lastM == nowM && lastD == nowD {
		return false
	}

	nowClock := now.Hour()*60 + now.Minute()
	scheduleClock := scheduleTime.Hour()*60 + scheduleTime.Minute()

	return nowClock >= scheduleClock
}

// MarkDailyRun records that the daily pair executed.
func (t *Tracker) MarkDailyRun() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastDaily = t.now()
	t.ranDaily = true
}

// Pause stops all outbound automation until Resume.
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.paused = true
}

// Resume re-enables automation.
func (t *Tracker) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.paused = false
}

// Paused reports whether automation is suspended.
func (t *Tracker) Paused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.paused
}
