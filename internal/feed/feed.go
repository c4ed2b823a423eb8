// Package feed keeps session activity in memory: lifetime counters, a bounded
// activity log, recent rolls, and the raw channel feed.
package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/solvant/claimant/internal/store"
)

const (
	maxLogEntries      = 100
	maxRollHistory     = 50
	maxChannelActivity = 50
)

// Level categorizes an activity log entry.
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
	Roll
	Claim
	Kakera
	Wishlist
)

var levelNames = map[Level]string{
	Info:     "info",
	Success:  "success",
	Warning:  "warning",
	Error:    "error",
	Roll:     "roll",
	Claim:    "claim",
	Kakera:   "kakera",
	Wishlist: "wishlist",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}

	return "info"
}

// Entry is one activity log line.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// RollRecord is one observed roll.
type RollRecord struct {
	Time        time.Time
	Name        string
	Series      string
	KakeraValue int
	HasKakera   bool
	Claimed     bool
	Wished      bool
}

// ChannelNote is one raw line of watched-channel traffic.
type ChannelNote struct {
	Time     time.Time
	Username string
	Text     string
}

// Recorder accumulates session activity. Counters are atomic; the bounded
// histories take the mutex.
type Recorder struct {
	start time.Time

	rolled          atomic.Uint64
	claimed         atomic.Uint64
	wishlistMatches atomic.Uint64
	kakera          atomic.Uint64
	rollsExecuted   atomic.Uint64

	priorUptime uint64

	mu       sync.RWMutex
	log      []Entry
	rolls    []RollRecord
	channel  []ChannelNote
	username string
	userID   uint64
}

// New creates a recorder seeded from persisted totals so lifetime counters
// carry across sessions.
func New(totals store.Totals) *Recorder {
	r := &Recorder{
		start:       time.Now(),
		priorUptime: totals.UptimeSeconds,
	}
	r.rolled.Store(totals.Rolled)
	r.claimed.Store(totals.Claimed)
	r.wishlistMatches.Store(totals.WishlistMatches)
	r.kakera.Store(totals.Kakera)
	r.rollsExecuted.Store(totals.RollsExecuted)

	return r
}

// Totals snapshots the counters for persistence, folding the current session
// uptime into the lifetime total.
func (r *Recorder) Totals() store.Totals {
	return store.Totals{
		Rolled:          r.rolled.Load(),
		Claimed:         r.claimed.Load(),
		WishlistMatches: r.wishlistMatches.Load(),
		Kakera:          r.kakera.Load(),
		RollsExecuted:   r.rollsExecuted.Load(),
		UptimeSeconds:   r.priorUptime + uint64(max(time.Since(r.start), 0)/time.Second),
	}
}

func (r *Recorder) CountRolled()        { r.rolled.Add(1) }
func (r *Recorder) CountClaimed()       { r.claimed.Add(1) }
func (r *Recorder) CountWishlistMatch() { r.wishlistMatches.Add(1) }
func (r *Recorder) CountRollExecuted()  { r.rollsExecuted.Add(1) }

// CountKakera adds a collected kakera amount. Drops with no readable value
// count as one.
func (r *Recorder) CountKakera(amount int) {
	if amount <= 0 {
		amount = 1
	}

	r.kakera.Add(uint64(amount))
}

// Log appends an entry, evicting the oldest past the cap.
func (r *Recorder) Log(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = appendBounded(r.log, Entry{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	}, maxLogEntries)
}

// AddRoll appends a roll to the recent-roll history.
func (r *Recorder) AddRoll(record RollRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.Time.IsZero() {
		record.Time = time.Now()
	}

	r.rolls = appendBounded(r.rolls, record, maxRollHistory)
}

// AddChannelNote appends a line to the raw channel feed.
func (r *Recorder) AddChannelNote(username, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.channel = appendBounded(r.channel, ChannelNote{
		Time:     time.Now(),
		Username: username,
		Text:     text,
	}, maxChannelActivity)
}

// ActivityLog returns a copy of the activity log, oldest first.
func (r *Recorder) ActivityLog() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Entry(nil), r.log...)
}

// RollHistory returns a copy of the recent rolls, oldest first.
func (r *Recorder) RollHistory() []RollRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]RollRecord(nil), r.rolls...)
}

// ChannelFeed returns a copy of the raw channel feed, oldest first.
func (r *Recorder) ChannelFeed() []ChannelNote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]ChannelNote(nil), r.channel...)
}

// SetIdentity records the logged-in account once the gateway reports it.
func (r *Recorder) SetIdentity(userID uint64, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userID = userID
	r.username = username
}

// Identity returns the logged-in account, if known yet.
func (r *Recorder) Identity() (uint64, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.userID, r.username
}

// Uptime is the elapsed session time.
func (r *Recorder) Uptime() time.Duration {
	return time.Since(r.start)
}

func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}

	return s
}
