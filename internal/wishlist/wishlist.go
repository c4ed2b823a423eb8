// Package wishlist maintains the ordered set of wanted characters and decides
// whether a rolled character matches one of them.
package wishlist

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// ErrNotFound is returned when an operation names a character that is not on
// the wishlist.
var ErrNotFound = errors.New("wishlist: character not found")

// Entry is a single wanted character. Series is optional; an empty series
// matches any series when a roll is checked. ExternalID is the game's opaque
// character id, filled in by verification.
type Entry struct {
	Name        string    `json:"name"`
	Series      string    `json:"series,omitempty"`
	Priority    int       `json:"priority,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Verified    bool      `json:"verified,omitempty"`
	KakeraValue int       `json:"kakeraValue,omitempty"`
	ExternalID  string    `json:"externalId,omitempty"`
	AddedAt     time.Time `json:"addedAt"`
}

// Options tune how the wishlist matches and lists entries.
type Options struct {
	// FuzzyEnabled allows near matches; exact normalized equality otherwise.
	FuzzyEnabled bool
	// FuzzyThreshold is the minimum similarity for a fuzzy match.
	FuzzyThreshold float64
	// PriorityVerified lists verified entries ahead of unverified ones.
	PriorityVerified bool
}

// DefaultOptions returns the stock matching configuration.
func DefaultOptions() Options {
	return Options{
		FuzzyEnabled:     true,
		FuzzyThreshold:   MatchThreshold,
		PriorityVerified: true,
	}
}

// Persister stores the wishlist between sessions. Save receives the full list
// in order; Load returns it in the same order.
type Persister interface {
	SaveWishlist(entries []Entry) error
	LoadWishlist() ([]Entry, error)
}

// Store is the in-memory wishlist, kept in insertion order and written through
// to its Persister on every mutation. All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	opts    Options
	persist Persister
	logger  *zap.Logger
}

// NewStore loads the persisted wishlist into memory. A missing or empty
// persisted list is not an error.
func NewStore(persist Persister, opts Options, logger *zap.Logger) (*Store, error) {
	entries, err := persist.LoadWishlist()
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}

	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = MatchThreshold
	}

	return &Store{
		entries: entries,
		opts:    opts,
		persist: persist,
		logger:  logger.Named("wishlist"),
	}, nil
}

// Add appends a character unless an equivalent name is already present.
// Returns false when the character was already listed.
func (s *Store) Add(name, series string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeName(name)
	for _, e := range s.entries {
		if normalizeName(e.Name) == normalized {
			return false, nil
		}
	}

	s.entries = append(s.entries, Entry{
		Name:    name,
		Series:  series,
		AddedAt: time.Now(),
	})

	if err := s.persist.SaveWishlist(s.entries); err != nil {
		return false, fmt.Errorf("failed to save wishlist: %w", err)
	}

	s.logger.Info("Added character to wishlist",
		zap.String("name", name),
		zap.String("series", series))

	return true, nil
}

// Remove deletes the entry whose name matches exactly after normalization.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeName(name)
	for i, e := range s.entries {
		if normalizeName(e.Name) != normalized {
			continue
		}

		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		if err := s.persist.SaveWishlist(s.entries); err != nil {
			return fmt.Errorf("failed to save wishlist: %w", err)
		}

		s.logger.Info("Removed character from wishlist", zap.String("name", e.Name))

		return nil
	}

	return ErrNotFound
}

// Clear drops every entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	if err := s.persist.SaveWishlist(nil); err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}

	s.logger.Info("Cleared wishlist")

	return nil
}

// Match checks a rolled character against the wishlist. Entries are checked in
// insertion order and the first fuzzy name match wins. An entry without a
// series matches any series; an entry with one requires the series to match
// too.
func (s *Store) Match(name, series string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	normalizedName := normalizeName(name)
	normalizedSeries := normalizeName(series)

	for _, e := range s.entries {
		if !s.namesMatch(normalizeName(e.Name), normalizedName) {
			continue
		}

		if e.Series != "" && !s.namesMatch(normalizeName(e.Series), normalizedSeries) {
			continue
		}

		return e, true
	}

	return Entry{}, false
}

// Update applies fn to the entry matching name and persists the result.
func (s *Store) Update(name string, fn func(*Entry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeName(name)
	for i := range s.entries {
		if normalizeName(s.entries[i].Name) != normalized {
			continue
		}

		fn(&s.entries[i])
		if err := s.persist.SaveWishlist(s.entries); err != nil {
			return fmt.Errorf("failed to save wishlist: %w", err)
		}

		return nil
	}

	return ErrNotFound
}

// SetPriority records a relative priority for an entry. Priority is advisory
// and does not change match order.
func (s *Store) SetPriority(name string, priority int) error {
	return s.Update(name, func(e *Entry) { e.Priority = priority })
}

// SetNotes attaches free-form notes to an entry.
func (s *Store) SetNotes(name, notes string) error {
	return s.Update(name, func(e *Entry) { e.Notes = notes })
}

// MarkVerified records that a lookup confirmed the entry matching name. The
// stored name is rewritten to the canonical one so later matches use the
// game's spelling; the series is only filled in when the user left it empty.
func (s *Store) MarkVerified(name, canonicalName, series string, kakeraValue int, externalID string) error {
	return s.Update(name, func(e *Entry) {
		e.Verified = true
		e.KakeraValue = kakeraValue

		if canonicalName != "" {
			e.Name = canonicalName
		}

		if e.Series == "" {
			e.Series = series
		}

		if externalID != "" {
			e.ExternalID = externalID
		}
	})
}

// Search returns entries whose name or series contains the query after
// normalization, in insertion order.
func (s *Store) Search(query string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	normalized := normalizeName(query)
	if normalized == "" {
		return nil
	}

	var out []Entry

	for _, e := range s.entries {
		if strings.Contains(normalizeName(e.Name), normalized) ||
			strings.Contains(normalizeName(e.Series), normalized) {
			out = append(out, e)
		}
	}

	return out
}

// Unverified returns the entries not yet confirmed by a lookup.
func (s *Store) Unverified() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry

	for _, e := range s.entries {
		if !e.Verified {
			out = append(out, e)
		}
	}

	return out
}

// Entries returns a copy of the wishlist in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)

	return out
}

// SortedEntries returns the wishlist for display: verified entries first when
// so configured, then by descending priority. Ties keep insertion order.
func (s *Store) SortedEntries() []Entry {
	entries := s.Entries()

	sort.SliceStable(entries, func(i, j int) bool {
		if s.opts.PriorityVerified && entries[i].Verified != entries[j].Verified {
			return entries[i].Verified
		}

		return entries[i].Priority > entries[j].Priority
	})

	return entries
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Export serializes the wishlist to JSON, preserving order.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := sonic.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wishlist: %w", err)
	}

	return data, nil
}

// Import replaces the wishlist with entries decoded from JSON.
func (s *Store) Import(data []byte) error {
	var entries []Entry
	if err := sonic.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to unmarshal wishlist: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = entries
	if err := s.persist.SaveWishlist(s.entries); err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}

	s.logger.Info("Imported wishlist", zap.Int("entries", len(entries)))

	return nil
}
