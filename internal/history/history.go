package history

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kayz/promptdeck/internal/logger"
)

// EmptySentinel is returned by Formatted when there is nothing to show.
const EmptySentinel = "There's no history yet, the dialogue just begined"

// DefaultMaxRounds applies when no session state has been saved.
const DefaultMaxRounds = 5

// Entry is one input/output exchange.
type Entry struct {
	Round     int       `json:"round"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the persisted form of a session.
type State struct {
	Entries           []Entry `json:"short_history"`
	CurrentRound      int     `json:"current_round"`
	MaxRounds         int     `json:"max_rounds"`
	MultiRoundEnabled bool    `json:"multi_round_enabled"`
}

// Saver persists session state. Implementations log their own failures.
type Saver interface {
	SaveSessionState(State)
}

// Store is the bounded round history of a multi-round session.
type Store struct {
	mu        sync.Mutex
	entries   []Entry
	current   int
	maxRounds int
	enabled   bool

	saver     Saver
	observers []func()
	now       func() time.Time
}

// NewStore creates a disabled store. saver may be nil.
func NewStore(saver Saver) *Store {
	return &Store{
		maxRounds: DefaultMaxRounds,
		saver:     saver,
		now:       time.Now,
	}
}

// OnChange registers a callback run after every mutation, outside the lock.
func (s *Store) OnChange(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Restore loads previously saved state without notifying observers.
func (s *Store) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = st.MultiRoundEnabled
	s.maxRounds = st.MaxRounds
	if s.maxRounds <= 0 {
		s.maxRounds = DefaultMaxRounds
	}
	s.entries = append([]Entry(nil), st.Entries...)
	s.current = st.CurrentRound
	if s.current != len(s.entries) {
		logger.Warn("[History] Saved round %d does not match %d entries, using entry count", s.current, len(s.entries))
		s.current = len(s.entries)
	}
}

// State returns a copy of the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	return State{
		Entries:           append([]Entry(nil), s.entries...),
		CurrentRound:      s.current,
		MaxRounds:         s.maxRounds,
		MultiRoundEnabled: s.enabled,
	}
}

func (s *Store) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Store) CurrentRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) MaxRounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxRounds
}

// Indicator renders the "ROUND n/max" badge text.
func (s *Store) Indicator() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("ROUND %d/%d", s.current, s.maxRounds)
}

// Append records a round. It is a no-op while multi-round is disabled.
// Observers see the full history before the quota-triggered reset runs.
func (s *Store) Append(input, output string) {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		logger.Debug("[History] Multi-round not enabled, skipping dialogue")
		return
	}
	entry := Entry{
		Round:     s.current + 1,
		Input:     strings.TrimSpace(input),
		Output:    strings.TrimSpace(output),
		Timestamp: s.now(),
	}
	s.entries = append(s.entries, entry)
	s.current++
	full := s.current >= s.maxRounds
	logger.Debug("[History] Added round %d/%d", s.current, s.maxRounds)
	if !full {
		s.saveLocked()
	}
	s.mu.Unlock()

	s.notify()

	if full {
		logger.Info("[History] Max rounds reached, resetting")
		s.Reset()
	}
}

// Reset discards every entry. Enabled flag and max rounds are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	s.entries = nil
	s.current = 0
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
}

// Enable turns multi-round on with the given quota and starts a new session.
func (s *Store) Enable(maxRounds int) {
	s.mu.Lock()
	s.enabled = true
	if maxRounds > 0 {
		s.maxRounds = maxRounds
	}
	s.mu.Unlock()
	logger.Info("[History] Multi-round enabled, rounds: %d", maxRounds)

	s.Reset()
}

// Disable turns multi-round off and clears the history.
func (s *Store) Disable() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
	logger.Info("[History] Multi-round disabled")

	s.Reset()
}

// SetMaxRounds changes the quota without touching current progress.
func (s *Store) SetMaxRounds(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.maxRounds = n
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
}

// Entries returns the rounds ordered by round index.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedEntries(s.entries)
}

// Formatted renders the history for the {{short_history}} placeholder.
func (s *Store) Formatted() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || len(s.entries) == 0 {
		return EmptySentinel
	}
	return Format(sortedEntries(s.entries))
}

// Format renders entries as ROUND blocks separated by blank lines.
func Format(entries []Entry) string {
	var out strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&out, "ROUND %d:\n", e.Round)
		fmt.Fprintf(&out, "Input: %s\n", e.Input)
		fmt.Fprintf(&out, "Output: %s\n\n", e.Output)
	}
	return strings.TrimRight(out.String(), " \t\r\n")
}

func sortedEntries(in []Entry) []Entry {
	out := append([]Entry(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Round < out[j].Round
	})
	return out
}

func (s *Store) saveLocked() {
	if s.saver == nil {
		return
	}
	s.saver.SaveSessionState(s.stateLocked())
}

func (s *Store) notify() {
	s.mu.Lock()
	obs := append([]func(){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range obs {
		fn()
	}
}
