package logstore

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one user-visible log line. Displayed flips once the presentation
// poll loop has consumed the entry.
type Entry struct {
	Time      time.Time `json:"time"`
	Message   string    `json:"message"`
	Displayed bool      `json:"displayed"`
}

// Store accumulates entries for the UI. Writers are the tick path and the
// reconciliation workers, the reader is a poll loop, so everything is under
// one mutex.
type Store struct {
	mu      sync.Mutex
	entries []Entry
}

func New() *Store {
	return &Store{}
}

func (s *Store) Addf(format string, args ...any) {
	s.mu.Lock()
	s.entries = append(s.entries, Entry{
		Time:    time.Now(),
		Message: fmt.Sprintf(format, args...),
	})
	s.mu.Unlock()
}

// Consume returns the entries not yet shown and marks them displayed.
func (s *Store) Consume() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for i := range s.entries {
		if s.entries[i].Displayed {
			continue
		}
		s.entries[i].Displayed = true
		out = append(out, s.entries[i])
	}
	return out
}

// Snapshot returns a copy of all entries without touching the displayed flag.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
