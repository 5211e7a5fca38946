// Package memory holds the per-session conversation windows of the query service.
package memory

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"

	"tourism-rag/internal/models"
)

type Store struct {
	size     int
	sessions *xsync.MapOf[string, *Window]
}

func NewStore(size int) *Store {
	if size <= 0 {
		size = models.MemoryWindow
	}
	return &Store{size: size, sessions: xsync.NewMapOf[string, *Window]()}
}

// SessionKey maps an empty id to the default session.
func SessionKey(sessionID string) string {
	if sessionID == "" {
		return models.DefaultSessionID
	}
	return sessionID
}

// Get returns the window of sessionID, creating it on first use, and marks it used.
// Runs atomically with Prune for the same key.
func (s *Store) Get(sessionID string) *Window {
	w, _ := s.sessions.Compute(SessionKey(sessionID), func(old *Window, loaded bool) (*Window, bool) {
		if !loaded {
			old = NewWindow(s.size)
		}
		old.touch()
		return old, false
	})
	return w
}

func (s *Store) Len() int { return s.sessions.Size() }

// Prune drops sessions idle for longer than ttl and returns how many were removed.
func (s *Store) Prune(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	removed := 0
	s.sessions.Range(func(id string, _ *Window) bool {
		s.sessions.Compute(id, func(w *Window, loaded bool) (*Window, bool) {
			if !loaded {
				return w, true
			}
			if w.idleSince(cutoff) {
				removed++
				return w, true
			}
			return w, false
		})
		return true
	})
	return removed
}

// RunPruner prunes every interval until ctx is done.
func (s *Store) RunPruner(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(ttl); n > 0 {
				log.Debug().Int("sessions", n).Msg("Pruned idle sessions")
			}
		}
	}
}
