package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vectorize/internal/infra"
	"vectorize/internal/styles"
)

// Store keeps sessions in memory. Nothing is persisted; idle sessions are
// evicted after the TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*State

	ttl          time.Duration
	maxSessions  int
	defaultStyle styles.Preset
	now          func() time.Time
	logger       *infra.Logger
}

// NewStore creates an empty store holding at most maxSessions sessions; zero
// means no limit. New sessions start on defaultStyle.
func NewStore(ttl time.Duration, maxSessions int, defaultStyle styles.Preset, logger *infra.Logger) *Store {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Store{
		sessions:     make(map[string]*State),
		ttl:          ttl,
		maxSessions:  maxSessions,
		defaultStyle: defaultStyle,
		now:          time.Now,
		logger:       logger,
	}
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	st.mu.Lock()
	st.lastSeen = s.now()
	st.mu.Unlock()
	return st, true
}

// Create registers a new session with a random id. A full store first drops
// the least recently used idle session and fails with ErrCapacity when every
// session has a request in flight.
func (s *Store) Create() (*State, error) {
	now := s.now()
	st := newState(uuid.NewString(), s.defaultStyle, now)

	s.mu.Lock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		if !s.evictOldestLocked() {
			s.mu.Unlock()
			return nil, ErrCapacity
		}
	}
	s.sessions[st.id] = st
	s.mu.Unlock()

	s.logger.Debug().Str("session_id", st.id).Msg("session created")
	return st, nil
}

func (s *Store) evictOldestLocked() bool {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, st := range s.sessions {
		st.mu.Lock()
		busy, seen := st.inFlight, st.lastSeen
		st.mu.Unlock()
		if busy {
			continue
		}
		if oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	if oldestID == "" {
		return false
	}
	delete(s.sessions, oldestID)
	s.logger.Debug().Str("session_id", oldestID).Msg("session evicted for capacity")
	return true
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// unknown or expired.
func (s *Store) GetOrCreate(id string) (*State, bool, error) {
	if id != "" {
		if st, ok := s.Get(id); ok {
			return st, false, nil
		}
	}
	st, err := s.Create()
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the TTL. Sessions with a request
// in flight are kept.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, st := range s.sessions {
		st.mu.Lock()
		expired := !st.inFlight && st.lastSeen.Before(cutoff)
		st.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on every tick until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info().Int("evicted", n).Int("remaining", s.Len()).Msg("expired sessions evicted")
			}
		}
	}
}
