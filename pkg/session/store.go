// Package session tracks anonymization sessions: UUID-keyed, tenant-owned
// entity maps with activity-based expiry.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/privata-ai/privata-oss/pkg/anonymize"
	"github.com/privata-ai/privata-oss/pkg/detect"
)

var (
	// ErrNotFound is returned for unknown or expired session IDs.
	ErrNotFound = errors.New("session: not found")
	// ErrAccessDenied is returned when a tenant addresses a session it does
	// not own.
	ErrAccessDenied = errors.New("session: access denied")
)

// Config controls store behavior.
type Config struct {
	// TTL is the idle lifetime of a session. Zero selects the default.
	TTL time.Duration
}

const defaultTTL = 30 * time.Minute

// Session is the stored state for one anonymization conversation. Fields are
// snapshots; the live entity map stays inside the store.
type Session struct {
	ID           string
	TenantID     string
	CreatedAt    time.Time
	LastActivity time.Time
}

type record struct {
	session  Session
	entities *anonymize.EntityMap
}

// Store is an in-memory session table. All entity map access goes through the
// store so the unsynchronized map never escapes the lock.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	logger   zerolog.Logger
	sessions map[string]*record
}

// NewStore returns an empty store.
func NewStore(cfg Config, logger zerolog.Logger) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*record),
	}
}

// Create opens a session owned by tenantID and returns its snapshot.
func (s *Store) Create(tenantID string) (Session, error) {
	if tenantID == "" {
		return Session{}, errors.New("session: tenant id cannot be empty")
	}

	now := time.Now()
	sess := Session{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &record{session: sess, entities: anonymize.NewEntityMap()}
	s.mu.Unlock()

	s.logger.Info().
		Str("session_id", sess.ID).
		Str("tenant_id", tenantID).
		Msg("session created")
	return sess, nil
}

// Get returns the session snapshot after verifying ownership and refreshes
// its activity timestamp.
func (s *Store) Get(sessionID, tenantID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(sessionID, tenantID)
	if err != nil {
		return Session{}, err
	}
	rec.session.LastActivity = time.Now()
	return rec.session, nil
}

// ExtendEntities registers new findings into the session's entity map,
// continuing its placeholder counters.
func (s *Store) ExtendEntities(sessionID, tenantID string, findings []detect.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(sessionID, tenantID)
	if err != nil {
		return err
	}
	rec.entities.Extend(findings)
	rec.session.LastActivity = time.Now()
	return nil
}

// SnapshotEntities returns a detached copy of the session's placeholder table.
func (s *Store) SnapshotEntities(sessionID, tenantID string) (map[string]anonymize.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(sessionID, tenantID)
	if err != nil {
		return nil, err
	}
	rec.session.LastActivity = time.Now()
	return rec.entities.Snapshot(), nil
}

// Close removes a session.
func (s *Store) Close(sessionID, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(sessionID, tenantID)
	if err != nil {
		return err
	}
	delete(s.sessions, sessionID)
	s.logger.Info().
		Str("session_id", sessionID).
		Str("tenant_id", rec.session.TenantID).
		Msg("session closed")
	return nil
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle longer than the TTL and reports how many were
// removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, rec := range s.sessions {
		if now.Sub(rec.session.LastActivity) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info().Int("expired", removed).Msg("session sweep")
	}
	return removed
}

// StartSweeper runs Sweep on a ticker until stop closes.
func (s *Store) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// lookup must be called with the lock held.
func (s *Store) lookup(sessionID, tenantID string) (*record, error) {
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.session.TenantID != tenantID {
		s.logger.Warn().
			Str("session_id", sessionID).
			Str("requesting_tenant", tenantID).
			Msg("session access denied")
		return nil, ErrAccessDenied
	}
	return rec, nil
}
