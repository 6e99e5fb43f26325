package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lifedeck/sso-hub/internal/model"
)

// Store is the hub's process-local session cache: one record per subject,
// fixed TTL, last-write-wins. Safe for concurrent handlers and the
// background sweeper. Nothing here is durable; a restart loses all
// records and sessions rebuild from cookies on the next request.
type Store struct {
	mu      sync.RWMutex
	records map[string]*model.SessionRecord
	seq     uint64

	ttl           time.Duration
	sweepInterval time.Duration
	done          chan struct{}
	stopOnce      sync.Once

	// now is swapped in tests to control expiry.
	now func() time.Time
}

func New(ttl, sweepInterval time.Duration) *Store {
	return &Store{
		records:       make(map[string]*model.SessionRecord),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
		now:           time.Now,
	}
}

// Put inserts or replaces the record for the envelope's subject.
// Returns false without storing anything when the envelope is invalid.
func (s *Store) Put(env *model.SessionEnvelope) bool {
	if !env.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.seq++
	s.records[env.UID] = &model.SessionRecord{
		UID:       env.UID,
		Envelope:  *env,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Seq:       s.seq,
	}
	return true
}

// Latest returns the most recently stored live envelope, evicting any
// expired records it scans past. Equal CreatedAt resolves to the record
// inserted later.
func (s *Store) Latest() (*model.SessionEnvelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var best *model.SessionRecord
	for uid, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, uid)
			continue
		}
		if best == nil ||
			rec.CreatedAt.After(best.CreatedAt) ||
			(rec.CreatedAt.Equal(best.CreatedAt) && rec.Seq > best.Seq) {
			best = rec
		}
	}
	if best == nil {
		return nil, false
	}
	env := best.Envelope
	return &env, true
}

// GetBySubject looks up the live envelope for a subject, evicting the
// record if it has expired. Absence is a normal outcome, not an error.
func (s *Store) GetBySubject(uid string) (*model.SessionEnvelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[uid]
	if !ok {
		return nil, false
	}
	if rec.Expired(s.now()) {
		delete(s.records, uid)
		return nil, false
	}
	env := rec.Envelope
	return &env, true
}

// Remove deletes the record for a subject. Returns whether a record
// was actually deleted, so callers can report idempotent logouts.
func (s *Store) Remove(uid string) bool {
	if uid == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[uid]; !ok {
		return false
	}
	delete(s.records, uid)
	return true
}

// RemoveEnvelope deletes by the envelope's subject identifier.
func (s *Store) RemoveEnvelope(env *model.SessionEnvelope) bool {
	if !env.Valid() {
		return false
	}
	return s.Remove(env.UID)
}

// Clear empties the store. Test and operational use only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*model.SessionRecord)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// DeleteExpired removes every expired record and reports how many went.
// Reads evict lazily, so a store that is never read would otherwise hold
// dead entries indefinitely; the sweeper bounds that leak.
func (s *Store) DeleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for uid, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, uid)
			count++
		}
	}
	return count
}

// Start launches the background sweeper.
func (s *Store) Start() {
	go s.run()
	log.Info().Dur("interval", s.sweepInterval).Msg("session sweeper started")
}

// Stop terminates the sweeper. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		log.Info().Msg("session sweeper stopped")
	})
}

func (s *Store) run() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	if count := s.DeleteExpired(); count > 0 {
		log.Info().Int("count", count).Msg("swept expired sessions")
	}
}
