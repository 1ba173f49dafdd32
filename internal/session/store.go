package session

import (
	"hash/fnv"
	"sync"
	"time"
)

// shardCount spreads sessions across independently locked maps
const shardCount = 16

// evictionFactor: a session this many idle windows old is removed
// outright instead of lingering as AWAITING_GOODBYE
const evictionFactor = 10

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// Store is the in-memory session map. Besides get/put it hands out a
// per-user mutex so concurrent webhook handlers for the same user are
// serialized (last write wins, no lost updates).
type Store struct {
	shards [shardCount]*shard
	idle   time.Duration

	userMu sync.Mutex
	users  map[string]*sync.Mutex
}

// NewStore builds a store whose sessions expire after idle
func NewStore(idle time.Duration) *Store {
	s := &Store{
		idle:  idle,
		users: make(map[string]*sync.Mutex),
	}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return s
}

func (s *Store) shardFor(waID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(waID))
	return s.shards[h.Sum32()%shardCount]
}

// LockUser acquires the per-user mutex and returns its unlock func.
// Every handler touching a user's session runs under this lock.
func (s *Store) LockUser(waID string) func() {
	s.userMu.Lock()
	mu, ok := s.users[waID]
	if !ok {
		mu = &sync.Mutex{}
		s.users[waID] = mu
	}
	s.userMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// GetOrCreate returns the live session for waID, or a fresh one when
// none exists or the previous one sat idle past the reset window.
// created reports whether a new session was started.
func (s *Store) GetOrCreate(waID, language string, now time.Time) (sess *Session, created bool) {
	sh := s.shardFor(waID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if existing, ok := sh.sessions[waID]; ok && existing.IdleFor(now) < s.idle {
		existing.Touch(now)
		return existing, false
	}

	sess = newSession(waID, language, now)
	sh.sessions[waID] = sess
	return sess, true
}

// Get returns the live session without creating or touching one
func (s *Store) Get(waID string, now time.Time) (*Session, bool) {
	sh := s.shardFor(waID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.sessions[waID]
	if !ok || sess.IdleFor(now) >= s.idle {
		return nil, false
	}
	return sess, true
}

// Delete drops a session outright
func (s *Store) Delete(waID string) {
	sh := s.shardFor(waID)
	sh.mu.Lock()
	delete(sh.sessions, waID)
	sh.mu.Unlock()
}

// Len counts live and awaiting-goodbye sessions
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep walks a snapshot of all sessions and returns the ones that just
// crossed the idle threshold, marking each so the farewell fires only
// once. Long-dead sessions are evicted. Safe against concurrent
// handlers: each shard is locked only while its snapshot is taken or a
// single session is updated.
func (s *Store) Sweep(now time.Time) []*Session {
	var farewells []*Session

	for _, sh := range s.shards {
		sh.mu.RLock()
		snapshot := make([]*Session, 0, len(sh.sessions))
		for _, sess := range sh.sessions {
			snapshot = append(snapshot, sess)
		}
		sh.mu.RUnlock()

		for _, sess := range snapshot {
			sh.mu.Lock()
			idle := sess.IdleFor(now)
			switch {
			case idle >= s.idle*evictionFactor:
				delete(sh.sessions, sess.WaID)
			case idle >= s.idle && !sess.GoodbyeSent:
				sess.GoodbyeSent = true
				farewells = append(farewells, sess)
			}
			sh.mu.Unlock()
		}
	}

	return farewells
}
