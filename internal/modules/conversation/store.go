package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/manike-backend/internal/platform/logger"
)

var ErrSessionNotFound = errors.New("chat session not found")

type Owner struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// StoredSession is what the durable log holds for one live session.
type StoredSession struct {
	ID       uuid.UUID
	Owner    Owner
	Snapshot []byte
	Messages []Message
}

// DurableLog persists session headers and append-only transcripts.
type DurableLog interface {
	// CreateSession writes the header and the greeting message in one transaction.
	CreateSession(ctx context.Context, owner Owner, snapshot []byte, greeting string) (uuid.UUID, error)
	// LoadSession returns (nil, nil) for missing or soft-deleted sessions.
	LoadSession(ctx context.Context, id uuid.UUID) (*StoredSession, error)
	// AppendExchange appends both messages and updates the snapshot, timestamp and
	// default title in one transaction.
	AppendExchange(ctx context.Context, id uuid.UUID, user, assistant string, snapshot []byte, destination string) error
	SaveSnapshot(ctx context.Context, id uuid.UUID, snapshot []byte) error
}

// Factory builds a fresh orchestrator wired to the current providers.
type Factory func() *Orchestrator

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// SessionStore is a write-through cache of live orchestrators keyed by session id.
// A cache miss rebuilds from the durable log by snapshot replay.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Orchestrator

	lockMu sync.Mutex
	locks  map[uuid.UUID]*sessionLock

	durable DurableLog
	factory Factory
	log     *logger.Logger
}

func NewSessionStore(durable DurableLog, factory Factory, log *logger.Logger) *SessionStore {
	return &SessionStore{
		entries: map[uuid.UUID]*Orchestrator{},
		locks:   map[uuid.UUID]*sessionLock{},
		durable: durable,
		factory: factory,
		log:     log.With("module", "SessionStore"),
	}
}

// Create starts a session, persists header and greeting, and caches the orchestrator.
func (s *SessionStore) Create(ctx context.Context, owner Owner) (uuid.UUID, string, error) {
	if s.factory == nil {
		return uuid.Nil, "", fmt.Errorf("session store has no orchestrator factory")
	}
	orch := s.factory()
	greeting := orch.Start()
	snap, err := EncodeSnapshot(orch.Snapshot())
	if err != nil {
		return uuid.Nil, "", err
	}
	if s.durable == nil {
		id := uuid.New()
		s.Put(id, orch)
		return id, greeting, nil
	}
	id, err := s.durable.CreateSession(ctx, owner, snap, greeting)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("persist session: %w", err)
	}
	s.Put(id, orch)
	s.log.Info("Session created", "session_id", id, "tenant_id", owner.TenantID, "user_id", owner.UserID)
	return id, greeting, nil
}

// GetOrRebuild returns the cached orchestrator or rebuilds it from the durable log.
// It returns (nil, nil) when the session does not exist or was deleted.
func (s *SessionStore) GetOrRebuild(ctx context.Context, id uuid.UUID) (*Orchestrator, error) {
	if orch, ok := s.Get(id); ok {
		return orch, nil
	}
	if s.durable == nil || s.factory == nil {
		return nil, nil
	}
	stored, err := s.durable.LoadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if stored == nil {
		return nil, nil
	}
	snap, err := DecodeSnapshot(stored.Snapshot)
	if err != nil {
		s.log.Warn("Session snapshot unreadable, starting from empty requirements", "session_id", id, "error", err)
		snap = Snapshot{Requirements: map[string]*string{}}
	}
	orch := s.factory()
	orch.Restore(snap, stored.Messages)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[id]; ok {
		return existing, nil
	}
	s.entries[id] = orch
	s.log.Info("Session rebuilt from durable log", "session_id", id, "messages", len(stored.Messages))
	return orch, nil
}

// PersistExchange writes one user/assistant pair and the current snapshot.
func (s *SessionStore) PersistExchange(ctx context.Context, id uuid.UUID, user, assistant string, orch *Orchestrator) error {
	if orch == nil {
		return fmt.Errorf("missing orchestrator")
	}
	if s.durable == nil {
		return nil
	}
	snap, err := EncodeSnapshot(orch.Snapshot())
	if err != nil {
		return err
	}
	return s.durable.AppendExchange(ctx, id, user, assistant, snap, orch.Destination())
}

// SaveSnapshot rewrites the snapshot after out-of-turn changes such as MarkGenerated.
func (s *SessionStore) SaveSnapshot(ctx context.Context, id uuid.UUID, orch *Orchestrator) error {
	if s.durable == nil || orch == nil {
		return nil
	}
	snap, err := EncodeSnapshot(orch.Snapshot())
	if err != nil {
		return err
	}
	return s.durable.SaveSnapshot(ctx, id, snap)
}

func (s *SessionStore) Get(id uuid.UUID) (*Orchestrator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orch, ok := s.entries[id]
	return orch, ok
}

func (s *SessionStore) Put(id uuid.UUID, orch *Orchestrator) {
	s.mu.Lock()
	s.entries[id] = orch
	s.mu.Unlock()
}

// Evict drops the in-memory entry only. It reports whether an entry existed.
func (s *SessionStore) Evict(id uuid.UUID) bool {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if ok {
		s.log.Debug("Session evicted from cache", "session_id", id)
	}
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Lock serializes turns on one session. The returned func releases it.
func (s *SessionStore) Lock(id uuid.UUID) func() {
	s.lockMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.lockMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.lockMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.lockMu.Unlock()
	}
}
