package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/manike-backend/internal/platform/completion"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

// scriptedProvider answers by prompt kind. Extraction replies are consumed in order;
// once the script runs out it returns an empty object.
type scriptedProvider struct {
	mu          sync.Mutex
	name        string
	extractions []scripted
	reply       string
	replyErr    error
	calls       map[string]int
}

type scripted struct {
	text string
	err  error
}

var errProviderDown = &completion.ProviderError{Provider: "fake", StatusCode: 503, Err: errors.New("unavailable")}

func (p *scriptedProvider) Name() string { return "fake" }

func (p *scriptedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	switch {
	case strings.Contains(prompt, "Extract the person's name"):
		p.calls["name"]++
		if p.name == "" {
			return `{"name": null}`, nil
		}
		return `{"name": "` + p.name + `"}`, nil
	case strings.Contains(prompt, "travel information extractor"):
		p.calls["extract"]++
		if len(p.extractions) == 0 {
			return `{}`, nil
		}
		next := p.extractions[0]
		p.extractions = p.extractions[1:]
		return next.text, next.err
	default:
		p.calls["reply"]++
		if p.replyErr != nil {
			return "", p.replyErr
		}
		if p.reply == "" {
			return "Sounds great! 🌴", nil
		}
		return p.reply, nil
	}
}

func (p *scriptedProvider) count(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[kind]
}

func (p *scriptedProvider) push(items ...scripted) {
	p.mu.Lock()
	p.extractions = append(p.extractions, items...)
	p.mu.Unlock()
}

func nopLog() *logger.Logger { return logger.Nop() }

func newTestOrchestrator(p completion.Provider) *Orchestrator {
	log := logger.Nop()
	return NewOrchestrator(NewExtractor(p, log), NewResponder(p, log), Options{}, log)
}

func strPtr(s string) *string { return &s }

// memLog is an in-memory DurableLog.
type memLog struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*StoredSession
	deleted  map[uuid.UUID]bool
}

func newMemLog() *memLog {
	return &memLog{sessions: map[uuid.UUID]*StoredSession{}, deleted: map[uuid.UUID]bool{}}
}

func (m *memLog) CreateSession(ctx context.Context, owner Owner, snapshot []byte, greeting string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.sessions[id] = &StoredSession{
		ID:       id,
		Owner:    owner,
		Snapshot: append([]byte(nil), snapshot...),
		Messages: []Message{{Role: "assistant", Content: greeting}},
	}
	return id, nil
}

func (m *memLog) LoadSession(ctx context.Context, id uuid.UUID) (*StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || m.deleted[id] {
		return nil, nil
	}
	cp := *s
	cp.Messages = append([]Message(nil), s.Messages...)
	return &cp, nil
}

func (m *memLog) AppendExchange(ctx context.Context, id uuid.UUID, user, assistant string, snapshot []byte, destination string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Messages = append(s.Messages, Message{Role: "user", Content: user}, Message{Role: "assistant", Content: assistant})
	s.Snapshot = append([]byte(nil), snapshot...)
	return nil
}

func (m *memLog) SaveSnapshot(ctx context.Context, id uuid.UUID, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Snapshot = append([]byte(nil), snapshot...)
	return nil
}
