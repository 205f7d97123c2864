package media

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/manike-backend/internal/platform/qdrant"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = []float32{float32(len(in)), 1, 0}
	}
	return out, nil
}

// memVectors ranks points in insertion order; the first point is the best match.
type memVectors struct {
	mu         sync.Mutex
	points     map[string][]qdrant.Match
	upsertErr  error
	searchArgs [][]string
}

func newMemVectors() *memVectors { return &memVectors{points: map[string][]qdrant.Match{}} }

func (m *memVectors) Upsert(ctx context.Context, ns string, vectors []qdrant.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, v := range vectors {
		m.points[ns] = append(m.points[ns], qdrant.Match{ID: v.ID, Score: 1, Payload: v.Payload})
	}
	return nil
}

func (m *memVectors) Search(ctx context.Context, ns string, q []float32, topK int, excludeIDs []string) ([]qdrant.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchArgs = append(m.searchArgs, excludeIDs)
	skip := map[string]bool{}
	for _, id := range excludeIDs {
		skip[id] = true
	}
	var out []qdrant.Match
	for _, p := range m.points[ns] {
		if skip[p.ID] {
			continue
		}
		out = append(out, p)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func (m *memVectors) DeleteIDs(ctx context.Context, ns string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.points[ns][:0]
	for _, p := range m.points[ns] {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	m.points[ns] = kept
	return nil
}

func (m *memVectors) count(ns string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.points[ns])
}

var errVectorDown = errors.New("vector store down")
