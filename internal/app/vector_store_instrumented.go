package app

import (
	"context"
	"time"

	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/platform/qdrant"
)

type instrumentedVectorStore struct {
	provider string
	inner    qdrant.VectorStore
	metrics  *observability.Metrics
}

func instrumentVectorStore(provider string, inner qdrant.VectorStore) qdrant.VectorStore {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorStore{
		provider: provider,
		inner:    inner,
		metrics:  observability.Current(),
	}
}

func (s *instrumentedVectorStore) Upsert(ctx context.Context, namespace string, vectors []qdrant.Vector) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, namespace, vectors)
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) Search(ctx context.Context, namespace string, q []float32, topK int, excludeIDs []string) ([]qdrant.Match, error) {
	start := time.Now()
	out, err := s.inner.Search(ctx, namespace, q, topK, excludeIDs)
	s.observe("search", err, time.Since(start))
	return out, err
}

func (s *instrumentedVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	start := time.Now()
	err := s.inner.DeleteIDs(ctx, namespace, ids)
	s.observe("delete_ids", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) observe(operation string, err error, dur time.Duration) {
	if s == nil || s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorStoreOperation(s.provider, operation, status, dur)
}
