package app

import (
	"context"
	"io"

	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/gcp"
	"github.com/yungbote/manike-backend/internal/platform/qdrant"
)

type testBucket struct{}

func (b *testBucket) UploadFile(_ dbctx.Context, category gcp.BucketCategory, key string, _ io.Reader) (string, error) {
	return b.GetPublicURL(category, key), nil
}

func (b *testBucket) DeleteFile(dbctx.Context, gcp.BucketCategory, string) error { return nil }

func (b *testBucket) DeleteByURL(context.Context, string) error { return nil }

func (b *testBucket) Exists(context.Context, gcp.BucketCategory, string) (bool, error) {
	return false, nil
}

func (b *testBucket) GetPublicURL(_ gcp.BucketCategory, key string) string {
	return "https://storage.test/" + key
}

type testVectorStore struct {
	upsertCalls int
	searchCalls int
	deleteCalls int

	searchErr error
}

func (s *testVectorStore) Upsert(context.Context, string, []qdrant.Vector) error {
	s.upsertCalls++
	return nil
}

func (s *testVectorStore) Search(context.Context, string, []float32, int, []string) ([]qdrant.Match, error) {
	s.searchCalls++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return []qdrant.Match{{ID: "v1", Score: 0.9}}, nil
}

func (s *testVectorStore) DeleteIDs(context.Context, string, []string) error {
	s.deleteCalls++
	return nil
}
