package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/platform/qdrant"
)

const (
	payloadAssetID  = "asset_id"
	payloadAssetURL = "url"
	payloadTenantID = "tenant_id"
	payloadKind     = "kind"
)

// Embedder turns text into vectors. openai.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Match is the best asset for a query.
type Match struct {
	ID    uuid.UUID
	URL   string
	Score float64
}

// Namespace scopes vectors to one tenant and asset kind.
func Namespace(tenantID uuid.UUID, kind string) string {
	return "tenant:" + tenantID.String() + ":" + kind
}

type VectorMatcher struct {
	embed   Embedder
	vectors qdrant.VectorStore
	log     *logger.Logger
	topK    int
}

func NewVectorMatcher(embed Embedder, vectors qdrant.VectorStore, log *logger.Logger) *VectorMatcher {
	return &VectorMatcher{
		embed:   embed,
		vectors: vectors,
		log:     log.With("module", "MediaMatcher"),
		topK:    5,
	}
}

// MatchImage returns the closest image not in exclude. When every candidate is excluded
// it falls back to the unfiltered top match. A nil match with nil error means the tenant
// library has nothing to offer.
func (m *VectorMatcher) MatchImage(ctx context.Context, tenantID uuid.UUID, query string, exclude map[string]struct{}) (*Match, error) {
	vec, err := m.queryVector(ctx, query)
	if err != nil || vec == nil {
		return nil, err
	}
	ns := Namespace(tenantID, types.MediaKindImage)
	if len(exclude) > 0 {
		ids := make([]string, 0, len(exclude))
		for id := range exclude {
			ids = append(ids, id)
		}
		hits, err := m.vectors.Search(ctx, ns, vec, m.topK, ids)
		if err != nil {
			return nil, fmt.Errorf("search images: %w", err)
		}
		if match := firstMatch(hits, exclude); match != nil {
			return match, nil
		}
	}
	hits, err := m.vectors.Search(ctx, ns, vec, 1, nil)
	if err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}
	return firstMatch(hits, nil), nil
}

// MatchClip returns the closest cinematic clip. Clips may repeat across activities.
func (m *VectorMatcher) MatchClip(ctx context.Context, tenantID uuid.UUID, query string) (*Match, error) {
	vec, err := m.queryVector(ctx, query)
	if err != nil || vec == nil {
		return nil, err
	}
	hits, err := m.vectors.Search(ctx, Namespace(tenantID, types.MediaKindClip), vec, 1, nil)
	if err != nil {
		return nil, fmt.Errorf("search clips: %w", err)
	}
	return firstMatch(hits, nil), nil
}

func (m *VectorMatcher) queryVector(ctx context.Context, query string) ([]float32, error) {
	query = strings.TrimSpace(query)
	if query == "" || m.embed == nil || m.vectors == nil {
		return nil, nil
	}
	vecs, err := m.embed.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}

func firstMatch(hits []qdrant.Match, exclude map[string]struct{}) *Match {
	for _, h := range hits {
		if _, skip := exclude[h.ID]; skip {
			continue
		}
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		url, _ := h.Payload[payloadAssetURL].(string)
		return &Match{ID: id, URL: url, Score: h.Score}
	}
	return nil
}
