package itinerary

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/modules/media"
	"github.com/yungbote/manike-backend/internal/observability"
)

// MediaMatcher finds the best library asset for an activity query. A nil match means none.
type MediaMatcher interface {
	MatchImage(ctx context.Context, tenantID uuid.UUID, query string, exclude map[string]struct{}) (*media.Match, error)
	MatchClip(ctx context.Context, tenantID uuid.UUID, query string) (*media.Match, error)
}

const defaultMatchConcurrency = 4

// assignMedia builds activity rows and attaches at most one image and one clip to each.
// Images run in order so each pick can exclude the ones before it; clips run in parallel.
// Matching failures leave the activity without media.
func (l *Lifecycle) assignMedia(ctx context.Context, tenantID uuid.UUID, planned []PlannedActivity) []*types.ItineraryActivity {
	rows := make([]*types.ItineraryActivity, len(planned))
	for i, p := range planned {
		rows[i] = &types.ItineraryActivity{
			Day:          p.Day,
			ActivityName: p.Title,
			Location:     p.Location,
			Keywords:     p.Keywords,
			Description:  p.Description,
			Category:     p.Category,
			OrderIndex:   i,
		}
	}
	if l.deps.Matcher == nil || len(planned) == 0 {
		return rows
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		used := map[string]struct{}{}
		for i, p := range planned {
			if gctx.Err() != nil {
				return nil
			}
			m, err := l.deps.Matcher.MatchImage(gctx, tenantID, p.Query(), used)
			observability.Current().IncMediaMatch(types.MediaKindImage, matchResult(m, err))
			if err != nil {
				l.log.Warn("Image match failed", "activity", p.Title, "error", err)
				continue
			}
			if m == nil {
				continue
			}
			id := m.ID
			rows[i].ImageID = &id
			rows[i].ImageURL = m.URL
			used[m.ID.String()] = struct{}{}
		}
		return nil
	})

	limit := int64(l.deps.MatchConcurrency)
	if limit <= 0 {
		limit = defaultMatchConcurrency
	}
	sem := semaphore.NewWeighted(limit)
	for i, p := range planned {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			m, err := l.deps.Matcher.MatchClip(gctx, tenantID, p.Query())
			observability.Current().IncMediaMatch(types.MediaKindClip, matchResult(m, err))
			if err != nil {
				l.log.Warn("Clip match failed", "activity", p.Title, "error", err)
				return nil
			}
			if m != nil {
				id := m.ID
				rows[i].CinematicClipID = &id
				rows[i].ClipURL = m.URL
			}
			return nil
		})
	}
	_ = g.Wait()
	return rows
}

func matchResult(m *media.Match, err error) string {
	switch {
	case err != nil:
		return "error"
	case m == nil:
		return "miss"
	default:
		return "hit"
	}
}
