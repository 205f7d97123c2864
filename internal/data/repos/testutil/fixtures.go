package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/domain/trip"
)

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID) *trip.ChatSession {
	tb.Helper()
	s := &trip.ChatSession{
		TenantID: tenantID,
		UserID:   userID,
		Title:    trip.DefaultSessionTitle,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

// SeedItinerary writes an itinerary whose activities carry the given clip URLs in order.
// An empty URL leaves that activity without a clip.
func SeedItinerary(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, clipURLs ...string) *trip.Itinerary {
	tb.Helper()
	it := &trip.Itinerary{
		TenantID:    tenantID,
		UserID:      uuid.New(),
		Prompt:      "3-day trip to Galle and Ella",
		Destination: "Sri Lanka",
		Days:        len(clipURLs),
		Status:      trip.ItineraryStatusGenerated,
	}
	for i, u := range clipURLs {
		act := &trip.ItineraryActivity{
			Day:          i + 1,
			ActivityName: "Activity",
			Location:     "Galle",
			Keywords:     "galle,fort",
			ClipURL:      u,
			OrderIndex:   i,
		}
		if u != "" {
			id := uuid.New()
			act.CinematicClipID = &id
		}
		it.Activities = append(it.Activities, act)
	}
	if err := tx.WithContext(ctx).Create(it).Error; err != nil {
		tb.Fatalf("seed itinerary: %v", err)
	}
	return it
}
