package app

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/modules/conversation"
	"github.com/yungbote/manike-backend/internal/modules/itinerary"
	"github.com/yungbote/manike-backend/internal/modules/media"
	"github.com/yungbote/manike-backend/internal/platform/completion"
	"github.com/yungbote/manike-backend/internal/platform/gcp"
	"github.com/yungbote/manike-backend/internal/platform/localmedia"
	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/platform/openai"
	"github.com/yungbote/manike-backend/internal/platform/qdrant"
	"github.com/yungbote/manike-backend/internal/realtime/bus"
	"github.com/yungbote/manike-backend/internal/services"
	"github.com/yungbote/manike-backend/internal/temporalx"
	"github.com/yungbote/manike-backend/internal/temporalx/videocompile"
)

// Clients are the external backends. Bucket, Vectors and Temporal are nil when not configured.
type Clients struct {
	LLM      completion.Provider
	Embed    media.Embedder
	Bucket   gcp.BucketService
	Vectors  qdrant.VectorStore
	Events   bus.Bus
	Temporal temporalsdkclient.Client
	Media    localmedia.Tools
}

type Services struct {
	Auth        services.AuthService
	Sessions    services.SessionService
	Itineraries services.ItineraryService
	Media       services.MediaService

	Store     *conversation.SessionStore
	Lifecycle *itinerary.Lifecycle
	Library   *media.Library
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	llm, err := completion.New(ctx, log, completion.Config{
		Provider:  cfg.AIProvider,
		OpenAI:    cfg.OpenAI,
		RateLimit: cfg.RateLimit,
	})
	if err != nil {
		return out, fmt.Errorf("init completion provider: %w", err)
	}
	out.LLM = llm

	// Embeddings always come from the OpenAI API; eino only covers chat completion.
	if embed, err := openai.NewClientWithConfig(log, cfg.OpenAI); err != nil {
		log.Warn("Embedding client unavailable; media matching disabled", "error", err)
	} else {
		out.Embed = embed
	}

	if out.Bucket, err = resolveBucketService(log); err != nil {
		return out, err
	}
	if out.Vectors, err = resolveVectorStore(ctx, log); err != nil {
		return out, err
	}
	if out.Events, err = bus.FromEnv(log); err != nil {
		return out, fmt.Errorf("init event bus: %w", err)
	}

	out.Media = localmedia.New(log, localmedia.Options{
		FFmpegPath: cfg.FFmpegPath,
		WorkRoot:   cfg.MediaWorkRoot,
		Timeout:    10 * time.Minute,
	})

	if cfg.VideoCompiler == VideoCompilerTemporal {
		tc, err := temporalx.NewClient(log)
		if err != nil {
			return out, fmt.Errorf("init temporal client: %w", err)
		}
		if tc == nil {
			return out, fmt.Errorf("VIDEO_COMPILER=temporal requires TEMPORAL_ADDRESS")
		}
		out.Temporal = tc
	}
	return out, nil
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	durable := services.NewSessionLog(db, log, reposet.Sessions, reposet.Messages)
	opts := conversation.Options{MaxConsecutiveFailures: cfg.MaxConsecutiveFailures}
	store := conversation.NewSessionStore(durable, func() *conversation.Orchestrator {
		return conversation.NewOrchestrator(
			conversation.NewExtractor(clients.LLM, log),
			conversation.NewResponder(clients.LLM, log),
			opts,
			log,
		)
	}, log)

	library := media.NewLibrary(media.LibraryDeps{
		DB:      db,
		Log:     log,
		Images:  reposet.Images,
		Clips:   reposet.Clips,
		Embed:   clients.Embed,
		Vectors: clients.Vectors,
		Bucket:  clients.Bucket,
	})

	rules := itinerary.NewRuleGenerator(itinerary.DefaultCatalog())
	if cfg.CatalogFile != "" {
		catalog, err := itinerary.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return Services{}, err
		}
		rules = itinerary.NewRuleGenerator(catalog)
	}

	compiler, err := wireCompiler(log, cfg, clients)
	if err != nil {
		return Services{}, err
	}

	lifecycle := itinerary.NewLifecycle(itinerary.LifecycleDeps{
		DB:               db,
		Log:              log,
		Itineraries:      reposet.Itineraries,
		Videos:           reposet.Videos,
		Sessions:         reposet.Sessions,
		Planner:          itinerary.NewPlanner(clients.LLM, log),
		Rules:            rules,
		Matcher:          media.NewVectorMatcher(clients.Embed, clients.Vectors, log),
		Compiler:         compiler,
		Events:           clients.Events,
		MatchConcurrency: cfg.MatchConcurrency,
	})

	return Services{
		Auth:        services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Sessions:    services.NewSessionService(db, log, store, reposet.Sessions, reposet.Videos, clients.Bucket, clients.Events, cfg.InstanceID),
		Itineraries: services.NewItineraryService(log, lifecycle, store, reposet.Sessions),
		Media:       services.NewMediaService(log, library),
		Store:       store,
		Lifecycle:   lifecycle,
		Library:     library,
	}, nil
}

func wireCompiler(log *logger.Logger, cfg Config, clients Clients) (itinerary.VideoCompiler, error) {
	if clients.Temporal != nil {
		return videocompile.NewCompiler(clients.Temporal, temporalx.LoadConfig().TaskQueue, log)
	}
	if clients.Bucket == nil {
		log.Warn("No media bucket configured; video compilation will fail")
	}
	return itinerary.NewLocalCompiler(clients.Media, clients.Bucket, log), nil
}
