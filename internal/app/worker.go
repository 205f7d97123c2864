package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/manike-backend/internal/data/db"
	"github.com/yungbote/manike-backend/internal/modules/itinerary"
	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/platform/envutil"
	"github.com/yungbote/manike-backend/internal/platform/localmedia"
	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/realtime/bus"
	"github.com/yungbote/manike-backend/internal/temporalx"
	"github.com/yungbote/manike-backend/internal/temporalx/temporalworker"
	"github.com/yungbote/manike-backend/internal/temporalx/videocompile"
)

// Worker hosts the video compile activities. It shares Postgres and the bucket with the
// API so it can record outcomes directly.
type Worker struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	cfg          Config
	pg           *db.PostgresService
	tc           temporalsdkclient.Client
	events       bus.Bus
	runner       *temporalworker.Runner
	otelShutdown func(context.Context) error
}

func NewWorker() (*Worker, error) {
	log, err := logger.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With("component", "compileworker")
	cfg := LoadConfig(log)

	w := &Worker{Log: log, cfg: cfg}
	w.otelShutdown = observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName + "-worker",
		Environment: cfg.Environment,
		Version:     envutil.String("SERVICE_VERSION", "dev"),
	})
	w.Metrics = observability.Init(log)

	fail := func(err error) (*Worker, error) {
		w.Close()
		return nil, err
	}

	if w.pg, err = db.NewPostgresService(log); err != nil {
		return fail(fmt.Errorf("init postgres: %w", err))
	}
	bucket, err := resolveBucketService(log)
	if err != nil {
		return fail(err)
	}
	if bucket == nil {
		return fail(fmt.Errorf("compile worker requires MEDIA_GCS_BUCKET_NAME"))
	}
	if w.events, err = bus.FromEnv(log); err != nil {
		return fail(fmt.Errorf("init event bus: %w", err))
	}
	if w.tc, err = temporalx.NewClient(log); err != nil {
		return fail(fmt.Errorf("init temporal client: %w", err))
	}

	reposet := wireRepos(w.pg.DB(), log)
	lifecycle := itinerary.NewLifecycle(itinerary.LifecycleDeps{
		DB:          w.pg.DB(),
		Log:         log,
		Itineraries: reposet.Itineraries,
		Videos:      reposet.Videos,
		Sessions:    reposet.Sessions,
		Events:      w.events,
	})
	tools := localmedia.New(log, localmedia.Options{
		FFmpegPath: cfg.FFmpegPath,
		WorkRoot:   cfg.MediaWorkRoot,
		Timeout:    10 * time.Minute,
	})

	w.runner, err = temporalworker.NewRunner(log, w.tc, &videocompile.Activities{
		Log:    log,
		Media:  tools,
		Bucket: bucket,
		Videos: lifecycle,
	})
	if err != nil {
		return fail(err)
	}
	return w, nil
}

// Run starts polling and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.runner == nil {
		return fmt.Errorf("compile worker not initialized")
	}
	w.Metrics.StartServer(ctx, w.Log, w.cfg.MetricsAddr)
	if err := w.runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (w *Worker) Close() {
	if w == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if w.tc != nil {
		w.tc.Close()
		w.tc = nil
	}
	if w.events != nil {
		errs = append(errs, w.events.Close())
		w.events = nil
	}
	if w.otelShutdown != nil {
		errs = append(errs, w.otelShutdown(ctx))
		w.otelShutdown = nil
	}
	if w.pg != nil {
		errs = append(errs, w.pg.Close())
		w.pg = nil
	}
	if err := errors.Join(errs...); err != nil {
		w.Log.Warn("Worker shutdown finished with errors", "error", err)
	}
	w.Log.Sync()
}
