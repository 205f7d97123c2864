package videocompile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.temporal.io/sdk/testsuite"

	"github.com/yungbote/manike-backend/internal/modules/itinerary"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/gcp"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

type fakeMedia struct {
	dir     string
	concatE error
	mu      sync.Mutex
	inputs  []string
}

func (f *fakeMedia) AssertReady(ctx context.Context) error { return nil }

func (f *fakeMedia) ConcatClips(ctx context.Context, inputs []string, outPath string) (string, error) {
	f.mu.Lock()
	f.inputs = append([]string(nil), inputs...)
	f.mu.Unlock()
	if f.concatE != nil {
		return "", f.concatE
	}
	return outPath, os.WriteFile(outPath, []byte(strings.Join(inputs, "|")), 0o644)
}

func (f *fakeMedia) TempPath(suffix string) (string, func(), error) {
	p := filepath.Join(f.dir, uuid.NewString()+suffix)
	return p, func() { _ = os.Remove(p) }, nil
}

type fakeBucket struct {
	mu       sync.Mutex
	existing map[string]bool
	uploads  map[string]string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{existing: map[string]bool{}, uploads: map[string]string{}}
}

func (b *fakeBucket) UploadFile(dbc dbctx.Context, category gcp.BucketCategory, key string, file io.Reader) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads[key] = string(data)
	b.existing[key] = true
	return b.GetPublicURL(category, key), nil
}

func (b *fakeBucket) DeleteFile(dbc dbctx.Context, category gcp.BucketCategory, key string) error {
	return nil
}

func (b *fakeBucket) DeleteByURL(ctx context.Context, publicURL string) error { return nil }

func (b *fakeBucket) Exists(ctx context.Context, category gcp.BucketCategory, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.existing[key], nil
}

func (b *fakeBucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return "https://cdn.test/" + string(category) + "/" + key
}

type fakeRecorder struct {
	mu          sync.Mutex
	missingLeft int
	compiled    map[uuid.UUID]string
	failed      map[uuid.UUID]string
	attempts    int
}

func newFakeRecorder(missing int) *fakeRecorder {
	return &fakeRecorder{missingLeft: missing, compiled: map[uuid.UUID]string{}, failed: map[uuid.UUID]string{}}
}

func (r *fakeRecorder) MarkCompiled(ctx context.Context, id uuid.UUID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.missingLeft > 0 {
		r.missingLeft--
		return itinerary.ErrVideoRowMissing
	}
	r.compiled[id] = url
	return nil
}

func (r *fakeRecorder) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[id] = reason
	return nil
}

func runWorkflow(t *testing.T, acts *Activities, in Input) (StitchResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	Register(env, acts)
	env.ExecuteWorkflow(WorkflowName, in)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		return StitchResult{}, err
	}
	var out StitchResult
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("GetWorkflowResult: %v", err)
	}
	return out, nil
}

func TestWorkflow(t *testing.T) {
	tenant := uuid.New()
	clips := []string{"https://cdn.test/a.mp4", "https://cdn.test/b.mp4"}

	tests := []struct {
		name        string
		preexisting bool
		concatErr   error
		missing     int
		wantErr     bool
		wantReused  bool
		wantFailed  bool
		wantUpload  bool
		wantAttempt int
	}{
		{name: "stitches and records", wantUpload: true, wantAttempt: 1},
		{name: "reuses uploaded output", preexisting: true, wantReused: true, wantAttempt: 1},
		{name: "retries until row exists", missing: 2, wantUpload: true, wantAttempt: 3},
		{name: "stitch failure marks failed", concatErr: errors.New("bad timestamps"), wantErr: true, wantFailed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			itineraryID := uuid.New()
			key := itinerary.FinalVideoKey(tenant, itineraryID)
			media := &fakeMedia{dir: t.TempDir(), concatE: tt.concatErr}
			bucket := newFakeBucket()
			if tt.preexisting {
				bucket.existing[key] = true
			}
			rec := newFakeRecorder(tt.missing)
			acts := &Activities{Log: logger.Nop(), Media: media, Bucket: bucket, Videos: rec}

			out, err := runWorkflow(t, acts, Input{ItineraryID: itineraryID.String(), TenantID: tenant.String(), ClipURLs: clips})
			if (err != nil) != tt.wantErr {
				t.Fatalf("workflow error: want=%v got=%v", tt.wantErr, err)
			}
			if rec.attempts != tt.wantAttempt {
				t.Fatalf("mark compiled attempts: want=%d got=%d", tt.wantAttempt, rec.attempts)
			}
			if _, ok := rec.failed[itineraryID]; ok != tt.wantFailed {
				t.Fatalf("marked failed: want=%v got=%v", tt.wantFailed, ok)
			}
			if _, ok := bucket.uploads[key]; ok != tt.wantUpload {
				t.Fatalf("uploaded: want=%v got=%v", tt.wantUpload, ok)
			}
			if tt.wantErr {
				if !strings.Contains(rec.failed[itineraryID], "bad timestamps") {
					t.Fatalf("failure reason: got=%q", rec.failed[itineraryID])
				}
				return
			}
			wantURL := bucket.GetPublicURL(gcp.BucketCategoryVideo, key)
			if out.VideoURL != wantURL || out.Reused != tt.wantReused {
				t.Fatalf("result: want=%s reused=%v got=%+v", wantURL, tt.wantReused, out)
			}
			if rec.compiled[itineraryID] != wantURL {
				t.Fatalf("recorded url: want=%s got=%s", wantURL, rec.compiled[itineraryID])
			}
			if tt.wantUpload && bucket.uploads[key] != strings.Join(clips, "|") {
				t.Fatalf("clip order: got=%q", bucket.uploads[key])
			}
		})
	}
}

func TestWorkflowRejectsEmptyInput(t *testing.T) {
	rec := newFakeRecorder(0)
	acts := &Activities{Log: logger.Nop(), Media: &fakeMedia{dir: t.TempDir()}, Bucket: newFakeBucket(), Videos: rec}
	if _, err := runWorkflow(t, acts, Input{ItineraryID: uuid.NewString(), TenantID: uuid.NewString()}); err == nil {
		t.Fatalf("want error for missing clips")
	}
	if rec.attempts != 0 || len(rec.failed) != 0 {
		t.Fatalf("no bookkeeping expected: attempts=%d failed=%d", rec.attempts, len(rec.failed))
	}
}
