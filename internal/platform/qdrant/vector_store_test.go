package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/manike-backend/internal/platform/logger"
)

func TestVectorStoreUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/media/points" || r.URL.RawQuery != "wait=true" {
			t.Fatalf("url: got=%s?%s", r.URL.Path, r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	meta := map[string]any{"url": "https://cdn/x.jpg"}
	err := s.Upsert(context.Background(), "tenant-a:images", []Vector{{ID: "img-1", Values: []float32{1, 2, 3}, Payload: meta}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	points, _ := captured["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("points: want=1 got=%d", len(points))
	}
	first := points[0].(map[string]any)
	if first["id"] != s.pointID("mk:tenant-a:images", "img-1") {
		t.Fatalf("point id mismatch: got=%v", first["id"])
	}
	payload := first["payload"].(map[string]any)
	if payload[payloadNamespaceKey] != "mk:tenant-a:images" || payload[payloadVectorIDKey] != "img-1" || payload["url"] != "https://cdn/x.jpg" {
		t.Fatalf("payload: got=%v", payload)
	}
	if _, exists := meta[payloadNamespaceKey]; exists {
		t.Fatalf("input payload mutated")
	}
}

func TestVectorStoreUpsertRejectsWrongDimension(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	err := s.Upsert(context.Background(), "ns", []Vector{{ID: "a", Values: []float32{1}}})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("want validation error got=%v", err)
	}
}

func TestVectorStoreSearchExcludesAndSorts(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/media/points/search" {
			t.Fatalf("path: got=%s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": "p1", "score": 0.2, "payload": map[string]any{payloadVectorIDKey: "img-low", "url": "low"}},
			{"id": "p2", "score": 0.9, "payload": map[string]any{payloadVectorIDKey: "img-high", "url": "high"}},
			{"id": "p3", "score": 0.5, "payload": map[string]any{}},
		}), nil
	})

	matches, err := s.Search(context.Background(), "tenant-a:images", []float32{0.1, 0.2, 0.3}, 5, []string{"img-used", " ", "img-used"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "img-high" || matches[1].ID != "img-low" {
		t.Fatalf("matches: got=%+v", matches)
	}
	if matches[0].Payload["url"] != "high" {
		t.Fatalf("payload url: got=%v", matches[0].Payload)
	}
	if _, leaked := matches[0].Payload[payloadVectorIDKey]; leaked {
		t.Fatalf("internal payload key leaked")
	}

	filter := captured["filter"].(map[string]any)
	must := filter["must"].([]any)[0].(map[string]any)
	if must["key"] != payloadNamespaceKey {
		t.Fatalf("must key: got=%v", must["key"])
	}
	mustNot := filter["must_not"].([]any)[0].(map[string]any)
	hasID := mustNot["has_id"].([]any)
	if len(hasID) != 1 || hasID[0] != s.pointID("mk:tenant-a:images", "img-used") {
		t.Fatalf("has_id: got=%v", hasID)
	}
}

func TestVectorStoreSearchWithoutExclusionsOmitsMustNot(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		return okResponse(t, []any{}), nil
	})
	if _, err := s.Search(context.Background(), "ns", []float32{1, 1, 1}, 1, nil); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, ok := captured["filter"].(map[string]any)["must_not"]; ok {
		t.Fatalf("must_not should be absent")
	}
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	var methods []string
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodGet {
			return &http.Response{StatusCode: http.StatusNotFound, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"not found"}}`)))}, nil
		}
		return okResponse(t, true), nil
	})
	s.cfg.CreateCollection = true
	if err := s.ensureCollection(context.Background()); err != nil {
		t.Fatalf("ensureCollection: %v", err)
	}
	if len(methods) != 2 || methods[1] != http.MethodPut {
		t.Fatalf("methods: got=%v", methods)
	}
	if s.distance != "Cosine" {
		t.Fatalf("distance: got=%q", s.distance)
	}
}

func TestDoJSONEnvelopeError(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		raw := []byte(`{"status":{"error":"bad filter"},"result":null}`)
		return &http.Response{StatusCode: http.StatusOK, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader(raw))}, nil
	})
	err := s.DeleteIDs(context.Background(), "ns", []string{"a"})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Message != "bad filter" {
		t.Fatalf("want envelope error got=%v", err)
	}
}

func TestClassifyHTTPCallErrorTransport(t *testing.T) {
	err := classifyHTTPCallError("search", "transport", fmt.Errorf("boom"))
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorTransportFailed {
		t.Fatalf("want transport error got=%v", err)
	}
	err = classifyHTTPCallError("search", "timeout", context.DeadlineExceeded)
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorTimeout {
		t.Fatalf("want timeout error got=%v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		cfg  Config
		code ConfigErrorCode
	}{
		{Config{}, ConfigErrorMissingURL},
		{Config{URL: "qdrant:6333"}, ConfigErrorInvalidURL},
		{Config{URL: "http://qdrant:6333"}, ConfigErrorMissingCollection},
		{Config{URL: "http://qdrant:6333", Collection: "c"}, ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		err := ValidateConfig(tc.cfg)
		var ce *ConfigError
		if !errors.As(err, &ce) || ce.Code != tc.code {
			t.Fatalf("%+v: want=%s got=%v", tc.cfg, tc.code, err)
		}
	}
	if err := ValidateConfig(Config{URL: "http://qdrant:6333", Collection: "c", VectorDim: 3}); err != nil {
		t.Fatalf("valid config: %v", err)
	}
}

func newTestVectorStore(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *vectorStore {
	t.Helper()
	return &vectorStore{
		log:      newTestLogger(t),
		cfg:      Config{Collection: "media", VectorDim: 3},
		baseURL:  "http://qdrant.local",
		nsPrefix: "mk",
		http:     &http.Client{Transport: roundTripFunc(roundTrip)},
		distance: "Cosine",
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"result": result, "status": "ok", "time": 0.001})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
