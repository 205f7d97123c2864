package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/manike-backend/internal/platform/logger"
)

func TestGenerateTextRequestShape(t *testing.T) {
	var captured responsesRequest
	c := newTestClient(t, 0, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/responses" {
			t.Fatalf("path: want=/v1/responses got=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("auth header: got=%q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"output": []any{
				map[string]any{
					"type": "message",
					"role": "assistant",
					"content": []any{
						map[string]any{"type": "output_text", "text": "Ella "},
						map[string]any{"type": "output_text", "text": "awaits"},
					},
				},
			},
		}), nil
	})

	got, err := c.GenerateText(context.Background(), "", "plan a trip")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "Ella awaits" {
		t.Fatalf("text: want=%q got=%q", "Ella awaits", got)
	}
	if len(captured.Input) != 1 || captured.Input[0].Role != "user" {
		t.Fatalf("input: want single user message got=%+v", captured.Input)
	}
	if captured.Model != "gpt-test" {
		t.Fatalf("model: want=gpt-test got=%s", captured.Model)
	}
}

func TestGenerateTextNonRetryableStatus(t *testing.T) {
	calls := 0
	c := newTestClient(t, 3, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(t, http.StatusBadRequest, map[string]any{"error": "bad"}), nil
	})
	_, err := c.GenerateText(context.Background(), "sys", "hi")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("want HTTPError 400 got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestEmbedFallsBackToResponseOrder(t *testing.T) {
	c := newTestClient(t, 0, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{
			"data": []any{
				map[string]any{"embedding": []float64{1, 0}},
				map[string]any{"embedding": []float64{0, 1}},
			},
		}), nil
	})
	vecs, err := c.Embed(context.Background(), []string{"beach", "  "})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("vectors: got=%v", vecs)
	}
}

func newTestClient(t *testing.T, retries int, rt func(*http.Request) (*http.Response, error)) Client {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	c, err := NewClientWithConfig(log, Config{
		APIKey:     "sk-test",
		BaseURL:    "http://openai.local/",
		Model:      "gpt-test",
		EmbedModel: "embed-test",
		MaxRetries: retries,
		HTTPClient: &http.Client{Transport: roundTripFunc(rt)},
	})
	if err != nil {
		t.Fatalf("NewClientWithConfig: %v", err)
	}
	return c
}

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
