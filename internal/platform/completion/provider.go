package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/manike-backend/internal/pkg/httpx"
)

var ErrNoProvider = errors.New("no completion provider configured")

// Provider turns a prompt into text. Implementations wrap every failure in *ProviderError.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ProviderError is returned for transport, quota and rate-limit failures of a completion backend.
type ProviderError struct {
	Provider    string
	StatusCode  int
	RateLimited bool
	Err         error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s completion failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.RateLimited
}

// wrap classifies a raw backend error into a *ProviderError.
func wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	out := &ProviderError{Provider: provider, Err: err}
	var sc httpx.HTTPStatusCoder
	if errors.As(err, &sc) {
		out.StatusCode = sc.HTTPStatusCode()
	}
	if out.StatusCode == http.StatusTooManyRequests || looksRateLimited(err.Error()) {
		out.RateLimited = true
	}
	return out
}

func looksRateLimited(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "rate limit") ||
		strings.Contains(m, "rate_limit") ||
		strings.Contains(m, "too many requests") ||
		strings.Contains(m, "status code: 429") ||
		strings.Contains(m, "resource_exhausted")
}
