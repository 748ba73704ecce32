// Package provider contains thin per-provider HTTP clients and the
// normalization functions that map each provider's response shape into
// canonical fact records.
//
// Clients have no opinion on risk. Each call produces either normalized
// facts or one of the typed failures below; the coordinator decides what
// to do with the failure.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Typed failures. The coordinator branches on these:
//   - ErrUnauthorized, ErrMalformed, ErrUnavailable abort the provider
//   - ErrRateLimited, ErrTimeout are retried
//   - ErrNotFound is an authoritative "no data" answer (terminal success)
var (
	ErrUnauthorized = errors.New("provider: unauthorized")
	ErrRateLimited  = errors.New("provider: rate limited")
	ErrTimeout      = errors.New("provider: timeout")
	ErrNotFound     = errors.New("provider: not found")
	ErrMalformed    = errors.New("provider: malformed response")
	ErrUnavailable  = errors.New("provider: unavailable")
)

// RequestError wraps a provider failure with its origin.
type RequestError struct {
	Provider string
	Status   int // HTTP status, 0 for transport failures
	Err      error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: HTTP %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// defaultTimeout bounds every provider HTTP call.
const defaultTimeout = 10 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON issues one GET and decodes the body into target, mapping
// transport and status failures into the typed taxonomy.
func getJSON(ctx context.Context, httpc *http.Client, name, url string, headers map[string]string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &RequestError{Provider: name, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return &RequestError{Provider: name, Err: classifyTransport(err)}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return &RequestError{Provider: name, Status: resp.StatusCode, Err: err}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &RequestError{Provider: name, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return nil
}

// postJSON issues one POST with a JSON body; used by JSON-RPC style providers.
func postJSON(ctx context.Context, httpc *http.Client, name, url string, body any, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &RequestError{Provider: name, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &RequestError{Provider: name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return &RequestError{Provider: name, Err: classifyTransport(err)}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return &RequestError{Provider: name, Status: resp.StatusCode, Err: err}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &RequestError{Provider: name, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return nil
}

// classifyStatus maps an HTTP status code to the failure taxonomy.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return fmt.Errorf("server error: HTTP %d", code)
	default:
		return fmt.Errorf("%w: unexpected HTTP %d", ErrMalformed, code)
	}
}

// classifyTransport maps transport-level failures; timeouts become ErrTimeout.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return err
}
