package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jonwraymond/toolgate/jsonrpc"
)

// Forwarder relays an admitted request to the backend and returns the raw
// JSON-RPC response body. An empty body is valid for notifications.
type Forwarder interface {
	Forward(ctx context.Context, req *jsonrpc.Request, body []byte) ([]byte, error)
}

// ForwarderFunc adapts a function to a Forwarder.
type ForwarderFunc func(ctx context.Context, req *jsonrpc.Request, body []byte) ([]byte, error)

// Forward calls f.
func (f ForwarderFunc) Forward(ctx context.Context, req *jsonrpc.Request, body []byte) ([]byte, error) {
	return f(ctx, req, body)
}

// DefaultMaxResponseBytes bounds a relayed backend response.
const DefaultMaxResponseBytes = 4 << 20

// HTTPForwarder posts every request to a single backend URL.
type HTTPForwarder struct {
	URL    string
	Client *http.Client

	// MaxResponseBytes bounds the relayed body.
	// Default: DefaultMaxResponseBytes
	MaxResponseBytes int64
}

// Forward posts body unchanged.
func (f *HTTPForwarder) Forward(ctx context.Context, _ *jsonrpc.Request, body []byte) ([]byte, error) {
	if f.URL == "" {
		return nil, ErrNoBackend
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	limit := f.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: build backend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if id := RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(RequestIDHeader, id)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway: backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, limit))
		return nil, fmt.Errorf("%w: %d", ErrBackendStatus, resp.StatusCode)
	}

	out, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("gateway: read backend response: %w", err)
	}
	return out, nil
}

var _ Forwarder = (*HTTPForwarder)(nil)
