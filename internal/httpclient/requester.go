package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/replayfire/internal/replay"
	"github.com/torosent/replayfire/internal/source"
	"github.com/torosent/replayfire/internal/tracing"
)

// Requester issues captured events against the target service. It
// implements replay.Transport: one call, one request, the whole response
// body read and returned for the sink to inspect.
type Requester struct {
	client  *http.Client
	baseURL string
	headers http.Header

	// PropagateTrace injects W3C trace context headers into each request
	// when a span is active on the dispatch context.
	PropagateTrace bool
}

// NewRequester creates a requester posting to http://host:port.
func NewRequester(client *http.Client, host string, port int) (*Requester, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	base, err := BaseURL(host, port)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	return &Requester{
		client:  client,
		baseURL: base,
		headers: headers,
	}, nil
}

// RoundTrip sends ev and returns the normalized response. Any status code
// the target produces is a response, not an error; errors are reserved for
// transport-level failures.
func (r *Requester) RoundTrip(ctx context.Context, ev source.Event) (replay.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	method := ev.Method
	if method == "" {
		method = http.MethodPost
	}

	path := ev.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if len(ev.Body) > 0 {
		body = bytes.NewReader(ev.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return replay.Response{}, fmt.Errorf("build request: %w", err)
	}
	for key, values := range r.headers {
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}
	if r.PropagateTrace {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return replay.Response{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return replay.Response{}, fmt.Errorf("read response body: %w", err)
	}

	return replay.Response{
		Status:  resp.StatusCode,
		Body:    payload,
		Latency: latency,
	}, nil
}
