package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// NewClient creates an HTTP client tuned for sustained replay traffic:
// generous idle pools so the paced loop reuses connections instead of
// re-dialing. A timeout of 0 leaves individual requests unbounded; the
// run-end drain is then the only thing that stops a slow request.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// BaseURL builds the target base URL from host and port.
func BaseURL(host string, port int) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("host is required")
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("port must be in 1..65535, got %d", port)
	}
	if strings.Contains(host, "://") {
		return "", fmt.Errorf("host must not include a scheme: %q", host)
	}
	return fmt.Sprintf("http://%s:%d", host, port), nil
}
