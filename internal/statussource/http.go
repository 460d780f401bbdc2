package statussource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notifyhub/queue-watch/internal/domain"
)

const (
	defaultUserAgent = "queue-watch/1.0"
	// maxBodyBytes bounds how much of a status response is read.
	maxBodyBytes = 64 << 10
)

// HTTPSource polls GET {baseURL}/queue/{id}/status on the queue backend.
// The base URL is injected from config so tests can point to a local server.
type HTTPSource struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
}

func NewHTTPSource(baseURL string, timeout time.Duration) (*HTTPSource, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse status source url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("status source url %q must be absolute", baseURL)
	}
	return &HTTPSource{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// StatusURL returns the endpoint polled for id.
func (s *HTTPSource) StatusURL(id domain.QueueID) string {
	u := *s.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/queue/" + string(id) + "/status"
	u.RawPath = ""
	return u.String()
}

// FetchStatus performs one poll. Any non-2xx answer, transport failure or
// undecodable body is returned as an error wrapping ErrStatusUnavailable or
// ErrMalformedStatus; callers treat both as "no data this tick".
func (s *HTTPSource) FetchStatus(ctx context.Context, id domain.QueueID) (*domain.StatusSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.StatusURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStatusUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: status endpoint returned %d", domain.ErrStatusUnavailable, resp.StatusCode)
	}

	var snap domain.StatusSnapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedStatus, err)
	}
	if snap.QueueID == "" {
		snap.QueueID = id
	}
	return &snap, nil
}

// compile-time check that HTTPSource implements Source
var _ Source = (*HTTPSource)(nil)
