package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrFetchFailed covers every way the upstream fetch can go wrong: transport
// errors, TLS failures, timeouts, and non-200 responses. The upstream gives
// no stable signal to tell a missing channel from a private one or a network
// fault, so the kinds are deliberately not distinguished. The cause is still
// wrapped for logging.
var ErrFetchFailed = errors.New("channel fetch failed")

type Fetcher struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

// NewFetcher builds a fetcher with its own HTTP client. TLS verification is
// the client default and is never disabled. Callers construct one fetcher per
// request; nothing here is shared across requests.
func NewFetcher(baseURL, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Run issues a single GET for the channel's public preview page. No retries.
func (f *Fetcher) Run(ctx context.Context, handle string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/s/%s", f.baseURL, handle)
	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	return data, nil
}
