package listings

// HTTP transport for listing sources
// One GET per poll, no retries: a failed source is simply tried again next tick
// Browser-like headers because most listing sites sit behind Cloudflare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"xrpl-listing-bot/internal/infra/log"
	"xrpl-listing-bot/internal/infra/retry"

	"go.uber.org/zap"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultMaxResponseSize = 10 * 1024 * 1024
)

// ErrResponseTooLarge is returned when a body exceeds the configured cap
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			MaxIdleConns:      10,
			IdleConnTimeout:   90 * time.Second,
			DisableKeepAlives: false,
		},
	}
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

func doGET(ctx context.Context, client *http.Client, source, url string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = defaultMaxResponseSize
	}
	requestID := log.GenerateRequestID()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)
	log.LogRequest(requestID, req.Method, url, zap.String("source", source))

	resp, err := client.Do(req)
	if err != nil {
		log.LogResponse(requestID, 0, time.Since(start).Milliseconds(), zap.String("source", source), zap.Error(err))
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("source", source), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("source", source))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       body,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if int64(len(body)) > maxSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, maxSize)
	}
	return body, nil
}
