package bots_monitor

// Keep-alive: GET our own public URL on a fixed interval so free hosting does not idle the process

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"xrpl-listing-bot/internal/infra/log"

	"go.uber.org/zap"
)

const keepaliveTimeout = 10 * time.Second

// RunKeepaliveMonitor pings url every interval until ctx is done. Failures are only logged.
func RunKeepaliveMonitor(ctx context.Context, url string, interval time.Duration) {
	if url == "" {
		log.LogDebug("Keep-alive URL is empty, keep-alive monitor not started")
		return
	}
	if interval <= 0 {
		log.LogWarn("Keep-alive interval is not positive, keep-alive monitor not started", zap.Duration("interval", interval))
		return
	}

	log.LogInfo("Starting Keep-alive Monitor...", zap.String("url", url), zap.Duration("interval", interval))

	client := &http.Client{Timeout: keepaliveTimeout}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.LogInfo("Keep-alive Monitor stopped")
			return
		case <-ticker.C:
			if err := ping(ctx, client, url); err != nil {
				log.LogWarn("Keep-alive ping failed", zap.String("url", url), zap.Error(err))
			}
		}
	}
}

func ping(ctx context.Context, client *http.Client, url string) error {
	requestID := log.GenerateRequestID()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	log.LogRequest(requestID, req.Method, url)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("source", "keepalive"))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
