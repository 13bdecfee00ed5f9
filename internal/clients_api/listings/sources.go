package listings

import (
	"fmt"
	"time"
	"xrpl-listing-bot/internal/infra/config"
	"xrpl-listing-bot/internal/infra/log"

	"go.uber.org/zap"
)

// BuildSources creates one JSONSource per enabled source in cfg, in configured order
func BuildSources(cfg *config.Config) ([]Source, error) {
	opts := Options{
		Timeout:         cfg.RequestTimeout(),
		MaxResponseSize: cfg.App.MaxResponseSize,
		BreakerFailures: cfg.App.BreakerFailures,
		BreakerTimeout:  breakerOpenTimeout(cfg),
	}

	var out []Source
	for _, sc := range cfg.Sources {
		if !sc.IsEnabled() {
			log.LogInfo("Source disabled", zap.String("source", sc.Name))
			continue
		}
		src, err := NewJSONSource(sc, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to build source: %w", err)
		}
		log.LogDebug("Source configured",
			zap.String("source", src.Name()),
			zap.String("url", src.URL()))
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no enabled sources")
	}
	return out, nil
}

// breakerOpenTimeout keeps an open breaker shorter than one poll interval,
// so a tripped source gets its half-open trial on the next tick
func breakerOpenTimeout(cfg *config.Config) time.Duration {
	openFor := cfg.BreakerTimeout()
	if half := cfg.PollInterval() / 2; half > 0 && (openFor <= 0 || openFor > half) {
		openFor = half
	}
	return openFor
}
