package bots_monitor

// Listing monitor: the single polling loop of the bot
// Every tick each source is fetched in turn, new tokens are recorded and then alerted
// A failing source is logged and skipped until the next tick; it never affects other sources

import (
	"context"
	"sync"
	"time"
	"xrpl-listing-bot/internal/clients_api/listings"
	"xrpl-listing-bot/internal/features/detector"
	"xrpl-listing-bot/internal/infra/log"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers new token alerts
type Notifier interface {
	NotifyNewToken(ctx context.Context, sourceTitle string, tok listings.Token) error
}

// SourceStatus is what /status shows for one source
type SourceStatus struct {
	Name        string
	Title       string
	LastPoll    time.Time
	LastError   string
	LastFetched int
	LastNew     int
	TotalAlerts int
	Seen        int
}

// CycleReport summarises one RunOnce
type CycleReport struct {
	CycleID string
	Sources int
	Failed  int
	New     int
	Alerts  int
}

type ListingMonitor struct {
	sources  []listings.Source
	detector *detector.Detector
	notifier Notifier // nil records without alerting
	interval time.Duration

	mu      sync.RWMutex
	status  map[string]*SourceStatus
	started time.Time
	cycles  int
}

func NewListingMonitor(sources []listings.Source, det *detector.Detector, notifier Notifier, interval time.Duration) *ListingMonitor {
	status := make(map[string]*SourceStatus, len(sources))
	for _, src := range sources {
		status[src.Name()] = &SourceStatus{Name: src.Name(), Title: src.Title()}
	}
	return &ListingMonitor{
		sources:  sources,
		detector: det,
		notifier: notifier,
		interval: interval,
		status:   status,
		started:  time.Now(),
	}
}

// Run polls immediately and then on every tick until ctx is done
func (m *ListingMonitor) Run(ctx context.Context) {
	names := make([]string, 0, len(m.sources))
	for _, src := range m.sources {
		names = append(names, src.Name())
	}
	log.LogInfo("Starting Listing Monitor...",
		zap.Strings("sources", names),
		zap.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.LogInfo("Listing Monitor stopped")
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce polls every source once, in configured order
func (m *ListingMonitor) RunOnce(ctx context.Context) CycleReport {
	report := CycleReport{CycleID: uuid.NewString(), Sources: len(m.sources)}
	start := time.Now()

	for _, src := range m.sources {
		if ctx.Err() != nil {
			break
		}
		newCount, alerts, ok := m.pollSource(ctx, report.CycleID, src)
		if !ok {
			report.Failed++
			continue
		}
		report.New += newCount
		report.Alerts += alerts
	}

	m.mu.Lock()
	m.cycles++
	m.mu.Unlock()

	log.LogDebug("Poll cycle finished",
		zap.String("cycle_id", report.CycleID),
		zap.Int("sources", report.Sources),
		zap.Int("failed", report.Failed),
		zap.Int("new", report.New),
		zap.Int("alerts", report.Alerts),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return report
}

func (m *ListingMonitor) pollSource(ctx context.Context, cycleID string, src listings.Source) (newCount, alerts int, ok bool) {
	name := src.Name()

	tokens, err := src.Fetch(ctx)
	if err != nil {
		log.LogWarn("Source unreachable this cycle",
			zap.String("cycle_id", cycleID),
			zap.String("source", name),
			zap.Error(err))
		m.updateStatus(name, func(s *SourceStatus) {
			s.LastPoll = time.Now()
			s.LastError = err.Error()
		})
		return 0, 0, false
	}

	res, err := m.detector.Observe(ctx, name, tokens)
	if err != nil {
		// records are already in memory, alerting goes on
		log.LogError("Failed to persist seen tokens", zap.String("source", name), zap.Error(err))
	}
	if res.Seeded {
		log.LogInfo("Recorded baseline listing without alerts",
			zap.String("source", name),
			zap.Int("tokens", len(res.Records)))
	}

	for _, tok := range res.New {
		log.LogInfo("New token listed",
			zap.String("cycle_id", cycleID),
			zap.String("source", name),
			zap.String("tokenID", tok.ID),
			zap.String("name", tok.DisplayName()))

		if m.notifier == nil {
			continue
		}
		if err := m.notifier.NotifyNewToken(ctx, src.Title(), tok); err != nil {
			log.LogError("Failed to send token alert",
				zap.String("source", name),
				zap.String("tokenID", tok.ID),
				zap.Error(err))
			continue
		}
		alerts++
	}

	if len(res.New) > 0 {
		log.LogSuccess("New tokens found",
			zap.String("source", name),
			zap.Int("count", len(res.New)),
			zap.Int("alerted", alerts))
	}

	m.updateStatus(name, func(s *SourceStatus) {
		s.LastPoll = time.Now()
		s.LastError = ""
		s.LastFetched = len(tokens)
		s.LastNew = len(res.New)
		s.TotalAlerts += alerts
	})
	return len(res.New), alerts, true
}

func (m *ListingMonitor) updateStatus(name string, fn func(s *SourceStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.status[name]
	if !ok {
		s = &SourceStatus{Name: name, Title: name}
		m.status[name] = s
	}
	fn(s)
}

// Status returns a snapshot in source order with current seen counts
func (m *ListingMonitor) Status() []SourceStatus {
	counts := m.detector.Counts()

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SourceStatus, 0, len(m.sources))
	for _, src := range m.sources {
		s := *m.status[src.Name()]
		s.Seen = counts[src.Name()]
		out = append(out, s)
	}
	return out
}

func (m *ListingMonitor) Uptime() time.Duration {
	return time.Since(m.started)
}

func (m *ListingMonitor) Cycles() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cycles
}
