// Package detector tells newly listed tokens from ones already seen.
//
// For every source it keeps the set of token identifiers recorded so far.
// Observe computes the difference between a fresh listing and that set, reports
// each element once, and unions it into the set before returning. A token is
// therefore reported at most once per source for the lifetime of the process,
// or of the backing Store when one persists records.
package detector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
	"xrpl-listing-bot/internal/clients_api/listings"
)

// SeenToken is created on first observation and never changed afterwards
type SeenToken struct {
	Source    string    `json:"source" yaml:"source"`
	TokenID   string    `json:"tokenId" yaml:"token_id"`
	FirstSeen time.Time `json:"firstSeen" yaml:"first_seen"`
}

// Store persists SeenToken records across restarts
type Store interface {
	LoadAll(ctx context.Context) ([]SeenToken, error)
	// Append must ignore records whose (source, token id) already exists
	Append(ctx context.Context, records []SeenToken) error
	Close() error
}

// Result of one Observe call
type Result struct {
	New     []listings.Token // tokens to alert on, in listing order
	Records []SeenToken      // records added to the seen set
	Seeded  bool             // records were added silently (first poll baseline)
}

type Option func(*Detector)

// WithSeedOnFirstPoll records the first non-empty listing of a source with an
// empty seen set without alerting on it.
func WithSeedOnFirstPoll(enabled bool) Option {
	return func(d *Detector) { d.seedOnFirstPoll = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

type Detector struct {
	mu     sync.RWMutex
	seen   map[string]map[string]time.Time
	seeded map[string]bool

	store           Store
	seedOnFirstPoll bool
	now             func() time.Time
}

// New hydrates a detector from store. A nil store keeps records in memory only.
func New(ctx context.Context, store Store, opts ...Option) (*Detector, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	d := &Detector{
		seen:   make(map[string]map[string]time.Time),
		seeded: make(map[string]bool),
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	records, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen tokens: %w", err)
	}
	for _, r := range records {
		set := d.sourceSet(r.Source)
		if _, ok := set[r.TokenID]; !ok {
			set[r.TokenID] = r.FirstSeen
		}
	}
	return d, nil
}

func (d *Detector) sourceSet(source string) map[string]time.Time {
	set, ok := d.seen[source]
	if !ok {
		set = make(map[string]time.Time)
		d.seen[source] = set
	}
	return set
}

// Observe records the tokens of one successful fetch of source and returns those not seen before.
//
// The in-memory set is updated before the store is written, so a store error
// never causes a re-alert; it is returned alongside the (valid) Result.
func (d *Detector) Observe(ctx context.Context, source string, tokens []listings.Token) (Result, error) {
	now := d.now().UTC()

	d.mu.Lock()
	set := d.sourceSet(source)
	seed := d.seedOnFirstPoll && !d.seeded[source] && len(set) == 0

	var res Result
	for _, tok := range tokens {
		if tok.ID == "" {
			continue
		}
		if _, ok := set[tok.ID]; ok {
			continue
		}
		set[tok.ID] = now
		res.Records = append(res.Records, SeenToken{Source: source, TokenID: tok.ID, FirstSeen: now})
		if !seed {
			res.New = append(res.New, tok)
		}
	}
	if len(tokens) > 0 {
		d.seeded[source] = true
	}
	res.Seeded = seed && len(res.Records) > 0
	d.mu.Unlock()

	if len(res.Records) == 0 {
		return res, nil
	}
	if err := d.store.Append(ctx, res.Records); err != nil {
		return res, fmt.Errorf("failed to persist %d seen tokens for %s: %w", len(res.Records), source, err)
	}
	return res, nil
}

// Seen reports whether tokenID is recorded for source
func (d *Detector) Seen(source, tokenID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.seen[source][tokenID]
	return ok
}

// Pending returns the tokens Observe would report, without recording anything
func (d *Detector) Pending(source string, tokens []listings.Token) []listings.Token {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set := d.seen[source]
	batch := make(map[string]bool)
	var out []listings.Token
	for _, tok := range tokens {
		if tok.ID == "" || batch[tok.ID] {
			continue
		}
		if _, ok := set[tok.ID]; ok {
			continue
		}
		batch[tok.ID] = true
		out = append(out, tok)
	}
	return out
}

// Counts returns the number of recorded identifiers per source
func (d *Detector) Counts() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int, len(d.seen))
	for src, set := range d.seen {
		out[src] = len(set)
	}
	return out
}

// Records returns every recorded token sorted by source then first-seen time
func (d *Detector) Records() []SeenToken {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []SeenToken
	for src, set := range d.seen {
		for id, at := range set {
			out = append(out, SeenToken{Source: src, TokenID: id, FirstSeen: at})
		}
	}
	sortRecords(out)
	return out
}

func (d *Detector) Close() error {
	return d.store.Close()
}

func sortRecords(records []SeenToken) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if !a.FirstSeen.Equal(b.FirstSeen) {
			return a.FirstSeen.Before(b.FirstSeen)
		}
		return a.TokenID < b.TokenID
	})
}
