package listings

// JSONSource polls a listing site that answers with a JSON array of tokens
// Field names and the location of the array are configurable per site
// Each source has its own circuit breaker so a dead site is fast-failed between cool-downs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"xrpl-listing-bot/internal/infra/config"
	"xrpl-listing-bot/internal/infra/log"
	"xrpl-listing-bot/internal/xrpl"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// keys tried, in order, when list_path is empty and the body is an object
var autoListKeys = []string{"tokens", "data", "items", "results"}

type JSONSource struct {
	cfg             config.SourceConfig
	client          *http.Client
	breaker         *gobreaker.CircuitBreaker
	maxResponseSize int64
}

type Options struct {
	Timeout         time.Duration
	MaxResponseSize int64
	BreakerFailures int
	BreakerTimeout  time.Duration
	HTTPClient      *http.Client // optional, tests inject httptest clients
}

func NewJSONSource(sc config.SourceConfig, opts Options) (*JSONSource, error) {
	sc = resolve(sc)
	if sc.Name == "" {
		return nil, fmt.Errorf("source name is required")
	}
	if sc.URL == "" {
		return nil, fmt.Errorf("source %s: url is required (no preset %q)", sc.Name, sc.Preset)
	}
	if sc.IDField == "" && (sc.CurrencyField == "" || sc.IssuerField == "") {
		return nil, fmt.Errorf("source %s: id_field or both currency_field and issuer_field are required", sc.Name)
	}
	if sc.Title == "" {
		sc.Title = sc.Name
	}

	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(opts.Timeout)
	}

	failures := opts.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	openFor := opts.BreakerTimeout
	if openFor <= 0 {
		openFor = 5 * time.Minute
	}

	name := sc.Name
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		OnStateChange: func(n string, from, to gobreaker.State) {
			log.LogWarn("Source circuit breaker state changed",
				zap.String("source", n),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &JSONSource{
		cfg:             sc,
		client:          client,
		breaker:         breaker,
		maxResponseSize: opts.MaxResponseSize,
	}, nil
}

func (s *JSONSource) Name() string  { return s.cfg.Name }
func (s *JSONSource) Title() string { return s.cfg.Title }
func (s *JSONSource) URL() string   { return s.cfg.URL }

// Fetch returns the site's current listing
func (s *JSONSource) Fetch(ctx context.Context) ([]Token, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		body, err := doGET(ctx, s.client, s.cfg.Name, s.cfg.URL, s.maxResponseSize)
		if err != nil {
			return nil, err
		}
		return s.parse(body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: skipped, circuit open: %w", s.cfg.Name, err)
		}
		return nil, fmt.Errorf("%s: %w", s.cfg.Name, err)
	}
	return res.([]Token), nil
}

func (s *JSONSource) parse(body []byte) ([]Token, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	items, err := findList(root, s.cfg.ListPath)
	if err != nil {
		return nil, err
	}

	tokens := make([]Token, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			log.LogDebug("Skipping non-object listing entry", zap.String("source", s.cfg.Name), zap.Int("index", i))
			continue
		}
		tok := s.toToken(obj)
		if tok.ID == "" {
			log.LogDebug("Skipping listing entry without identifier", zap.String("source", s.cfg.Name), zap.Int("index", i))
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func (s *JSONSource) toToken(obj map[string]interface{}) Token {
	tok := Token{
		Source:      s.cfg.Name,
		Currency:    xrpl.NormalizeCurrency(stringField(obj, s.cfg.CurrencyField)),
		Issuer:      strings.TrimSpace(stringField(obj, s.cfg.IssuerField)),
		Name:        strings.TrimSpace(stringField(obj, s.cfg.NameField)),
		Description: strings.TrimSpace(stringField(obj, s.cfg.DescriptionField)),
	}
	if s.cfg.CreatedField != "" {
		if v, ok := lookup(obj, s.cfg.CreatedField); ok {
			tok.CreatedAt = parseTime(v)
		}
	}

	switch {
	case tok.Currency != "" && tok.Issuer != "":
		tok.ID = xrpl.TokenID(tok.Currency, tok.Issuer)
	case s.cfg.IDField != "":
		tok.ID = strings.TrimSpace(stringField(obj, s.cfg.IDField))
	}

	if s.cfg.LinkTemplate != "" && tok.ID != "" {
		tok.URL = strings.NewReplacer(
			"{id}", tok.ID,
			"{currency}", tok.Currency,
			"{issuer}", tok.Issuer,
		).Replace(s.cfg.LinkTemplate)
	}
	return tok
}

func findList(root interface{}, path string) ([]interface{}, error) {
	if path != "" {
		v, ok := lookupPath(root, path)
		if !ok {
			return nil, fmt.Errorf("list path %q not found", path)
		}
		list, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("list path %q is not an array", path)
		}
		return list, nil
	}

	switch r := root.(type) {
	case []interface{}:
		return r, nil
	case map[string]interface{}:
		for _, key := range autoListKeys {
			if list, ok := r[key].([]interface{}); ok {
				return list, nil
			}
		}
	}
	return nil, fmt.Errorf("no token array found in response")
}

func lookup(obj map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	return lookupPath(obj, path)
}

// lookupPath walks a dot separated path through nested objects
func lookupPath(v interface{}, path string) (interface{}, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func stringField(obj map[string]interface{}, path string) string {
	v, ok := lookup(obj, path)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// parseTime accepts RFC3339 strings and unix timestamps in seconds or milliseconds
func parseTime(v interface{}) time.Time {
	var raw string
	switch t := v.(type) {
	case string:
		raw = strings.TrimSpace(t)
	case json.Number:
		raw = t.String()
	default:
		return time.Time{}
	}
	if raw == "" {
		return time.Time{}
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
