package fs

// JSON file backed store for seen tokens
// The whole document is rewritten on every append through a temp file + rename

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"xrpl-listing-bot/internal/features/detector"
	logging "xrpl-listing-bot/internal/infra/log"

	"go.uber.org/zap"
)

type seenTokensData struct {
	Tokens []detector.SeenToken `json:"tokens"`
}

type SeenTokensFile struct {
	path string

	mu      sync.Mutex
	records []detector.SeenToken
	keys    map[string]bool
	loaded  bool
	dirty   bool // last write failed, file is behind records
}

func NewSeenTokensFile(path string) *SeenTokensFile {
	return &SeenTokensFile{path: path, keys: make(map[string]bool)}
}

func (s *SeenTokensFile) Path() string { return s.path }

// LoadAll reads the file; a missing or empty file is an empty store
func (s *SeenTokensFile) LoadAll(ctx context.Context) ([]detector.SeenToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	out := make([]detector.SeenToken, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *SeenTokensFile) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		logging.LogDebug("Seen tokens file does not exist, starting empty", zap.String("file", s.path))
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read seen tokens file: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "{}" {
		s.loaded = true
		return nil
	}

	var doc seenTokensData
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse seen tokens JSON: %w", err)
	}
	for _, r := range doc.Tokens {
		key := r.Source + "\x00" + r.TokenID
		if s.keys[key] {
			continue
		}
		s.keys[key] = true
		s.records = append(s.records, r)
	}
	s.loaded = true

	logging.LogDebug("Loaded seen tokens from file",
		zap.String("file", s.path),
		zap.Int("count", len(s.records)))
	return nil
}

func (s *SeenTokensFile) Append(ctx context.Context, records []detector.SeenToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}

	added := 0
	for _, r := range records {
		key := r.Source + "\x00" + r.TokenID
		if s.keys[key] {
			continue
		}
		s.keys[key] = true
		s.records = append(s.records, r)
		added++
	}
	if added == 0 && !s.dirty {
		return nil
	}
	if err := s.writeLocked(); err != nil {
		s.dirty = true
		return err
	}
	s.dirty = false
	return nil
}

func (s *SeenTokensFile) writeLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(seenTokensData{Tokens: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal seen tokens JSON: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary seen tokens file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temporary file to seen tokens file: %w", err)
	}

	logging.LogDebug("Saved seen tokens to file",
		zap.String("file", s.path),
		zap.Int("count", len(s.records)))
	return nil
}

func (s *SeenTokensFile) Close() error { return nil }
