package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/calgore/snapaudit/pkg/utils"
)

// Dataset tags distinguish the cached payloads sharing one window key.
const (
	DatasetEvents    = "events"
	DatasetVolumes   = "volumes"
	DatasetInstances = "instances"
)

// Store is a flat-file read-through cache. Entries never expire: a present
// entry is always considered valid and is used without staleness checks.
// Concurrent separate runs sharing the same directory can race on writes;
// a single run never writes the same key twice.
type Store struct {
	dir      string
	disabled bool
	log      log15.Logger
}

// NewStore returns a Store rooted at dir. When disabled, Get always misses
// but Put still writes, so a forced refresh repopulates the cache.
func NewStore(dir string, disabled bool, logger log15.Logger) *Store {
	return &Store{
		dir:      dir,
		disabled: disabled,
		log:      logger,
	}
}

// Key derives the deterministic cache key for an audit window. An open-ended
// window contributes the literal "now", so repeated open-window runs share
// their cache entries.
func Key(start time.Time, end *time.Time, region string) string {
	endPart := "now"
	if end != nil {
		endPart = end.Format(utils.DateLayout)
	}
	return fmt.Sprintf("%s_%s_%s", start.Format(utils.DateLayout), endPart, region)
}

// Get returns the cached content for (key, dataset), or a miss.
func (s *Store) Get(key, dataset string) ([]byte, bool) {
	if s.disabled {
		return nil, false
	}
	content, err := os.ReadFile(s.path(key, dataset))
	if err != nil {
		s.log.Debug("cache miss", "key", key, "dataset", dataset)
		return nil, false
	}
	s.log.Debug("cache hit", "key", key, "dataset", dataset, "bytes", len(content))
	return content, true
}

// Put durably writes the content for (key, dataset).
func (s *Store) Put(key, dataset string, content []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("error creating cache directory %s: %w", s.dir, err)
	}
	path := s.path(key, dataset)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("error writing cache entry %s: %w", path, err)
	}
	s.log.Debug("cache write", "key", key, "dataset", dataset, "bytes", len(content))
	return nil
}

// GetJSON decodes a cached JSON entry into v. Returns false on miss; a
// present-but-corrupt entry is an error, not a silent miss, so a damaged
// cache surfaces instead of masquerading as fresh data.
func (s *Store) GetJSON(key, dataset string, v interface{}) (bool, error) {
	content, ok := s.Get(key, dataset)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(content, v); err != nil {
		return false, fmt.Errorf("error decoding cache entry %s_%s: %w", key, dataset, err)
	}
	return true, nil
}

// PutJSON encodes v as indented JSON and writes it under (key, dataset).
func (s *Store) PutJSON(key, dataset string, v interface{}) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding cache entry %s_%s: %w", key, dataset, err)
	}
	return s.Put(key, dataset, content)
}

// ReportPath returns where the rendered report for key is written. The
// report lives alongside the cache entries under the same key prefix.
func (s *Store) ReportPath(key string) string {
	return filepath.Join(s.dir, key+"_report.txt")
}

// WriteReport persists the rendered report next to the cache entries.
func (s *Store) WriteReport(key string, content []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("error creating cache directory %s: %w", s.dir, err)
	}
	path := s.ReportPath(key)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("error writing report %s: %w", path, err)
	}
	return nil
}

func (s *Store) path(key, dataset string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", key, dataset))
}
