package matchcache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Gobusters/ectologger"
)

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStore keeps one JSON file per namespace under Dir. A missing or
// corrupt file loads as an empty mapping; runs must never fail because a
// cache file rotted on disk.
type FileStore struct {
	dir    string
	logger ectologger.Logger
}

func NewFileStore(dir string, logger ectologger.Logger) *FileStore {
	return &FileStore{
		dir:    dir,
		logger: logger,
	}
}

func (s *FileStore) path(namespace string) string {
	name := unsafePathChars.ReplaceAllString(namespace, "_")
	return filepath.Join(s.dir, "best_match_"+name+".json")
}

func (s *FileStore) Load(ctx context.Context, namespace string) (map[string]string, error) {
	path := s.path(namespace)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithContext(ctx).WithError(err).WithField("path", path).Warn("Failed to read cache file, starting empty")
		}
		return map[string]string{}, nil
	}

	mapping := map[string]string{}
	if err := json.Unmarshal(data, &mapping); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("path", path).Warn("Cache file is corrupt, starting empty")
		return map[string]string{}, nil
	}
	return mapping, nil
}

func (s *FileStore) Save(ctx context.Context, namespace string, mapping map[string]string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path(namespace), data, 0o644)
}
