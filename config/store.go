package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// readFile is swapped in tests to interleave with Save.
var readFile = os.ReadFile

// Store holds the shared resource file and the values last read from or
// written to it.
type Store struct {
	path string

	mu      sync.RWMutex
	config  Config
	raw     map[string]any
	content []byte
}

// Open loads the resource at path, creating it with defaults if it does not
// exist yet.
func Open(path string) (*Store, error) {
	path, err := ResolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	s := &Store{path: path}

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", path).Msg("Config file does not exist, creating default")
		if err := s.Save(NewDefaultConfig()); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, raw, err := decode(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	s.config = cfg
	s.raw = raw
	s.content = content
	log.Info().Str("path", path).Msg("Config file loaded")
	return s, nil
}

// Path returns the absolute path of the resource file.
func (s *Store) Path() string {
	return s.path
}

// Config returns a copy of the current values.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Save validates cfg and writes it atomically.
func (s *Store) Save(cfg Config) error {
	cfg.validate()

	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := encode(cfg, s.raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	if err := writeAtomic(s.path, content); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	s.config = cfg
	s.content = content
	if s.raw != nil {
		_, raw, err := decode(content)
		if err == nil {
			s.raw = raw
		}
	}

	log.Info().Str("path", s.path).Msg("Config saved")
	return nil
}

// Update applies fn to a copy of the current values and saves the result.
func (s *Store) Update(fn func(*Config)) error {
	cfg := s.Config()
	fn(&cfg)
	return s.Save(cfg)
}

// Reload re-reads the file. changed is false when the content is identical
// to what was last read or written by this Store.
func (s *Store) Reload() (Config, bool, error) {
	// held across the read so a concurrent Save cannot land in between
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := readFile(s.path)
	if err != nil {
		return s.config, false, fmt.Errorf("failed to read config file %s: %w", s.path, err)
	}

	if bytes.Equal(content, s.content) {
		return s.config, false, nil
	}

	cfg, raw, err := decode(content)
	if err != nil {
		return s.config, false, fmt.Errorf("failed to parse config file %s: %w", s.path, err)
	}

	s.config = cfg
	s.raw = raw
	s.content = content
	return cfg, true, nil
}

func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
