package emulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"aquaponics_monitor/internal/models"
)

// ConfigStore persists the emulator configuration as a JSON file.
type ConfigStore struct {
	mu   sync.Mutex
	path string
}

func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Load reads the file, returning DefaultConfig when it does not exist.
func (s *ConfigStore) Load() (models.EmulatorConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return models.EmulatorConfig{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	var cfg models.EmulatorConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return models.EmulatorConfig{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return normalize(cfg), nil
}

// Save writes cfg atomically (temp file + rename).
func (s *ConfigStore) Save(cfg models.EmulatorConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode emulator config: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".emulator_config-*.json")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write emulator config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close emulator config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
