package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// SettingsFile persists user preferences as settings.yaml in the session dir.
type SettingsFile struct {
	Path string
	mu   sync.Mutex
}

// NewSettingsFile stores settings inside dir.
func NewSettingsFile(dir string) *SettingsFile {
	return &SettingsFile{Path: filepath.Join(dir, "settings.yaml")}
}

// Load returns the stored settings, or the defaults when none are saved.
func (f *SettingsFile) Load() (models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := models.DefaultSettings()
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return models.DefaultSettings(), fmt.Errorf("failed to parse settings %s: %w", f.Path, err)
	}
	return s, nil
}

// Save validates and writes s.
func (f *SettingsFile) Save(s models.Settings) error {
	if s.APIEndpoint != "" {
		if err := validateBaseURL(s.APIEndpoint); err != nil {
			return fmt.Errorf("api_endpoint: %w", err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
