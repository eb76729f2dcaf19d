package state

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the operator's persisted runtime configuration.
type Config struct {
	ExportFolder string `json:"export_folder,omitempty"`
}

// ConfigStore reads and writes the config file. The file is plain JSON so
// earlier installations and hand edits keep working.
type ConfigStore struct {
	path string
}

// NewConfigStore creates a store backed by the file at path.
func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Load reads the config. A missing file is not an error; it yields the zero
// config.
func (s *ConfigStore) Load() (Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config.
func (s *ConfigStore) Save(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
