package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads the configuration at path (relative paths resolve against AppDir)
// and merges it onto Default field by field. A missing file yields pure defaults.
// Fields the schema no longer knows, such as the legacy login.operator_index,
// are dropped here and therefore never written back by Save.
func Load(path string) (Config, error) {
	path = ResolvePath(path)
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding onto the populated defaults keeps every key the file omits.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to decode config file: %w", err)
	}
	if cfg.Daemon.Engine == "" {
		cfg.Daemon.Engine = Default().Daemon.Engine
	}
	return cfg, nil
}

// Save writes cfg as indented UTF-8 JSON, atomically (temp file + rename).
func Save(cfg Config, path string) error {
	path = ResolvePath(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpPath := tmp.Name()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
