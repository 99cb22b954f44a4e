package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfig represents ~/.bctb/config.yaml: per-user defaults applied when
// neither a flag nor a BCTB_* variable sets the value. Workspace profiles
// (tenants, endpoints, auth flows) live in the workspace document instead.
type UserConfig struct {
	Workspace string `yaml:"workspace,omitempty"`
	Profile   string `yaml:"profile,omitempty"`
	Output    string `yaml:"output,omitempty"`
	LogLevel  string `yaml:"log-level,omitempty"`
	LogFormat string `yaml:"log-format,omitempty"`
}

// ConfigDir returns the path to ~/.bctb/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bctb")
}

// ConfigPath returns the path to ~/.bctb/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads ~/.bctb/config.yaml.
func LoadUserConfig() (*UserConfig, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// SaveUserConfig writes ~/.bctb/config.yaml.
func SaveUserConfig(cfg *UserConfig) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
