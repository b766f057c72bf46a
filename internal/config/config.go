// Package config implements user/repository configuration (§A.3),
// loaded from a global file in the user's home directory and merged
// with a per-repository file that takes precedence, the way the
// teacher's config layer does it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the settings a ledger repository and its CLI consult.
type Config struct {
	User  UserConfig  `json:"user"`
	Core  CoreConfig  `json:"core"`
	Color ColorConfig `json:"color"`
}

// UserConfig holds the identity used as commit/merge author.
type UserConfig struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CoreConfig holds editor/pager preferences consulted by the CLI
// collaborator, never by the engine.
type CoreConfig struct {
	Editor string `json:"editor,omitempty"`
	Pager  string `json:"pager,omitempty"`
}

// ColorConfig controls whether the CLI collaborator colorizes output.
// The engine itself never colorizes or formats anything (§7).
type ColorConfig struct {
	UI     bool `json:"ui"`
	Status bool `json:"status"`
	Diff   bool `json:"diff"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		User: UserConfig{},
		Core: CoreConfig{
			Editor: os.Getenv("EDITOR"),
			Pager:  os.Getenv("PAGER"),
		},
		Color: ColorConfig{UI: true, Status: true, Diff: true},
	}
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: home directory: %w", err)
	}
	return filepath.Join(home, ".ledgerconfig"), nil
}

func repoConfigPath() string {
	return filepath.Join(".ledger", "config")
}

// LoadConfig loads configuration from the global file, then the
// repository file (which overrides it field by field).
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if globalPath, err := globalConfigPath(); err == nil {
		if data, err := os.ReadFile(globalPath); err == nil {
			var globalCfg Config
			if json.Unmarshal(data, &globalCfg) == nil {
				mergeConfig(cfg, &globalCfg)
			}
		}
	}

	if data, err := os.ReadFile(repoConfigPath()); err == nil {
		var repoCfg Config
		if json.Unmarshal(data, &repoCfg) == nil {
			mergeConfig(cfg, &repoCfg)
		}
	}

	return cfg, nil
}

// SaveGlobalConfig writes cfg to the user's home directory.
func SaveGlobalConfig(cfg *Config) error {
	globalPath, err := globalConfigPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(globalPath, data, 0644)
}

// SaveRepoConfig writes cfg to .ledger/config under the current working
// directory (it does not search upward for the repository root).
func SaveRepoConfig(cfg *Config) error {
	repoPath := repoConfigPath()
	if err := os.MkdirAll(filepath.Dir(repoPath), 0755); err != nil {
		return fmt.Errorf("config: create .ledger directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(repoPath, data, 0644)
}

// GetValue retrieves a configuration value by "section.field" key.
func GetValue(key string) (string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}
	switch section {
	case "user":
		switch field {
		case "name":
			return cfg.User.Name, nil
		case "email":
			return cfg.User.Email, nil
		}
	case "core":
		switch field {
		case "editor":
			return cfg.Core.Editor, nil
		case "pager":
			return cfg.Core.Pager, nil
		}
	case "color":
		switch field {
		case "ui":
			return fmt.Sprintf("%t", cfg.Color.UI), nil
		case "status":
			return fmt.Sprintf("%t", cfg.Color.Status), nil
		case "diff":
			return fmt.Sprintf("%t", cfg.Color.Diff), nil
		}
	}
	return "", fmt.Errorf("config: unknown key %s", key)
}

// SetValue sets a configuration value by "section.field" key, writing
// to the global file if global is true, otherwise the repo file.
func SetValue(key, value string, global bool) error {
	cfg := loadTarget(global)
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "user":
		switch field {
		case "name":
			cfg.User.Name = value
		case "email":
			cfg.User.Email = value
		default:
			return fmt.Errorf("config: unknown user field %s", field)
		}
	case "core":
		switch field {
		case "editor":
			cfg.Core.Editor = value
		case "pager":
			cfg.Core.Pager = value
		default:
			return fmt.Errorf("config: unknown core field %s", field)
		}
	case "color":
		switch field {
		case "ui":
			cfg.Color.UI = value == "true"
		case "status":
			cfg.Color.Status = value == "true"
		case "diff":
			cfg.Color.Diff = value == "true"
		default:
			return fmt.Errorf("config: unknown color field %s", field)
		}
	default:
		return fmt.Errorf("config: unknown section %s", section)
	}

	if global {
		return SaveGlobalConfig(cfg)
	}
	return SaveRepoConfig(cfg)
}

func loadTarget(global bool) *Config {
	path := repoConfigPath()
	if global {
		if p, err := globalConfigPath(); err == nil {
			path = p
		}
	}
	if data, err := os.ReadFile(path); err == nil {
		cfg := &Config{}
		if json.Unmarshal(data, cfg) == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

func splitKey(key string) (section, field string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("config: invalid key %q (expected section.field)", key)
	}
	return parts[0], parts[1], nil
}

// GetAuthor returns the configured identity as "Name <email>", used as
// the author/committer for new commits and merges.
func GetAuthor() (string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}
	if cfg.User.Name == "" || cfg.User.Email == "" {
		return "", fmt.Errorf("config: user.name and user.email are not set (ledger config user.name \"...\" / user.email \"...\")")
	}
	return fmt.Sprintf("%s <%s>", cfg.User.Name, cfg.User.Email), nil
}

func mergeConfig(dst, src *Config) {
	if src.User.Name != "" {
		dst.User.Name = src.User.Name
	}
	if src.User.Email != "" {
		dst.User.Email = src.User.Email
	}
	if src.Core.Editor != "" {
		dst.Core.Editor = src.Core.Editor
	}
	if src.Core.Pager != "" {
		dst.Core.Pager = src.Core.Pager
	}
	dst.Color.UI = src.Color.UI
	dst.Color.Status = src.Color.Status
	dst.Color.Diff = src.Color.Diff
}
