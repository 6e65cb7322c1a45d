// Package config loads service configuration from an optional YAML file and
// PLANFORGE_-prefixed environment variables, with env taking precedence.
// Env vars use double underscores between nesting levels, e.g.
// PLANFORGE_SERVER__PORT and PLANFORGE_GENERATOR__API_KEY.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Generator GeneratorConfig `koanf:"generator"`
	Adapters  AdaptersConfig  `koanf:"adapters"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// GeneratorConfig configures the AI spec generator boundary.
type GeneratorConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// AdaptersConfig carries the per-destination settings that are not derived
// from canonical specs.
type AdaptersConfig struct {
	Tealium TealiumConfig `koanf:"tealium"`
	Adobe   AdobeConfig   `koanf:"adobe"`
}

type TealiumConfig struct {
	Account string `koanf:"account"`
	Profile string `koanf:"profile"`
}

type AdobeConfig struct {
	OrgID string `koanf:"org_id"`
}

// Load reads configuration from path (ignored when the file does not exist)
// and the environment, then applies defaults for anything unset.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// Double underscore delimits nesting so leaf keys may contain single
	// underscores: PLANFORGE_GENERATOR__API_KEY -> generator.api_key.
	if err := k.Load(env.Provider("PLANFORGE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "PLANFORGE_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	if !k.Exists("server.port") {
		k.Set("server.port", 8078)
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "memory")
	}
	if !k.Exists("storage.sqlite.path") {
		k.Set("storage.sqlite.path", "./data/planforge.db")
	}
	if !k.Exists("generator.model") {
		k.Set("generator.model", "gpt-4o")
	}
}
