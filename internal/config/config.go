// Package config loads the sync engine's top-level configuration: the
// warehouse service-account path, the sink connection string, the state
// store backend, and the admin surface's bearer secret. Grounded on the
// teacher's config.go (env-substituting YAML/JSON loader, same shape).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Warehouse  WarehouseConfig  `json:"warehouse" yaml:"warehouse"`
	Sink       SinkConfig       `json:"sink" yaml:"sink"`
	StateStore StateStoreConfig `json:"state_store" yaml:"state_store"`
	RunLog     RunLogConfig     `json:"run_log" yaml:"run_log"`
	Admin      AdminConfig      `json:"admin" yaml:"admin"`
	Engine     EngineConfig     `json:"engine" yaml:"engine"`
}

// WarehouseConfig locates the service-account credential the Source Client
// signs JWTs with (spec §4.1 Authentication).
type WarehouseConfig struct {
	ServiceAccountPath string `json:"service_account_path" yaml:"service_account_path"`
	DefaultProject     string `json:"default_project" yaml:"default_project"`
}

// SinkConfig is the relational sink's connection string (spec §4.2).
type SinkConfig struct {
	ConnString string `json:"conn_string" yaml:"conn_string"`
}

// StateStoreConfig selects the KV backend (spec §4.6), shared by the run
// state store, the job store, and the run logger.
type StateStoreConfig struct {
	Type     string `json:"type" yaml:"type"` // sqlite, redis
	Path     string `json:"path" yaml:"path"`
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

// RunLogConfig holds Run Logger TTL settings (spec §4.5). No component
// reads it: pkg/runlog always uses its EntryTTL and IndexTTL constants.
type RunLogConfig struct {
	EntryTTL time.Duration `json:"entry_ttl" yaml:"entry_ttl"`
	IndexTTL time.Duration `json:"index_ttl" yaml:"index_ttl"`
}

// AdminConfig guards every admin-surface route but login with a bearer
// token equal to BearerSecret (spec §6).
type AdminConfig struct {
	BearerSecret string `json:"bearer_secret" yaml:"bearer_secret"`
}

// EngineConfig holds batch-sizing settings. No component reads it:
// internal/syncengine always uses its FetchPageLimit and UpsertSubBatchSize
// constants.
type EngineConfig struct {
	FetchPageLimit     int `json:"fetch_page_limit" yaml:"fetch_page_limit"`
	UpsertSubBatchSize int `json:"upsert_sub_batch_size" yaml:"upsert_sub_batch_size"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	content := SubstituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		// Try JSON if YAML fails
		if err := json.Unmarshal([]byte(content), &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file (tried YAML and JSON): %w", err)
		}
	}

	return &cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var envRegex = regexp.MustCompile(`\${(\w+)(?::-([^}]*))?}`)

func SubstituteEnvVars(input string) string {
	return envRegex.ReplaceAllStringFunc(input, func(m string) string {
		matches := envRegex.FindStringSubmatch(m)
		if len(matches) < 2 {
			return m
		}
		envVar := matches[1]
		if val, ok := os.LookupEnv(envVar); ok {
			return val
		}
		if len(matches) > 2 && strings.Contains(m, ":-") {
			return matches[2]
		}
		return m
	})
}
