/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the operator configuration.
//
// Sources are merged with koanf in increasing priority: defaults, an optional
// YAML file, environment variables and finally command-line flags that were
// explicitly set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "BITWARDEN_SECRETS_OPERATOR_"

// DefaultLeaseNamespace holds the lease when no namespace is configured.
const DefaultLeaseNamespace = "default"

// Configuration keys.
const (
	KeyFolder                  = "folder"
	KeyReconcileInterval       = "reconcile_interval"
	KeyCacheRefreshInterval    = "cache_refresh_interval"
	KeyMetricsPort             = "metrics_port"
	KeyCRD                     = "crd"
	KeyCRDOutput               = "crd_output"
	KeyNamespace               = "namespace"
	KeyLeaseNamespace          = "lease_namespace"
	KeyLeaseName               = "lease_name"
	KeyBWBinary                = "bw_binary"
	KeyPasswordEnv             = "password_env"
	KeyMaxConcurrentReconciles = "max_concurrent_reconciles"
)

// legacyEnv maps the older prefixed interval names onto their keys.
var legacyEnv = map[string]string{
	"interval":        KeyReconcileInterval,
	"secret_interval": KeyCacheRefreshInterval,
}

var durationKeys = []string{KeyReconcileInterval, KeyCacheRefreshInterval}

// Config is the operator configuration.
type Config struct {
	// Folder is the Bitwarden folder mirrored into the cache.
	Folder string `koanf:"folder"`

	ReconcileInterval    time.Duration `koanf:"reconcile_interval"`
	CacheRefreshInterval time.Duration `koanf:"cache_refresh_interval"`

	MetricsPort int `koanf:"metrics_port"`

	// CRD prints the CustomResourceDefinition and exits.
	CRD       bool   `koanf:"crd"`
	CRDOutput string `koanf:"crd_output"`

	// Namespace restricts the watch; empty watches all namespaces.
	Namespace      string `koanf:"namespace"`
	LeaseNamespace string `koanf:"lease_namespace"`
	LeaseName      string `koanf:"lease_name"`

	BWBinary    string `koanf:"bw_binary"`
	PasswordEnv string `koanf:"password_env"`

	MaxConcurrentReconciles int `koanf:"max_concurrent_reconciles"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		KeyFolder:                  "kubernetes",
		KeyReconcileInterval:       "300s",
		KeyCacheRefreshInterval:    "120s",
		KeyMetricsPort:             8000,
		KeyCRD:                     false,
		KeyCRDOutput:               "",
		KeyNamespace:               "",
		KeyLeaseNamespace:          "",
		KeyLeaseName:               "bitwarden-secrets-operator",
		KeyBWBinary:                "bw",
		KeyPasswordEnv:             "BW_PASSWORD",
		KeyMaxConcurrentReconciles: 2,
	}
}

// BindFlags registers the configuration flags on fs. Only flags the user sets
// override the other sources.
func BindFlags(fs *pflag.FlagSet) {
	d := defaults()
	fs.String("config", "", "Path to an optional YAML configuration file")
	fs.String(flagName(KeyFolder), d[KeyFolder].(string), "Bitwarden folder to mirror")
	fs.String(flagName(KeyReconcileInterval), d[KeyReconcileInterval].(string),
		"Interval between reconcile-all passes (duration or seconds)")
	fs.String(flagName(KeyCacheRefreshInterval), d[KeyCacheRefreshInterval].(string),
		"Interval between credential cache refreshes (duration or seconds)")
	fs.Int(flagName(KeyMetricsPort), d[KeyMetricsPort].(int), "Port serving /metrics")
	fs.Bool(flagName(KeyCRD), false, "Print the CustomResourceDefinition and exit")
	fs.String(flagName(KeyCRDOutput), "", "Write the CustomResourceDefinition to this file instead of stdout")
	fs.String(flagName(KeyNamespace), "", "Namespace to watch (all namespaces when empty)")
	fs.String(flagName(KeyLeaseNamespace), "", "Namespace of the leader lease (defaults to --namespace or default)")
	fs.String(flagName(KeyLeaseName), d[KeyLeaseName].(string), "Name of the leader lease")
	fs.String(flagName(KeyBWBinary), d[KeyBWBinary].(string), "Path to the Bitwarden CLI")
	fs.String(flagName(KeyPasswordEnv), d[KeyPasswordEnv].(string),
		"Environment variable holding the master password")
	fs.Int(flagName(KeyMaxConcurrentReconciles), d[KeyMaxConcurrentReconciles].(int),
		"Maximum number of concurrent reconciles")
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Load merges defaults, the config file named by --config, the environment
// and the flags changed in fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := configPath(fs); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to access config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Legacy names load first so the current ones win when both are set.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return legacyEnv[envKey(s)]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load legacy environment variables: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := envKey(s)
		if _, legacy := legacyEnv[key]; legacy {
			return ""
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if fs != nil {
		changed := map[string]interface{}{}
		fs.Visit(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := defaults()[key]; known {
				changed[key] = f.Value.String()
			}
		})
		if err := k.Load(confmap.Provider(changed, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	for _, key := range durationKeys {
		if err := normalizeDuration(k, key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LeaseNamespace == "" {
		cfg.LeaseNamespace = cfg.Namespace
	}
	if cfg.LeaseNamespace == "" {
		cfg.LeaseNamespace = DefaultLeaseNamespace
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
}

func configPath(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	f := fs.Lookup("config")
	if f == nil {
		return ""
	}
	return f.Value.String()
}

// normalizeDuration rewrites bare integers as seconds.
func normalizeDuration(k *koanf.Koanf, key string) error {
	raw := strings.TrimSpace(k.String(key))
	if secs, err := strconv.Atoi(raw); err == nil {
		return k.Set(key, (time.Duration(secs) * time.Second).String())
	}
	if _, err := time.ParseDuration(raw); err != nil {
		return operrors.NewValidationError(key, raw, "must be a duration or a number of seconds")
	}
	return nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Folder) == "" {
		return operrors.NewValidationError(KeyFolder, c.Folder, "must not be empty")
	}
	if c.ReconcileInterval <= 0 {
		return operrors.NewValidationError(KeyReconcileInterval, c.ReconcileInterval.String(), "must be positive")
	}
	if c.CacheRefreshInterval <= 0 {
		return operrors.NewValidationError(KeyCacheRefreshInterval, c.CacheRefreshInterval.String(), "must be positive")
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return operrors.NewValidationError(KeyMetricsPort, strconv.Itoa(c.MetricsPort), "must be between 1 and 65535")
	}
	if c.MaxConcurrentReconciles < 1 {
		return operrors.NewValidationError(KeyMaxConcurrentReconciles,
			strconv.Itoa(c.MaxConcurrentReconciles), "must be at least 1")
	}
	if c.LeaseName == "" {
		return operrors.NewValidationError(KeyLeaseName, c.LeaseName, "must not be empty")
	}
	return nil
}

// MetricsAddr is the listen address of the metrics server.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf(":%d", c.MetricsPort)
}
