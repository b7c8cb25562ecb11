// Package config loads layered azst configuration.
//
// Layers, lowest precedence first:
//  1. Embedded defaults (internal/assets/defaults/azst.yaml)
//  2. User config file ($XDG_CONFIG_HOME/azst/config.yaml or an explicit path)
//  3. Environment variables (AZST_* plus the Azure SDK's AZURE_STORAGE_*)
//  4. Runtime overrides (command-line flags)
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	defaultsassets "github.com/3leaps/azst/internal/assets/defaults"
)

// EnvPrefix prefixes every azst environment variable.
const EnvPrefix = "AZST"

// Provider kinds.
const (
	KindAzure = "azure"
	KindS3    = "s3"
	KindFile  = "file"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSONL = "jsonl"
)

// Config is the resolved configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Provider ProviderConfig `mapstructure:"provider"`
	Azure    AzureConfig    `mapstructure:"azure"`
	Listing  ListingConfig  `mapstructure:"listing"`
	Usage    UsageConfig    `mapstructure:"usage"`
	Output   OutputConfig   `mapstructure:"output"`
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProviderConfig selects and configures the storage backend. Endpoint,
// Region, Profile and ForcePathStyle apply to s3; BaseDir to file.
type ProviderConfig struct {
	Kind           string `mapstructure:"kind"`
	Endpoint       string `mapstructure:"endpoint"`
	Region         string `mapstructure:"region"`
	Profile        string `mapstructure:"profile"`
	BaseDir        string `mapstructure:"base_dir"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// AzureConfig configures the Azure backend.
type AzureConfig struct {
	Account        string `mapstructure:"account"`
	AccountKey     string `mapstructure:"account_key"`
	SASToken       string `mapstructure:"sas_token"`
	Anonymous      bool   `mapstructure:"anonymous"`
	EndpointSuffix string `mapstructure:"endpoint_suffix"`
	Endpoint       string `mapstructure:"endpoint"`
}

// ListingConfig tunes the page loop.
type ListingConfig struct {
	PageSize  int           `mapstructure:"page_size"`
	MaxPages  int           `mapstructure:"max_pages"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// UsageConfig tunes account-wide usage.
type UsageConfig struct {
	Parallel int `mapstructure:"parallel"`
}

// OutputConfig selects the rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// EnvSpec maps an environment variable to a config key.
type EnvSpec struct {
	Name string
	Path string
}

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// Load resolves configuration from the default file locations.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", overrides...)
}

// LoadFile resolves configuration using path as the user config file. An
// empty path searches the default locations; a missing default file is
// not an error, a missing explicit file is.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()

	defaults, err := decodeDefaults()
	if err != nil {
		return nil, err
	}
	for key, value := range flatten("", defaults) {
		v.SetDefault(key, value)
	}

	if err := readUserConfig(v, path); err != nil {
		return nil, err
	}

	// Bind leaves only. A section-level variable such as AZST_OUTPUT must
	// never shadow the whole section map.
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, override := range overrides {
		for key, value := range flatten("", override) {
			v.Set(key, value)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	switch c.Provider.Kind {
	case KindAzure, KindS3, KindFile:
	default:
		return &ValidationError{Key: "provider.kind", Message: fmt.Sprintf("unknown provider %q (want azure, s3 or file)", c.Provider.Kind)}
	}
	if c.Provider.Kind == KindFile && c.Provider.BaseDir == "" {
		return &ValidationError{Key: "provider.base_dir", Message: "required for the file provider"}
	}
	switch c.Output.Format {
	case FormatTable, FormatJSONL:
	default:
		return &ValidationError{Key: "output.format", Message: fmt.Sprintf("unknown format %q (want table or jsonl)", c.Output.Format)}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return &ValidationError{Key: "logging.format", Message: fmt.Sprintf("unknown format %q (want console or json)", c.Logging.Format)}
	}
	if c.Listing.PageSize < 0 {
		return &ValidationError{Key: "listing.page_size", Message: "must not be negative"}
	}
	if c.Listing.MaxPages < 0 {
		return &ValidationError{Key: "listing.max_pages", Message: "must not be negative"}
	}
	if c.Listing.RateLimit < 0 {
		return &ValidationError{Key: "listing.rate_limit", Message: "must not be negative"}
	}
	if c.Usage.Parallel < 1 {
		return &ValidationError{Key: "usage.parallel", Message: "must be at least 1"}
	}
	return nil
}

func (c *Config) normalize() {
	c.Provider.Kind = strings.ToLower(strings.TrimSpace(c.Provider.Kind))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Key + ": " + e.Message
}

func decodeDefaults() (map[string]any, error) {
	var defaults map[string]any
	if err := yaml.Unmarshal(defaultsassets.DefaultsYAML, &defaults); err != nil {
		return nil, fmt.Errorf("decode embedded defaults: %w", err)
	}
	return defaults, nil
}

func readUserConfig(v *viper.Viper, path string) error {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		v.SetConfigType(configType(path))
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		return nil
	}

	for _, candidate := range getUserConfigPaths() {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read config %s: %w", candidate, err)
		}
		v.SetConfigType(configType(candidate))
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("parse config %s: %w", candidate, err)
		}
		return nil
	}
	return nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

// getUserConfigPaths lists candidate config files, most specific first.
func getUserConfigPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "azst", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "azst", "config.yaml"))
	}
	return paths
}

// getEnvSpecs lists environment bindings. Shorthand names come first and
// win over the generated AZST_<SECTION>_<KEY> name of the same leaf.
func getEnvSpecs() []EnvSpec {
	specs := []EnvSpec{
		{Name: EnvPrefix + "_LOG_LEVEL", Path: "logging.level"},
		{Name: EnvPrefix + "_ACCOUNT", Path: "azure.account"},
		{Name: "AZURE_STORAGE_ACCOUNT", Path: "azure.account"},
		{Name: "AZURE_STORAGE_KEY", Path: "azure.account_key"},
		{Name: "AZURE_STORAGE_SAS_TOKEN", Path: "azure.sas_token"},
		{Name: EnvPrefix + "_PROVIDER", Path: "provider.kind"},
		{Name: EnvPrefix + "_OUTPUT", Path: "output.format"},
	}
	for _, path := range leafKeys() {
		specs = append(specs, EnvSpec{Name: leafEnvName(path), Path: path})
	}
	return specs
}

// leafKeys returns every dotted key with an embedded default, sorted.
func leafKeys() []string {
	defaults, err := decodeDefaults()
	if err != nil {
		return nil
	}
	keys := make([]string, 0, 32)
	for key := range flatten("", defaults) {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func leafEnvName(path string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// flatten turns nested maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
