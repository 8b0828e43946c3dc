package config

import (
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/cdn-tags/pkg/cdntags"
)

const (
	defaultPort           = "8080"
	defaultAssetsDir      = "web/assets"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	Environment          cdntags.Environment
	CDN                  CDNConfig
	Assets               AssetsConfig
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// CDNConfig mirrors cdntags.Configuration minus the current environment.
type CDNConfig struct {
	Scripts         map[string]string
	Stylesheets     map[string]string
	Environments    []cdntags.Environment
	RaiseOnMissing  cdntags.RaisePolicy
	AddToPrecompile bool
}

// AssetsConfig describes where local assets are served from.
type AssetsConfig struct {
	Prefix  string
	Dir     string
	Digests map[string]string
}

// Apply copies the CDN settings onto a cdntags configuration.
func (c CDNConfig) Apply(env cdntags.Environment) func(*cdntags.Configuration) {
	return func(cfg *cdntags.Configuration) {
		cfg.ScriptURLs = maps.Clone(c.Scripts)
		cfg.StylesheetURLs = maps.Clone(c.Stylesheets)
		cfg.CDNEnvironments = append([]cdntags.Environment(nil), c.Environments...)
		cfg.RaiseOnMissing = c.RaiseOnMissing
		cfg.AddToPrecompile = c.AddToPrecompile
		cfg.Environment = env
	}
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	Environment          string        `yaml:"environment"`
	CDN                  yamlCDN       `yaml:"cdn"`
	Assets               yamlAssets    `yaml:"assets"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlCDN represents the cdn section in YAML.
type yamlCDN struct {
	Scripts         map[string]string    `yaml:"scripts"`
	Stylesheets     map[string]string    `yaml:"stylesheets"`
	Environments    []string             `yaml:"environments"`
	RaiseOnMissing  *cdntags.RaisePolicy `yaml:"raise_on_missing"`
	AddToPrecompile *bool                `yaml:"add_to_precompile"`
}

// yamlAssets represents the assets section in YAML.
type yamlAssets struct {
	Prefix  string            `yaml:"prefix"`
	Dir     string            `yaml:"dir"`
	Digests map[string]string `yaml:"digests"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	Environment    *string
	RateLimitRPS   *float64
	RateLimitBurst *int

	// CDNEnvironments replaces cdn.environments when non-empty.
	CDNEnvironments []string
	// RaiseOnMissing accepts true, false or a comma-separated environment list.
	RaiseOnMissing  *string
	AddToPrecompile *bool
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, fmt.Errorf("apply CLI overrides: %w", err)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:        defaultPort,
		Environment: cdntags.Development,
		CDN: CDNConfig{
			Scripts:         map[string]string{},
			Stylesheets:     map[string]string{},
			Environments:    []cdntags.Environment{cdntags.Production},
			RaiseOnMissing:  cdntags.AlwaysRaise(false),
			AddToPrecompile: true,
		},
		Assets: AssetsConfig{
			Prefix:  cdntags.DefaultAssetPrefix,
			Dir:     defaultAssetsDir,
			Digests: map[string]string{},
		},
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if env := strings.TrimSpace(yamlCfg.Environment); env != "" {
		cfg.Environment = cdntags.Environment(env)
	}

	if len(yamlCfg.CDN.Scripts) > 0 {
		cfg.CDN.Scripts = yamlCfg.CDN.Scripts
	}
	if len(yamlCfg.CDN.Stylesheets) > 0 {
		cfg.CDN.Stylesheets = yamlCfg.CDN.Stylesheets
	}
	if yamlCfg.CDN.Environments != nil {
		envs := make([]cdntags.Environment, 0, len(yamlCfg.CDN.Environments))
		for _, env := range yamlCfg.CDN.Environments {
			envs = append(envs, cdntags.Environment(env))
		}
		cfg.CDN.Environments = envs
	}
	if yamlCfg.CDN.RaiseOnMissing != nil {
		cfg.CDN.RaiseOnMissing = *yamlCfg.CDN.RaiseOnMissing
	}
	if yamlCfg.CDN.AddToPrecompile != nil {
		cfg.CDN.AddToPrecompile = *yamlCfg.CDN.AddToPrecompile
	}

	if yamlCfg.Assets.Prefix != "" {
		cfg.Assets.Prefix = yamlCfg.Assets.Prefix
	}
	if yamlCfg.Assets.Dir != "" {
		cfg.Assets.Dir = yamlCfg.Assets.Dir
	}
	if len(yamlCfg.Assets.Digests) > 0 {
		cfg.Assets.Digests = yamlCfg.Assets.Digests
	}

	durations := []struct {
		key   string
		raw   string
		field *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.field = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	cfg.Environment = cdntags.HostEnvironment()

	if raw := strings.TrimSpace(os.Getenv("CDN_ENVIRONMENTS")); raw != "" {
		cfg.CDN.Environments = cdntags.ParseEnvironments(raw)
	}

	if raw := strings.TrimSpace(os.Getenv("CDN_RAISE_ON_MISSING")); raw != "" {
		policy, err := cdntags.ParseRaisePolicy(raw)
		if err != nil {
			return fmt.Errorf("parse CDN_RAISE_ON_MISSING: %w", err)
		}
		cfg.CDN.RaiseOnMissing = policy
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.Environment != nil && strings.TrimSpace(*overrides.Environment) != "" {
		cfg.Environment = cdntags.Environment(strings.TrimSpace(*overrides.Environment))
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if envs := cdntags.ParseEnvironments(strings.Join(overrides.CDNEnvironments, ",")); len(envs) > 0 {
		cfg.CDN.Environments = envs
	}

	if overrides.RaiseOnMissing != nil && strings.TrimSpace(*overrides.RaiseOnMissing) != "" {
		policy, err := cdntags.ParseRaisePolicy(*overrides.RaiseOnMissing)
		if err != nil {
			return fmt.Errorf("parse --raise-on-missing: %w", err)
		}
		cfg.CDN.RaiseOnMissing = policy
	}

	if overrides.AddToPrecompile != nil {
		cfg.CDN.AddToPrecompile = *overrides.AddToPrecompile
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.Environment == "" {
		return fmt.Errorf("environment cannot be empty")
	}
	for name, url := range cfg.CDN.Scripts {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("cdn script %q has an empty URL", name)
		}
	}
	for name, url := range cfg.CDN.Stylesheets {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("cdn stylesheet %q has an empty URL", name)
		}
	}
	return nil
}
