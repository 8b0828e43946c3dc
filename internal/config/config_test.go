package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/eugenenazirov/cdn-tags/pkg/cdntags"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "APP_ENV", "GO_ENV", "CDN_ENVIRONMENTS", "CDN_RAISE_ON_MISSING", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.Environment != cdntags.Development {
		t.Fatalf("expected development environment, got %s", cfg.Environment)
	}
	if !slices.Equal(cfg.CDN.Environments, []cdntags.Environment{cdntags.Production}) {
		t.Fatalf("unexpected cdn environments: %v", cfg.CDN.Environments)
	}
	if cfg.CDN.RaiseOnMissing.IsList() || cfg.CDN.RaiseOnMissing.Resolve(cdntags.Production) {
		t.Fatalf("expected raise_on_missing=false, got %s", cfg.CDN.RaiseOnMissing)
	}
	if !cfg.CDN.AddToPrecompile {
		t.Fatalf("expected add_to_precompile enabled by default")
	}
	if cfg.Assets.Prefix != "/assets" || cfg.Assets.Dir != defaultAssetsDir {
		t.Fatalf("unexpected assets config: %+v", cfg.Assets)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "staging")
	t.Setenv("CDN_ENVIRONMENTS", "production, staging")
	t.Setenv("CDN_RAISE_ON_MISSING", "staging")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.Environment != cdntags.Staging {
		t.Fatalf("expected staging, got %s", cfg.Environment)
	}
	if want := []cdntags.Environment{cdntags.Production, cdntags.Staging}; !slices.Equal(cfg.CDN.Environments, want) {
		t.Fatalf("expected %v, got %v", want, cfg.CDN.Environments)
	}
	if !cfg.CDN.RaiseOnMissing.Resolve(cdntags.Staging) || cfg.CDN.RaiseOnMissing.Resolve(cdntags.Production) {
		t.Fatalf("unexpected raise policy %s", cfg.CDN.RaiseOnMissing)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	path := writeConfig(t, `
port: "7000"
environment: production
cdn:
  environments: [production, staging]
  raise_on_missing: true
  add_to_precompile: false
  scripts:
    jquery: //code.jquery.com/jquery-2.1.1.min.js
  stylesheets:
    bootstrap: //maxcdn.bootstrapcdn.com/bootstrap/3.2.0/css/bootstrap.min.css
assets:
  prefix: /static
  digests:
    application: abc123
write_timeout: 3s
enable_request_logging: false
rate_limit:
  rps: 0
`)

	cfg, err := Load(&CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7000" {
		t.Fatalf("expected YAML to override env port, got %s", cfg.Port)
	}
	if cfg.Environment != cdntags.Production {
		t.Fatalf("expected production, got %s", cfg.Environment)
	}
	if cfg.CDN.Scripts["jquery"] != "//code.jquery.com/jquery-2.1.1.min.js" {
		t.Fatalf("unexpected scripts %v", cfg.CDN.Scripts)
	}
	if _, ok := cfg.CDN.Stylesheets["bootstrap"]; !ok {
		t.Fatalf("unexpected stylesheets %v", cfg.CDN.Stylesheets)
	}
	if len(cfg.CDN.Environments) != 2 {
		t.Fatalf("unexpected environments %v", cfg.CDN.Environments)
	}
	if cfg.CDN.RaiseOnMissing.IsList() || !cfg.CDN.RaiseOnMissing.Resolve(cdntags.Test) {
		t.Fatalf("expected raise_on_missing=true, got %s", cfg.CDN.RaiseOnMissing)
	}
	if cfg.CDN.AddToPrecompile {
		t.Fatalf("expected add_to_precompile disabled")
	}
	if cfg.Assets.Prefix != "/static" || cfg.Assets.Digests["application"] != "abc123" {
		t.Fatalf("unexpected assets config %+v", cfg.Assets)
	}
	if cfg.WriteTimeout != 3*time.Second {
		t.Fatalf("unexpected write timeout %s", cfg.WriteTimeout)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging disabled")
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadCLIOverridesWin(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "port: \"7000\"\nenvironment: production\n")

	port := "6000"
	env := "test"
	rps := 5.0
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port, Environment: &env, RateLimitRPS: &rps})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "6000" || cfg.Environment != cdntags.Test || cfg.RateLimitRPS != 5 {
		t.Fatalf("expected CLI overrides to win, got %+v", cfg)
	}
}

func TestLoadCLICDNOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CDN_RAISE_ON_MISSING", "true")
	path := writeConfig(t, `
cdn:
  environments: [production]
  add_to_precompile: true
`)

	raise := "staging, production"
	addToPrecompile := false
	cfg, err := Load(&CLIOverrides{
		ConfigFile:      path,
		CDNEnvironments: []string{"staging", " qa "},
		RaiseOnMissing:  &raise,
		AddToPrecompile: &addToPrecompile,
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !slices.Equal(cfg.CDN.Environments, []cdntags.Environment{cdntags.Staging, "qa"}) {
		t.Fatalf("expected CLI environments to replace YAML ones, got %v", cfg.CDN.Environments)
	}
	if !cfg.CDN.RaiseOnMissing.IsList() || !cfg.CDN.RaiseOnMissing.Resolve(cdntags.Staging) || cfg.CDN.RaiseOnMissing.Resolve(cdntags.Development) {
		t.Fatalf("expected list policy from --raise-on-missing, got %s", cfg.CDN.RaiseOnMissing)
	}
	if cfg.CDN.AddToPrecompile {
		t.Fatalf("expected --add-to-precompile=false to win")
	}
}

func TestLoadCLICDNOverridesUnset(t *testing.T) {
	clearEnv(t)
	t.Setenv("CDN_ENVIRONMENTS", "production,staging")

	cfg, err := Load(&CLIOverrides{CDNEnvironments: []string{" "}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(cfg.CDN.Environments) != 2 || !cfg.CDN.AddToPrecompile || cfg.CDN.RaiseOnMissing.IsList() {
		t.Fatalf("expected blank CLI values to leave config untouched, got %+v", cfg.CDN)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
			t.Fatalf("expected error for missing file")
		}
	})

	t.Run("invalid raise policy", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, "cdn:\n  raise_on_missing: {production: true}\n")
		_, err := Load(&CLIOverrides{ConfigFile: path})
		if !errors.Is(err, cdntags.ErrInvalidRaisePolicy) {
			t.Fatalf("expected ErrInvalidRaisePolicy, got %v", err)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, "idle_timeout: soon\n")
		if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected error for invalid duration")
		}
	})

	t.Run("empty cdn url", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, "cdn:\n  scripts:\n    jquery: \"\"\n")
		if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected error for empty URL")
		}
	})
}

func TestCDNConfigApply(t *testing.T) {
	cdn := CDNConfig{
		Scripts:         map[string]string{"jquery": "//cdn/jquery.js"},
		Stylesheets:     map[string]string{},
		Environments:    []cdntags.Environment{cdntags.Production},
		RaiseOnMissing:  cdntags.RaiseIn(cdntags.Test),
		AddToPrecompile: false,
	}

	tags := cdntags.New()
	tags.Configure(cdn.Apply(cdntags.Production))

	got := tags.Configuration()
	if got.ScriptURLs["jquery"] != "//cdn/jquery.js" || got.Environment != cdntags.Production {
		t.Fatalf("unexpected configuration %+v", got)
	}
	if got.AddToPrecompile || !got.RaiseOnMissing.IsList() {
		t.Fatalf("expected policy and precompile flag to be copied, got %+v", got)
	}

	cdn.Scripts["jquery"] = "mutated"
	if tags.Configuration().ScriptURLs["jquery"] != "//cdn/jquery.js" {
		t.Fatalf("expected Apply to copy mappings")
	}
}
