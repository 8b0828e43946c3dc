package cdntags

import (
	"maps"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Configuration holds the CDN mappings and the environment rules that decide
// when they apply.
type Configuration struct {
	// ScriptURLs maps asset names without extension to CDN URLs.
	ScriptURLs map[string]string
	// StylesheetURLs maps asset names without extension to CDN URLs.
	StylesheetURLs map[string]string
	// CDNEnvironments lists the environments in which URLs are substituted.
	CDNEnvironments []Environment
	// Environment is the environment the host currently runs under.
	Environment Environment
	// RaiseOnMissing decides whether an unmapped asset is an error.
	RaiseOnMissing RaisePolicy
	// AddToPrecompile registers every mapped asset with the host manifest.
	AddToPrecompile bool
}

// ShouldRaise resolves RaiseOnMissing against the current environment.
func (c Configuration) ShouldRaise() bool {
	return c.RaiseOnMissing.Resolve(c.Environment)
}

// CDNActive reports whether the current environment substitutes CDN URLs.
func (c Configuration) CDNActive() bool {
	return containsEnvironment(c.CDNEnvironments, c.Environment)
}

func (c Configuration) clone() Configuration {
	out := c
	out.ScriptURLs = maps.Clone(c.ScriptURLs)
	out.StylesheetURLs = maps.Clone(c.StylesheetURLs)
	out.CDNEnvironments = slices.Clone(c.CDNEnvironments)
	out.RaiseOnMissing = c.RaiseOnMissing
	if c.RaiseOnMissing.list {
		out.RaiseOnMissing = RaiseIn(c.RaiseOnMissing.envs...)
	}
	if out.ScriptURLs == nil {
		out.ScriptURLs = map[string]string{}
	}
	if out.StylesheetURLs == nil {
		out.StylesheetURLs = map[string]string{}
	}
	return out
}

// Tags owns the shared Configuration and renders tags from it.
type Tags struct {
	mu       sync.RWMutex
	cfg      Configuration
	manifest Manifest
	resolver PathResolver
	logger   *zap.Logger
}

// Option configures Tags behaviour.
type Option func(*Tags)

// WithManifest sets the precompile manifest mapped assets are registered with.
func WithManifest(m Manifest) Option {
	return func(t *Tags) {
		t.manifest = m
	}
}

// WithResolver sets the host resolver used when no CDN URL applies.
func WithResolver(r PathResolver) Option {
	return func(t *Tags) {
		t.resolver = r
	}
}

// WithLogger sets the logger used for substitution decisions.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tags) {
		t.logger = logger
	}
}

// WithEnvironment overrides the environment read from the host process.
func WithEnvironment(env Environment) Option {
	return func(t *Tags) {
		t.cfg.Environment = env
	}
}

// New creates Tags with the default configuration: no mappings, CDN active in
// production only, never raising, precompile registration enabled.
func New(opts ...Option) *Tags {
	t := &Tags{
		cfg:      DefaultConfiguration(),
		manifest: NewMemoryManifest(),
		resolver: NewStaticResolver(DefaultAssetPrefix, nil),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	if t.resolver == nil {
		t.resolver = NewStaticResolver(DefaultAssetPrefix, nil)
	}
	return t
}

// DefaultConfiguration returns the configuration New starts from.
func DefaultConfiguration() Configuration {
	return Configuration{
		ScriptURLs:      map[string]string{},
		StylesheetURLs:  map[string]string{},
		CDNEnvironments: []Environment{Production},
		Environment:     HostEnvironment(),
		RaiseOnMissing:  AlwaysRaise(false),
		AddToPrecompile: true,
	}
}

// Configure runs fn against the shared configuration and then registers the
// mapped assets with the manifest when AddToPrecompile is set. fn runs under
// the write lock and must not call back into t.
func (t *Tags) Configure(fn func(*Configuration)) {
	t.mu.Lock()
	if fn != nil {
		fn(&t.cfg)
	}
	if t.cfg.ScriptURLs == nil {
		t.cfg.ScriptURLs = map[string]string{}
	}
	if t.cfg.StylesheetURLs == nil {
		t.cfg.StylesheetURLs = map[string]string{}
	}
	cfg := t.cfg.clone()
	t.mu.Unlock()

	t.logger.Debug("cdn configuration updated",
		zap.Stringer("environment", cfg.Environment),
		zap.Bool("cdn_active", cfg.CDNActive()),
		zap.Int("scripts", len(cfg.ScriptURLs)),
		zap.Int("stylesheets", len(cfg.StylesheetURLs)),
	)

	if !cfg.AddToPrecompile || t.manifest == nil {
		return
	}
	entries := make([]string, 0, len(cfg.ScriptURLs)+len(cfg.StylesheetURLs))
	for _, kind := range kinds {
		for _, name := range sortedKeys(kind.urls(&cfg)) {
			entries = append(entries, name+kind.ext)
		}
	}
	t.manifest.Append(entries...)
}

// SetEnvironment switches the current environment.
func (t *Tags) SetEnvironment(env Environment) {
	t.Configure(func(c *Configuration) {
		c.Environment = env
	})
}

// Configuration returns a snapshot of the shared configuration.
func (t *Tags) Configuration() Configuration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.clone()
}

// ShouldRaise reports whether an unmapped asset is an error right now.
func (t *Tags) ShouldRaise() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.ShouldRaise()
}

// CDNActive reports whether CDN URLs are substituted right now.
func (t *Tags) CDNActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.CDNActive()
}

// Manifest returns the precompile manifest mapped assets are registered with.
func (t *Tags) Manifest() Manifest {
	return t.manifest
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
