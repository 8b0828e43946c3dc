package application

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/cdn-tags/internal/api"
	"github.com/eugenenazirov/cdn-tags/internal/config"
	"github.com/eugenenazirov/cdn-tags/pkg/cdntags"
)

// defaultPrecompile lists the host's own bundles, registered before any CDN mapping.
var defaultPrecompile = []string{"application.js", "application.css"}

// App encapsulates the application dependencies and HTTP server.
type App struct {
	tags     *cdntags.Tags
	manifest *cdntags.MemoryManifest
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	tags, manifest := NewTags(cfg, logger)

	handler := api.NewHandler(tags)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	rootHandler, err := BuildRootHandler(apiRouter, tags, cfg.Assets, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP handler: %w", err)
	}

	logger.Info("cdn tags configured",
		zap.Stringer("environment", cfg.Environment),
		zap.Bool("cdn_active", tags.CDNActive()),
		zap.Bool("raise_on_missing", tags.ShouldRaise()),
		zap.Int("precompile_assets", len(manifest.Names())),
	)

	return &App{
		tags:     tags,
		manifest: manifest,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, rootHandler),
	}, nil
}

// NewTags builds the shared Tags instance and its precompile manifest from cfg.
func NewTags(cfg config.Config, logger *zap.Logger) (*cdntags.Tags, *cdntags.MemoryManifest) {
	manifest := cdntags.NewMemoryManifest(defaultPrecompile...)
	tags := cdntags.New(
		cdntags.WithManifest(manifest),
		cdntags.WithResolver(cdntags.NewStaticResolver(cfg.Assets.Prefix, cfg.Assets.Digests)),
		cdntags.WithLogger(logger.Named("cdntags")),
		cdntags.WithEnvironment(cfg.Environment),
	)
	tags.Configure(cfg.CDN.Apply(cfg.Environment))
	return tags, manifest
}

// BuildRootHandler constructs the root HTTP handler that renders the index
// page, serves local assets, and routes API requests.
func BuildRootHandler(apiHandler http.Handler, tags *cdntags.Tags, assets config.AssetsConfig, logger *zap.Logger) (http.Handler, error) {
	mux := http.NewServeMux()

	assetsPath, err := resolveAssetsDir(assets.Dir)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(assets.Prefix, "/") + "/"
	if prefix == "/" {
		prefix = cdntags.DefaultAssetPrefix + "/"
	}
	mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(assetsPath))))
	mux.Handle("/api/", apiHandler)

	indexPath, err := resolveProjectPath(filepath.Join("web", "templates", "index.html.tmpl"))
	if err != nil {
		return nil, err
	}
	page, err := NewPage(indexPath, tags, logger)
	if err != nil {
		return nil, err
	}
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page.ServeHTTP(w, r)
	}))

	return mux, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Tags returns the shared tag helper.
func (a *App) Tags() *cdntags.Tags {
	return a.tags
}

func resolveAssetsDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		if _, err := os.Stat(dir); err != nil {
			return "", fmt.Errorf("assets dir: %w", err)
		}
		return dir, nil
	}
	return resolveProjectPath(dir)
}

// resolveProjectPath locates a file or directory relative to the project root by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
