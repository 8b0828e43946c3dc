package main

import (
	"net/http"
	"os"
	osSignal "os/signal"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/cdn-tags/internal/application"
	"github.com/eugenenazirov/cdn-tags/internal/config"
	"github.com/eugenenazirov/cdn-tags/pkg/cdntags"
)

func TestShutdownStopsApplicationServer(t *testing.T) {
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})

	signalNotify = func(ch chan<- os.Signal, _ ...os.Signal) {
		go func() {
			ch <- syscall.SIGTERM
		}()
	}

	cfg := config.Config{
		Port:        "0",
		Environment: cdntags.Production,
		CDN: config.CDNConfig{
			Scripts:         map[string]string{"jquery": "//code.jquery.com/jquery-2.1.1.min.js"},
			Stylesheets:     map[string]string{},
			Environments:    []cdntags.Environment{cdntags.Production},
			RaiseOnMissing:  cdntags.AlwaysRaise(false),
			AddToPrecompile: true,
		},
		Assets:              config.AssetsConfig{Prefix: cdntags.DefaultAssetPrefix, Dir: "web/assets"},
		ShutdownGracePeriod: 50 * time.Millisecond,
		ReadHeaderTimeout:   time.Second,
		WriteTimeout:        time.Second,
		IdleTimeout:         time.Second,
	}

	logger := zaptest.NewLogger(t)
	app, err := application.New(cfg, logger)
	if err != nil {
		t.Fatalf("application.New returned error: %v", err)
	}

	server := app.Server()
	if server.Addr != ":0" {
		t.Fatalf("expected server to listen on configured port, got %q", server.Addr)
	}

	called := make(chan struct{}, 1)
	server.RegisterOnShutdown(func() {
		called <- struct{}{}
	})

	shutdown(server, cfg.ShutdownGracePeriod, logger)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatalf("expected server shutdown callback to execute")
	}

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		t.Fatalf("expected server to stay closed after shutdown, got %v", err)
	}
}
