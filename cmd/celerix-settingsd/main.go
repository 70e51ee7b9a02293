package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celerix-dev/celerix-settings/internal/api"
	"github.com/celerix-dev/celerix-settings/internal/config"
	"github.com/celerix-dev/celerix-settings/internal/engine"
	"github.com/celerix-dev/celerix-settings/internal/server"
	"github.com/celerix-dev/celerix-settings/internal/vault"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Settings daemon failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)
	log.Info("Starting Celerix Settings Daemon...")

	resolver, err := cfg.Resolver()
	if err != nil {
		return fmt.Errorf("resolve settings roots: %w", err)
	}
	log.Info("Settings roots", "local", resolver.LocalRoot, "shared", resolver.SharedRoot)

	// 2. Start the engine and register the configured plugins
	host := engine.NewHost(resolver,
		engine.WithHostLogger(log),
		engine.WithAutoWrite(cfg.AutoWrite))
	if err := registerPlugins(host, cfg); err != nil {
		return err
	}

	// 3. Initialize the TCP Router
	router := server.NewRouter(host)
	router.SetLogger(log)
	if !cfg.DisableTLS {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("generate TLS certificate: %w", err)
		}
		router.SetCertificate(cert)
		log.Info("TLS encryption enabled")
	} else {
		log.Warn("TLS encryption disabled", "env", config.EnvDisableTLS)
	}

	// 4. HTTP management API
	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(&api.Handler{Store: host}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP API listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
		}
	}()

	// 5. Reload files other processes save
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if cfg.Watch {
		go func() {
			if err := host.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("Settings watch stopped", "error", err)
			}
		}()
	}

	// 6. Handle Graceful Shutdown
	go func() {
		<-ctx.Done()
		log.Info("Shutdown signal received. Finalizing disk writes...")
		router.Stop()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		httpServer.Shutdown(shutdownCtx)
	}()

	// 7. Start the TCP Server
	log.Info("Celerix settings engine listening", "port", cfg.Port, "protocol", "tcp")
	listenErr := router.Listen(cfg.Port)

	host.Wait()
	written := host.WriteAll()
	log.Info("Persistence complete. Exiting.", "plugins_written", written)

	if listenErr != nil && ctx.Err() == nil {
		return fmt.Errorf("tcp server: %w", listenErr)
	}
	return nil
}

// registerPlugins hosts every configured plugin and attaches its rules.
func registerPlugins(host *engine.Host, cfg config.Config) error {
	plugins, err := cfg.PluginIdentities()
	if err != nil {
		return err
	}
	for i, p := range plugins {
		if _, err := host.Register(p); err != nil {
			return fmt.Errorf("register %s: %w", p, err)
		}
		for target, expression := range cfg.Plugins[i].Rules {
			v, err := settings.CompileRule(expression)
			if err != nil {
				return err
			}
			command, key := config.SplitRuleTarget(target)
			if err := host.AddRule(p.ID.String(), command, key, v); err != nil {
				return fmt.Errorf("rule %s on %s: %w", target, p, err)
			}
		}
	}
	if len(plugins) == 0 {
		slog.Warn("No plugins configured", "env", config.EnvConfigFile)
	}
	return nil
}
