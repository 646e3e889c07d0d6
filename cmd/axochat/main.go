// Command axochat runs the chat relay hub, or generates a login token for
// testing the token-auth path without standing up a real client.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rjsadow/axochat/internal/auth"
	"github.com/rjsadow/axochat/internal/config"
	"github.com/rjsadow/axochat/internal/diagnostics"
	"github.com/rjsadow/axochat/internal/hub"
	"github.com/rjsadow/axochat/internal/metering"
	"github.com/rjsadow/axochat/internal/moderation"
	"github.com/rjsadow/axochat/internal/modlog"
	"github.com/rjsadow/axochat/internal/protocol"
	"github.com/rjsadow/axochat/internal/wsconn"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "start":
		startCmd := flag.NewFlagSet("start", flag.ExitOnError)
		configPath := startCmd.String("config", "config.yaml", "path to the configuration file")
		startCmd.Parse(os.Args[2:])

		if err := runStart(*configPath, logger); err != nil {
			logger.Error("server exited with error", "error", err)
			os.Exit(1)
		}
	case "generate":
		genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
		configPath := genCmd.String("config", "config.yaml", "path to the configuration file")
		genCmd.Parse(os.Args[2:])

		args := genCmd.Args()
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "usage: axochat generate <name> [uuid]")
			os.Exit(2)
		}

		if err := runGenerate(*configPath, args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: axochat <start|generate> [flags]")
	fmt.Fprintln(os.Stderr, "  start                 run the chat relay")
	fmt.Fprintln(os.Stderr, "  generate <name> [uuid]  mint a login token for testing")
}

func runGenerate(configPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Auth == nil {
		return errors.New("please add an `auth` section to your configuration file")
	}

	key, err := os.ReadFile(cfg.Auth.KeyFile)
	if err != nil {
		return fmt.Errorf("read auth key file: %w", err)
	}

	tokens, err := auth.NewTokenService(key, cfg.Auth.Algorithm, cfg.Auth.ValidTime.Duration())
	if err != nil {
		return fmt.Errorf("build token service: %w", err)
	}

	identity := protocol.UserIdentity{Name: args[0]}
	if len(args) > 1 {
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("parse uuid: %w", err)
		}
		identity.UUID = id
	}

	token, err := tokens.Mint(identity)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runStart(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	modStore, err := buildModerationStore(cfg.Moderation)
	if err != nil {
		return fmt.Errorf("build moderation store: %w", err)
	}

	var tokens *auth.TokenService
	if cfg.Auth != nil {
		key, err := os.ReadFile(cfg.Auth.KeyFile)
		if err != nil {
			return fmt.Errorf("read auth key file: %w", err)
		}
		tokens, err = auth.NewTokenService(key, cfg.Auth.Algorithm, cfg.Auth.ValidTime.Duration())
		if err != nil {
			return fmt.Errorf("build token service: %w", err)
		}
	} else {
		logger.Warn("no auth section configured; LoginJWT/RequestJWT will reply NotSupported")
	}

	metrics := metering.NewCollector()

	var auditLog *modlog.Log
	if cfg.Audit.DSN != "" {
		auditLog, err = modlog.Open(cfg.Audit.DSN)
		if err != nil {
			return fmt.Errorf("open moderation audit log: %w", err)
		}
		defer auditLog.Close()
	}

	h, err := hub.New(hub.Config{
		RateCapacity:  cfg.Message.Capacity,
		RateRegen:     cfg.Message.RegenTime.Duration(),
		MaxMessageLen: cfg.Message.MaxLength,
		Mojang:        auth.NewMojangVerifier(),
		Tokens:        tokens,
		Moderation:    modStore,
		Metering:      metrics,
		AuditLog:      auditLog,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("build hub: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	diag := diagnostics.NewCollector(h, metrics, time.Now())

	limiter := wsconn.NewConnRateLimiter(cfg.Net)
	wsHandler := wsconn.NewHandler(h, limiter, logger)

	mux := http.NewServeMux()
	mux.Handle(cfg.Net.Path, wsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		if err := diag.WriteBundle(w); err != nil {
			logger.Error("write diagnostics bundle", "error", err)
		}
	})

	srv := &http.Server{
		Addr:    cfg.Net.Address,
		Handler: mux,
	}

	if cfg.Net.CertFile != "" {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Net.Address, "path", cfg.Net.Path)
		if cfg.Net.CertFile != "" {
			serveErr <- srv.ListenAndServeTLS(cfg.Net.CertFile, cfg.Net.KeyFile)
		} else {
			serveErr <- srv.ListenAndServe()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-sigCh:
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func buildModerationStore(cfg config.ModerationConfig) (moderation.Store, error) {
	switch cfg.Backend {
	case "s3":
		return moderation.NewS3Store(context.Background(), cfg.Bucket, cfg.Key, cfg.AccessKeyID, cfg.SecretAccessKey)
	default:
		return moderation.NewFileStore(cfg.File), nil
	}
}
