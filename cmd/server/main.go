// Command server runs the Gemini-to-OpenAI translation gateway.
//
// Configuration comes from a YAML file (-config flag, GEMPROXY_CONFIG
// env, or ./config.yaml) with GEMPROXY_* environment overrides. See
// pkg/config for the full schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/accounting"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/accounting/memory"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/accounting/postgres"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/auth"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/auth/apikey"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/auth/jwt"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/backend/openai"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/config"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/debug"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/engine"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/observability"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/registry"
	transporthttp "github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	debug.Init("", cfg.Logging.Level)
	if cats := debug.Categories(); len(cats) > 0 {
		slog.Info("debug logging enabled", "categories", cats)
	}

	// Backend client.
	client := openai.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	defer client.Close()

	// Model registry.
	models := registry.New(cfg.Models.Mapping, cfg.Models.Default)
	slog.Info("model registry loaded",
		"mappings", len(cfg.Models.Mapping), "default", cfg.Models.Default)

	// Usage recorder.
	recorder, err := buildRecorder(cfg)
	if err != nil {
		return err
	}
	defer recorder.Close()

	// Engine.
	eng, err := engine.New(client, models, recorder, engine.Config{
		Validation: api.ValidationConfig{
			MaxContents:       cfg.Limits.MaxContents,
			MaxPartsPerTurn:   cfg.Limits.MaxPartsPerTurn,
			MaxTools:          cfg.Limits.MaxTools,
			MaxInlineDataSize: cfg.Limits.MaxInlineDataSize,
		},
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}

	if logger := buildAccessLogger(cfg); logger != nil {
		opts = append(opts, transporthttp.WithAccessLogger(logger))
	}

	var mw []func(http.Handler) http.Handler
	if cfg.Observability.Metrics.Enabled {
		mw = append(mw, observability.MetricsMiddleware)
	}
	authMW, err := buildAuthMiddleware(cfg)
	if err != nil {
		return err
	}
	if authMW != nil {
		mw = append(mw, authMW)
	}
	if len(mw) > 0 {
		opts = append(opts, transporthttp.WithHTTPMiddleware(mw...))
	}

	srv := transporthttp.NewServer(eng, opts...)

	slog.Info("server starting",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL,
		"accounting", cfg.Accounting.Type,
		"auth", cfg.Auth.Type,
	)
	return srv.ListenAndServe()
}

// buildRecorder selects the usage recorder from configuration.
func buildRecorder(cfg *config.Config) (accounting.Recorder, error) {
	switch cfg.Accounting.Type {
	case "none":
		slog.Info("accounting disabled")
		return accounting.Nop{}, nil
	case "memory":
		slog.Info("accounting enabled", "type", "memory", "max_size", cfg.Accounting.MaxSize)
		return memory.New(cfg.Accounting.MaxSize), nil
	case "postgres":
		rec, err := postgres.New(context.Background(), postgres.Config{
			DSN:            cfg.Accounting.Postgres.DSN,
			MaxConns:       cfg.Accounting.Postgres.MaxConns,
			MigrateOnStart: cfg.Accounting.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		slog.Info("accounting enabled", "type", "postgres")
		return rec, nil
	default:
		return nil, fmt.Errorf("unknown accounting type %q", cfg.Accounting.Type)
	}
}

// buildAccessLogger builds a rotating access logger when a file path is
// configured, and falls back to stderr otherwise.
func buildAccessLogger(cfg *config.Config) *slog.Logger {
	al := cfg.Logging.AccessLog
	if !al.Enabled {
		return nil
	}
	if al.Path == "" {
		return slog.Default()
	}
	return slog.New(slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   al.Path,
		MaxSize:    al.MaxSizeMB,
		MaxBackups: al.MaxBackups,
		MaxAge:     al.MaxAgeDays,
		Compress:   al.Compress,
	}, nil))
}

// buildAuthMiddleware builds the inbound auth chain from configuration.
// Returns nil when auth is disabled.
func buildAuthMiddleware(cfg *config.Config) (func(http.Handler) http.Handler, error) {
	switch cfg.Auth.Type {
	case "none":
		return nil, nil
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key:      k.Key,
				Identity: auth.Identity{Subject: k.Subject},
			})
		}
		chain := &auth.Chain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}
		return auth.Middleware(chain, auth.DefaultBypassEndpoints), nil
	case "jwt":
		chain := &auth.Chain{
			Authenticators:  []auth.Authenticator{jwt.New(jwt.Config{Secret: cfg.Auth.JWTSecret})},
			DefaultDecision: auth.No,
		}
		return auth.Middleware(chain, auth.DefaultBypassEndpoints), nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}
}
