// cmd/web/main.go
//
// Portfolio inbox – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Install a console logger so config problems are visible.
//
//  2. Load config (.env → conf/inbox.yaml → legacy env → INBOX_ env,
//     then Vault references).
//
//  3. Start the daily rotating logger (tees to console in a TTY).
//
//  4. Enable Sentry capture when `sentry.dsn` is set.
//
//  5. Open the message store.  For MySQL this pings with retry and creates
//     the table; an unreachable database ends the process.
//
//  6. Build the router (API, /healthz, /metrics) and serve until SIGINT
//     or SIGTERM, then drain for up to 10 s.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	raven "github.com/getsentry/raven-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/inbox/internal/api"
	"github.com/yanizio/inbox/internal/auth"
	"github.com/yanizio/inbox/internal/config"
	"github.com/yanizio/inbox/internal/database"
	"github.com/yanizio/inbox/internal/logger"
	"github.com/yanizio/inbox/internal/message"
	"github.com/yanizio/inbox/internal/requestinfo"
	"github.com/yanizio/inbox/internal/server"
	"github.com/yanizio/inbox/internal/source"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	boot, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("start boot logger: %v", err)
	}
	zap.ReplaceGlobals(boot)

	if err := run(); err != nil {
		zap.S().Errorw("inbox stopped", "err", err)
		_ = zap.S().Sync()
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config and logger ───────────────────────────────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY(), cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = logOut.Sync() }()

	for _, key := range cfg.Fallbacks {
		logOut.Warnw("insecure fallback in use, set it before exposing this service", "key", key)
	}

	capture := false
	if cfg.Sentry.DSN != "" {
		if err := raven.SetDSN(cfg.Sentry.DSN); err != nil {
			logOut.Warnw("sentry disabled", "err", err)
		} else {
			raven.SetEnvironment(cfg.Env)
			capture = true
			logOut.Infow("sentry capture enabled")
		}
	}

	//
	// ── 2.  Sources and store ──────────────────────────────────────────
	//
	sources := source.FromConfig(&cfg.Sources)
	logOut.Infow("sources configured",
		"primary", sources.Primary(),
		"known", sources.List(),
		"strict", sources.Strict(),
	)

	store, closeStore, err := openStore(ctx, cfg, sources.Primary(), logOut)
	if err != nil {
		return err
	}
	defer closeStore()

	enricher, err := requestinfo.New(cfg.GeoIP.Path)
	if err != nil {
		logOut.Warnw("geoip disabled", "path", cfg.GeoIP.Path, "err", err)
		enricher, _ = requestinfo.New("")
	}
	defer enricher.Close()

	//
	// ── 3.  Router and server ──────────────────────────────────────────
	//
	router := api.NewRouter(api.Deps{
		Issuer:         auth.NewIssuer(&cfg.Auth),
		Store:          store,
		Sources:        sources,
		Enricher:       enricher,
		Logger:         logOut,
		Metrics:        promhttp.Handler(),
		Development:    cfg.IsDevelopment(),
		ForceHTTPS:     cfg.HTTP.ForceHTTPS,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		CapturePanics:  capture,
	})

	srv := server.New(cfg.HTTP.ListenAddr, router)
	if err := server.Run(ctx, srv, logOut); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logOut.Infow("inbox stopped cleanly")
	return nil
}

// openStore returns the configured message store and its release func.
// Submissions without a source are stored under primary.
func openStore(ctx context.Context, cfg *config.Config, primary string, logOut *zap.SugaredLogger) (message.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logOut.Warnw("using in-memory store, messages are lost on restart")
		return message.NewMemoryStore(primary), func() {}, nil
	}

	opts := database.DefaultOptions
	opts.MaxOpenConns = cfg.Database.MaxOpenConns
	opts.MaxIdleConns = cfg.Database.MaxIdleConns
	opts.Retries = cfg.Database.ConnectRetries
	opts.RetryBackoff = cfg.Database.RetryBackoff

	logOut.Infow("connecting to database", "host", cfg.Database.Host, "name", cfg.Database.Name)
	db, err := database.OpenWithOptions(ctx, cfg.Database.DSN, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	store := message.NewSQLStore(db, primary)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logOut.Infow("database online")
	return store, func() { _ = db.Close() }, nil
}
