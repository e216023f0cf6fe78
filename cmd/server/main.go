package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/JustJay7/case-manager/internal/api"
	"github.com/JustJay7/case-manager/internal/auth"
	"github.com/JustJay7/case-manager/internal/billing"
	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/calendar"
	"github.com/JustJay7/case-manager/internal/cases"
	"github.com/JustJay7/case-manager/internal/clients"
	"github.com/JustJay7/case-manager/internal/config"
	"github.com/JustJay7/case-manager/internal/dashboard"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/documents"
	"github.com/JustJay7/case-manager/internal/firm"
	"github.com/JustJay7/case-manager/internal/server"
	"github.com/JustJay7/case-manager/internal/session"
	"github.com/JustJay7/case-manager/internal/storage"
	"github.com/JustJay7/case-manager/pkg/logger"
)

func main() {
	var migrate bool
	flag.BoolVar(&migrate, "migrate", false, "Run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	target := cfg.DatabasePath
	if cfg.DatabaseDriver == "postgres" {
		target = cfg.DatabaseDSN
	}
	db, err := database.Initialize(cfg.DatabaseDriver, target)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}

	if migrate {
		log.Info("Database migrations completed successfully", "driver", cfg.DatabaseDriver)
		return
	}

	cacheService := newCache(cfg, log)

	store, err := storage.New(cfg.StorageDir, cfg.PublicBaseURL, cfg.MaxUploadSize)
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}

	firmService := firm.NewService(db, store, log.With("component", "firm"))
	deps := api.Deps{
		DB:        db,
		Cache:     cacheService,
		Auth:      auth.NewService(db, auth.Config{Secret: cfg.SessionSecret, TTL: cfg.SessionTTL}, log.With("component", "auth")),
		Sessions:  session.NewStore(db),
		Clients:   clients.NewService(clients.NewStore(db), cacheService, log.With("component", "clients")),
		Cases:     cases.NewService(cases.NewStore(db), cacheService, log.With("component", "cases")),
		Firm:      firmService,
		Documents: documents.NewService(db, store, cacheService, log.With("component", "documents")),
		Calendar:  calendar.NewService(db, cacheService, log.With("component", "calendar")),
		Billing:   billing.NewService(db, log.With("component", "billing")),
		Dashboard: dashboard.NewService(db, cacheService, log.With("component", "dashboard")),
		Storage:   store,
		Logger:    log,
		Config:    cfg,
	}

	srv := server.New(cfg, deps, log)

	log.Info("Starting Case Manager",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.DatabaseDriver,
		"cache", cfg.CacheBackend,
	)

	if err := srv.Run(); err != nil {
		log.Fatal("Server failed to start", "error", err)
	}
}

// newCache picks the RPC result cache. An unreachable Redis falls back to
// the in-process cache.
func newCache(cfg *config.Config, log *logger.Logger) cache.Cache {
	if cfg.CacheBackend == "redis" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		}, log)
		if err == nil {
			return rc
		}
		log.Warn("Redis unavailable, using memory cache", "addr", cfg.RedisAddr, "error", err)
	}
	return cache.NewCache(cfg.CacheSize, cfg.CacheTTL)
}
