package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lojadash/backend/internal/cache"
	"lojadash/backend/internal/config"
	"lojadash/backend/internal/httpapi"
	"lojadash/backend/internal/ingest"
	"lojadash/backend/internal/service"
	"lojadash/backend/internal/store"
	"lojadash/backend/internal/store/memory"
	"lojadash/backend/internal/store/sqlstore"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	layout, err := config.LoadLayout(cfg.WorkbookLayoutFile)
	if err != nil {
		log.Fatalf("invalid workbook layout: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	dialect, dsn, err := cfg.DatabaseTarget()
	if err != nil {
		log.Fatalf("invalid database configuration: %v", err)
	}
	if dsn != "" {
		db, err := sqlstore.New(ctx, dialect, dsn)
		if err != nil {
			log.Fatalf("%s unavailable (%v) and a database is configured; refusing to start with in-memory fallback", dialect, err)
		}
		repo = db
		closers = append(closers, db.Close)
		log.Printf("repository: %s", dialect)
	} else {
		repo = memory.New()
		log.Println("repository: in-memory")
	}

	metricsCache := cache.MetricsCache(cache.NewMemoryMetricsCache())
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisMetricsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using in-memory cache", err)
		} else {
			metricsCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: in-memory")
	}

	reader := ingest.NewReader(layout)
	svc := service.New(repo, metricsCache, reader, time.Duration(cfg.MetricsTTLSeconds)*time.Second)
	if cfg.AuthSecret == "" {
		log.Println("[auth] WARN: AUTH_SECRET not set, write endpoints are open")
	}
	api := httpapi.New(svc, httpapi.NewTokenVerifier(cfg.AuthSecret), cfg.AllowedOrigin, cfg.MaxUploadBytes())

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("dashboard backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if cfg.AuthSecret != "" && len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters when set")
	}
	if cfg.AllowedOrigin == "" {
		return fmt.Errorf("ALLOWED_ORIGIN must not be empty")
	}
	return nil
}
