package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/transito-regional/licensing-api/internal/adapters/httpapi"
	memdriverrepo "github.com/transito-regional/licensing-api/internal/adapters/memory/driverrepo"
	mementityrepo "github.com/transito-regional/licensing-api/internal/adapters/memory/entityrepo"
	memexamrepo "github.com/transito-regional/licensing-api/internal/adapters/memory/examrepo"
	memlicenserepo "github.com/transito-regional/licensing-api/internal/adapters/memory/licenserepo"
	postgres "github.com/transito-regional/licensing-api/internal/adapters/postgres"
	pgdriverrepo "github.com/transito-regional/licensing-api/internal/adapters/postgres/driverrepo"
	pgentityrepo "github.com/transito-regional/licensing-api/internal/adapters/postgres/entityrepo"
	pgexamrepo "github.com/transito-regional/licensing-api/internal/adapters/postgres/examrepo"
	pglicenserepo "github.com/transito-regional/licensing-api/internal/adapters/postgres/licenserepo"
	"github.com/transito-regional/licensing-api/internal/app/exams"
	"github.com/transito-regional/licensing-api/internal/app/licenses"
	platformclock "github.com/transito-regional/licensing-api/internal/platform/clock"
	"github.com/transito-regional/licensing-api/internal/platform/config"
	driverrepoport "github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
	entityrepoport "github.com/transito-regional/licensing-api/internal/ports/out/entityrepo"
	examrepoport "github.com/transito-regional/licensing-api/internal/ports/out/examrepo"
	licenserepoport "github.com/transito-regional/licensing-api/internal/ports/out/licenserepo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	clk := platformclock.NewSystemClock()

	var (
		licenseRepo licenserepoport.Repository
		examRepo    examrepoport.Repository
		driverRepo  driverrepoport.Repository
		entityRepo  entityrepoport.Repository
		cleanup     func()
	)

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		if err := postgres.Migrate(context.Background(), pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		cleanup = pool.Close

		licenseRepo = pglicenserepo.NewRepo(pool)
		examRepo = pgexamrepo.NewRepo(pool)
		driverRepo = pgdriverrepo.NewRepo(pool)
		entityRepo = pgentityrepo.NewRepo(pool)
	default:
		licenseRepo = memlicenserepo.NewRepo()
		examRepo = memexamrepo.NewRepo()
		driverRepo = memdriverrepo.NewRepo()
		entityRepo = mementityrepo.NewRepo()
	}

	if cleanup != nil {
		defer cleanup()
	}

	licenseSvc := licenses.NewService(licenseRepo, driverRepo, clk)
	examSvc := exams.NewService(examRepo, driverRepo, entityRepo)

	api := httpapi.NewServer(licenseSvc, examSvc, driverRepo, entityRepo)
	handler := httpapi.NewRouter(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on :%s (storage=%s)", cfg.Port, cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
