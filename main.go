package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/cocoset/internal/api"
	"github.com/banshee-data/cocoset/internal/config"
	"github.com/banshee-data/cocoset/internal/db"
	"github.com/banshee-data/cocoset/internal/monitor"
	"github.com/banshee-data/cocoset/internal/store/sqlite"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode (mounts the debug routes)")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	dbPath     = flag.String("db", "", "Path to the sqlite database (overrides config)")
	configPath = flag.String("config", "", "Path to a JSON config file")
	migrate    = flag.Bool("migrate", true, "Apply pending schema migrations on startup")
)

func main() {
	flag.Parse()

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	listenAddr := cfg.GetListenAddr()
	if *listen != "" {
		listenAddr = *listen
	}
	databasePath := cfg.GetDBPath()
	if *dbPath != "" {
		databasePath = *dbPath
	}

	database, err := db.NewDB(databasePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if *migrate {
		if err := database.MigrateUp(cfg.GetMigrationsDir()); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	store := sqlite.NewStore(database.DB)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		apiServer := api.NewServer(store, cfg, cfg.GetConvertWorkers())
		mux.Handle("/api/", apiServer.ServeMux())

		statsServer := monitor.NewStatsServer(store.Annotations)
		statsServer.RegisterRoutes(mux)

		// mount the admin debugging routes (accessible only in dev mode or
		// over a trusted network)
		if *devMode {
			database.AttachAdminRoutes(mux)
		}

		server := &http.Server{
			Addr:    listenAddr,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", listenAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
