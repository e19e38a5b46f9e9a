package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"wanna/internal/adapter/storage"
	"wanna/internal/config"
	"wanna/internal/server"
	"wanna/internal/service/icebreaker"
	"wanna/internal/service/matching"
	"wanna/internal/service/notify"

	geoService "wanna/internal/service/geo"
)

func main() {
	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	// Initialize storage adapters
	intentStore := storage.NewIntentStore(db)
	podStore := storage.NewPodStore(db)
	geoIndex := storage.NewGeoIndex(db)

	// Initialize side-effect collaborators
	geocoder := geoService.NewGeocoderService()
	notifier := notify.NewGateway(natsConn, notify.GatewayConfig{
		EventsTopic: cfg.NATS.PodEventsTopic,
	})
	icebreakers := icebreaker.NewGenerator(natsConn)

	// Initialize the matching engine
	scorer := matching.NewScorer(matching.ScorerConfig{
		MatchingRadiusMiles: cfg.Matching.PrimaryRadiusMiles,
	})

	selector := matching.NewSelector(intentStore, geoIndex, scorer, matching.SelectorConfig{
		PrimaryRadiusMiles:  cfg.Matching.PrimaryRadiusMiles,
		FallbackRadiusMiles: cfg.Matching.FallbackRadiusMiles,
		AcceptanceThreshold: cfg.Matching.AcceptanceThreshold,
	})

	assembler := matching.NewAssembler(
		selector,
		intentStore,
		podStore,
		geoIndex,
		geocoder,
		notifier,
		icebreakers,
		matching.AssemblerConfig{
			MinPodSize: cfg.Matching.MinPodSize,
			MaxPodSize: cfg.Matching.MaxPodSize,
			PodExpiry:  cfg.Matching.PodExpiry,
		},
	)

	scheduler := matching.NewScheduler(intentStore, assembler, matching.SchedulerConfig{
		SweepInterval: cfg.Matching.SweepInterval,
		RecencyWindow: cfg.Matching.RecencyWindow,
		BatchLimit:    cfg.Matching.BatchLimit,
	})

	// Start the periodic sweep
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start matching scheduler: %v", err)
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		intentStore,
		podStore,
		geoIndex,
		scheduler,
		natsConn,
		cfg.Intent.DefaultExpiry,
	)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	log.Println("Shutting down services...")

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop the matching scheduler
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Printf("Matching scheduler shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
