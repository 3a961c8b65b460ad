package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"notesync/internal/config"
	"notesync/internal/document"
	"notesync/internal/metrics"
	"notesync/internal/routes"
	"notesync/internal/rpc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// Start Prometheus metrics server
	metrics.ServeMetrics(cfg.MetricsAddr)
	log.Printf("Metrics server started on %s/metrics", cfg.MetricsAddr)

	// Setup Redis client
	rdb, err := startRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to start Redis client: %v", err)
	}

	// Dial the document service
	conn, err := rpc.Dial(cfg.DocumentServiceAddr)
	if err != nil {
		log.Fatalf("document service grpc connection failed: %v", err)
	}
	defer conn.Close()

	client := rpc.NewDocumentServiceClient(conn)
	fetcher := document.NewFetcher(client, rdb, nil, cfg.Coordinator)

	// Setup Gin routes
	router := routes.SetupRoutes(fetcher)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	log.Printf("Server started on %s", cfg.HTTPAddr)

	// Setup signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited")
}

func startRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}
	return rdb, nil
}
