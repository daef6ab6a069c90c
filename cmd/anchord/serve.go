package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meta-anchor/conf"
	"meta-anchor/controller"
	"meta-anchor/metrics"

	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context())
		},
	}
}

func serveRun(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	router := controller.SetupAnchorRouter(controller.Services{
		Anchor: a.anchors,
		Users:  a.users,
		Tokens: a.tokens,
		Health: a.health,
	}, controller.RouterConfig{
		SwaggerHost:    conf.Cfg.Indexer.SwaggerBaseUrl,
		CorsOrigins:    conf.Cfg.Server.CorsOrigins,
		RateLimit:      conf.Cfg.Server.RateLimit,
		Metrics:        a.metrics,
		MetricsHandler: metrics.Handler(),
	})

	srv := &http.Server{
		Addr:    ":" + conf.Cfg.Port,
		Handler: router,
	}

	// Start health monitor
	a.health.Start()

	// Start HTTP API service (in goroutine)
	go startServer(srv)
	log.Println("Anchor API service started successfully")

	// Wait for shutdown signal
	waitForShutdown()

	log.Println("Shutting down anchor service...")

	// Gracefully shutdown HTTP service
	shutdownServer(srv)

	log.Println("Server exited")
	return nil
}

// startServer start HTTP server
func startServer(srv *http.Server) {
	log.Printf("Anchor API service starting on port %s...", conf.Cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// waitForShutdown wait for shutdown signal
func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}

// shutdownServer gracefully shutdown server; in-flight submissions get a
// full confirmation window to finish
func shutdownServer(srv *http.Server) {
	grace := time.Duration(conf.Cfg.Ledger.PollIntervalMs*conf.Cfg.Ledger.MaxAttempts)*time.Millisecond + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
