// cmd/server/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"net/http"
	_ "net/http/pprof"

	"github.com/enrollio/referral-backend/internal/config"
	"github.com/enrollio/referral-backend/internal/logger"
	"github.com/enrollio/referral-backend/internal/server"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize zap logger
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	defer log.Sync()

	// Create AppServer with zap logger
	app, err := server.NewAppServer(cfg, log)
	if err != nil {
		log.Sugar().Fatalf("failed to initialize server: %v", err)
	}

	// Start server in a goroutine
	go func() {
		if err := app.Run(); err != nil {
			log.Sugar().Fatalf("server run error: %v", err)
		}
	}()
	if cfg.Server.DebugPort != 0 {
		go func() {
			http.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.DebugPort), nil)
		}()
	}

	// Wait for interrupt (SIGINT/SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Sugar().Info("Received shutdown signal")
	app.GracefulStop()
	log.Sugar().Info("Server stopped")
}
