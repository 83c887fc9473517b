package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"schoolchat/internal/config"
	"schoolchat/internal/dbmysql"
	"schoolchat/internal/di"
)

func main() {
	log.Println("Starting Chat Service...")

	cfg := config.LoadConfig()

	db, err := dbmysql.NewMySQL(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := dbmysql.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	app, err := di.InitChatApplication(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize chat service: %v", err)
	}
	defer app.Notifications.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduled deliveries are poll-driven; the sweeper owns the timer.
	sweepInterval := time.Duration(cfg.Messaging.SweepIntervalSeconds) * time.Second
	go app.Sweeper.Run(ctx, sweepInterval)

	router := mux.NewRouter()
	app.Handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Chat service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down chat service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Chat service stopped")
}
