package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civic-portal/internal/api/routes"
	"civic-portal/internal/config"
	"civic-portal/internal/logger"
	"civic-portal/internal/metrics"
	"civic-portal/internal/models"
	"civic-portal/internal/services"
	"civic-portal/internal/store"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	// Initialize database
	db, err := models.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer models.Close(db)

	gw, err := store.FromGorm(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to open persistence gateway")
	}

	// Create tables, seed services and the admin account
	authService := services.NewAuthService(db, cfg)
	if err := services.NewSetupService(db, authService, cfg, log).EnsureSchema(context.Background()); err != nil {
		log.WithError(err).Fatal("Failed to initialize schema")
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	routes.SetupRoutes(r, routes.Deps{
		Config:  cfg,
		DB:      db,
		Gateway: gw,
		Logger:  log,
		Metrics: metrics.NewMetrics(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", srv.Addr).WithField("database", cfg.Database.Type).Info("Starting portal server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
}
