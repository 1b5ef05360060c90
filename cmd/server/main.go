package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"valuator/internal/attachment"
	"valuator/internal/config"
	"valuator/internal/geo"
	"valuator/internal/handler"
	"valuator/internal/logger"
	"valuator/internal/repository"
	"valuator/internal/service"
	"valuator/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer logger.Sync()

	log.Infow("Property valuation dashboard",
		"version", Version, "build_time", BuildTime, "git_commit", GitCommit)

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Client state store
	repo, err := repository.NewStateRepository(cfg.State.Driver, cfg.State.DSN)
	if err != nil {
		log.Errorw("Failed to open client state store", "driver", cfg.State.Driver, "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	log.Infow("Client state store ready", "driver", cfg.State.Driver)

	msgs := utils.NewMessages(cfg.Lang)
	clientState := service.NewClientState(repo)
	metrics := service.NewMetrics(prometheus.DefaultRegisterer)

	deps := service.SessionDeps{
		Dispatcher: service.NewPredictionClient(&cfg.Backend, msgs),
		Tokens:     clientState,
		Encoder:    attachment.NewEncoder(cfg.Images.MaxBytes),
		TileLayer: geo.TileLayer{
			Template:    cfg.Maps.TileURL,
			MaxZoom:     geo.MaxZoom,
			Attribution: cfg.Maps.Attribution,
		},
		Messages: msgs,
		Metrics:  metrics,
		Logger:   log,
	}

	if cfg.Maps.APIKey != "" {
		mapsClient, err := geo.NewClient(cfg.Maps.APIKey)
		if err != nil {
			log.Errorw("Failed to create Google Maps client", "error", err)
			os.Exit(1)
		}
		deps.Locator = geo.NewGoogleLocator(mapsClient)
		deps.Resolver = geo.NewGeocodingResolver(mapsClient)
		log.Infow("Server-side geolocation and reverse geocoding enabled")
	} else {
		log.Warnw("GOOGLE_MAPS_API_KEY is not set; device location must be reported by the browser")
	}

	log.Infow("Prediction backend", "base_url", cfg.Backend.BaseURL, "timeout_s", cfg.Backend.Timeout)

	registry := service.NewRegistry(deps)
	defer registry.CloseAll()

	// Initialize handlers
	formHandler := handler.NewFormHandler(registry, deps.TileLayer, msgs)
	stateHandler := handler.NewStateHandler(clientState)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "valuation-dashboard",
			"sessions":   registry.Len(),
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	apiV1 := router.Group("/api/v1")
	formHandler.Register(apiV1)
	stateHandler.Register(apiV1)

	// Serve static files (frontend)
	// This function is implemented in embed.go (production) or static_dev.go (development)
	setupStaticFiles(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infow("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}
	log.Infow("Server stopped")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
