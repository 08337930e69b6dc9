package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/workplacebuddy/shurly/pkg/shurly/aliases"
	"github.com/workplacebuddy/shurly/pkg/shurly/auth"
	"github.com/workplacebuddy/shurly/pkg/shurly/config"
	"github.com/workplacebuddy/shurly/pkg/shurly/database"
	"github.com/workplacebuddy/shurly/pkg/shurly/destinations"
	"github.com/workplacebuddy/shurly/pkg/shurly/hits"
	"github.com/workplacebuddy/shurly/pkg/shurly/metrics"
	"github.com/workplacebuddy/shurly/pkg/shurly/middleware"
	"github.com/workplacebuddy/shurly/pkg/shurly/models"
	"github.com/workplacebuddy/shurly/pkg/shurly/notes"
	"github.com/workplacebuddy/shurly/pkg/shurly/redirect"
	"github.com/workplacebuddy/shurly/pkg/shurly/users"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	if err := auth.EnsureInitialUser(db, cfg.InitialUsername, cfg.InitialPassword); err != nil {
		log.Fatalf("Failed to ensure initial user exists: %v", err)
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatalf("Failed to generate JWT secret: %v", err)
		}
		log.Printf("No JWT secret configured, generated one: tokens will not survive a restart")
		log.Printf("Set JWT_SECRET=%s to keep tokens valid across restarts", base64.RawURLEncoding.EncodeToString(secret))
	}
	tokens := auth.NewTokens(secret, cfg.TokenTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsCollector := metrics.NewCollector(registry)

	hitCollector := hits.NewCollector(db, cfg.HitBuffer, metricsCollector)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		// Token endpoint (public, rate limited per client IP)
		loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)
		authHandler := auth.NewHandler(db, tokens)
		api.POST("/users/token", loginLimiter.Middleware(), authHandler.Token)

		protected := api.Group("", auth.AuthMiddleware(db, tokens))

		usersHandler := users.NewHandler(db, tokens)
		usersHandler.RegisterRoutes(protected.Group("/users"))

		destinationsGroup := protected.Group("/destinations")
		destinations.NewHandler(db).RegisterRoutes(destinationsGroup)
		aliases.NewHandler(db).RegisterRoutes(destinationsGroup)
		notes.NewHandler(db).RegisterRoutes(destinationsGroup)
	}

	// Every unmatched path is a candidate slug
	redirectHandler := redirect.NewHandler(db, hitCollector, metricsCollector)
	r.NoRoute(redirectHandler.Resolve)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	// drain buffered page hits before exiting
	hitCollector.Close()
	log.Println("Done")
}
