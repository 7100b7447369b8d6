package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kkkppp/p2proto/internal/application/services"
	"github.com/kkkppp/p2proto/internal/config"
	"github.com/kkkppp/p2proto/internal/infrastructure/database"
	"github.com/kkkppp/p2proto/internal/infrastructure/persistence"
	"github.com/kkkppp/p2proto/internal/interfaces/rest"
	"github.com/kkkppp/p2proto/pkg/auth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("✅ Database connection established (%s)", db.Dialect())

	if err := persistence.MigrateCatalog(ctx, db); err != nil {
		log.Fatalf("Failed to initialize catalog: %v", err)
	}

	svcMgr := services.NewServiceManager(db, services.Options{VerifyDDL: !cfg.SkipDDLVerify})
	log.Println("🔧 Service manager initialized")

	if cfg.JWTSecret == "" {
		log.Println("⚠️  JWT_SECRET is not set, using the development secret")
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := rest.NewRouter(svcMgr, tokens)

	port := cfg.Port
	log.Println("🚀 p2proto backend started")
	log.Printf("📍 Server:         http://localhost:%s", port)
	log.Printf("🗂  Tables API:     http://localhost:%s/api/tables", port)
	log.Printf("💾 Data API:       http://localhost:%s/api/data", port)
	log.Printf("📐 Formula API:    http://localhost:%s/api/formula", port)
	log.Printf("💚 Health check:   http://localhost:%s/health", port)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	svcMgr.EventBus.Clear()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
