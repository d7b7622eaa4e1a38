package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chirpverse/chirp/backend/internal/auth"
	"github.com/chirpverse/chirp/backend/internal/chat"
	"github.com/chirpverse/chirp/backend/internal/config"
	"github.com/chirpverse/chirp/backend/internal/conversations"
	"github.com/chirpverse/chirp/backend/internal/messages"
	"github.com/chirpverse/chirp/backend/internal/posts"
	"github.com/chirpverse/chirp/backend/internal/presence"
	"github.com/chirpverse/chirp/backend/internal/profile"
	"github.com/chirpverse/chirp/backend/internal/storage/postgres"
	"github.com/chirpverse/chirp/backend/internal/storage/sqlite"
	"github.com/chirpverse/chirp/backend/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	migrate := flag.Bool("migrate", false, "run migrations and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "err", err)
	}
	cfg := config.MustLoad()

	var db *sqlx.DB
	var ping func(context.Context) error
	switch cfg.DBDriver {
	case "postgres":
		conn, err := postgres.New(cfg.PostgresDsn)
		if err != nil {
			log.Fatalf("Error connecting to postgres: %v", err)
		}
		if *migrate {
			if err := conn.Migrate(); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			slog.Info("migration completed")
			return
		}
		db = conn.Db
		ping = conn.Ping
	default:
		conn, err := sqlite.New(cfg.SQLiteDsn)
		if err != nil {
			log.Fatalf("Error opening sqlite: %v", err)
		}
		if *migrate {
			if err := conn.Migrate(); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			slog.Info("migration completed")
			return
		}
		db = conn.Db
		ping = conn.Ping
	}
	defer db.Close()

	registry := presence.NewRegistry()
	hub := chat.NewHub(registry)
	go hub.Run()

	msgStore := messages.NewStore(db, cfg.MaxMessageLen)
	convSvc := conversations.NewService(db)

	r := gin.Default()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	users.RegisterPublic(api, db, cfg)
	chat.RegisterWS(api, hub, cfg.JWTSecret)

	authed := api.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	messages.Register(authed, msgStore, hub)
	conversations.Register(authed, convSvc)
	profile.Register(authed, db)
	posts.Register(authed, db)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	slog.Info("chirp backend listening", "addr", cfg.Addr, "driver", cfg.DBDriver)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	registry.Clear()
	slog.Info("shutdown complete")
}
