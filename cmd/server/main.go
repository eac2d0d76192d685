// Command server runs the portal authentication service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/skillsenselab/portal-auth/api"
	"github.com/skillsenselab/portal-auth/config"
	"github.com/skillsenselab/portal-auth/logger"
	"github.com/skillsenselab/portal-auth/oauth"
	"github.com/skillsenselab/portal-auth/observability"
	"github.com/skillsenselab/portal-auth/password"
	"github.com/skillsenselab/portal-auth/server"
	"github.com/skillsenselab/portal-auth/session"
	"github.com/skillsenselab/portal-auth/user"
	"github.com/skillsenselab/portal-auth/web"
)

const serviceName = "portal-auth"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.GetGlobalLogger().Fatal("Configuration error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log := logger.New(&cfg.Logging, serviceName)
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal("Tracer init failed", map[string]interface{}{"error": err.Error()})
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("Database open failed", map[string]interface{}{"error": err.Error()})
	}

	users, err := user.NewGormStore(db, log)
	if err != nil {
		log.Fatal("User store init failed", map[string]interface{}{"error": err.Error()})
	}

	var states oauth.StateStore
	if cfg.Redis.Enabled {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("Redis connection failed", map[string]interface{}{"error": err.Error()})
		}
		defer func() { _ = rdb.Close() }()
		states = oauth.NewRedisStateStore(rdb)
	} else {
		states = oauth.NewMemoryStateStore()
	}

	sessions, err := session.NewService(cfg.Session)
	if err != nil {
		log.Fatal("Session service init failed", map[string]interface{}{"error": err.Error()})
	}

	provider := oauth.NewClient(cfg.OAuth, log)
	hasher := password.NewBcryptHasher()

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()

	engine := srv.GinEngine()
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	handler := api.NewHandler(cfg.OAuth, provider, states, users, sessions, hasher, log)
	handler.RegisterRoutes(engine)
	web.RegisterRoutes(engine)

	if err := srv.Start(ctx); err != nil {
		log.Fatal("Server start failed", map[string]interface{}{"error": err.Error()})
	}

	<-ctx.Done()
	if err := srv.Stop(context.Background()); err != nil {
		log.Error("Shutdown error", map[string]interface{}{"error": err.Error()})
	}
}
