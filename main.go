package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civictrack-be/config"
	"civictrack-be/controllers"
	"civictrack-be/identity"
	"civictrack-be/logger"
	"civictrack-be/models"
	"civictrack-be/routes"
	"civictrack-be/services"
	"civictrack-be/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	envLoaded := config.LoadEnvFile()
	log := logger.Setup()
	if !envLoaded {
		log.Info("No .env file found")
	}

	settings, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rdb, err := config.ConnectRedis(settings.RedisAddress, settings.RedisPassword)
	if err != nil {
		log.Error("redis unavailable", "err", err)
		os.Exit(1)
	}
	if rdb == nil {
		log.Warn("REDIS_ADDRESS not set, rate limiting and name cache disabled")
	} else {
		defer rdb.Close()
	}

	issueStore, users, directory, shutdown := openStore(log, settings)
	defer shutdown()

	if rdb != nil {
		directory = identity.NewCachedDirectory(directory, rdb, settings.DisplayNameTTL)
	}

	issueService := services.NewIssueService(issueStore, directory)
	r := routes.NewRouter(
		controllers.NewIssueController(issueService),
		controllers.NewAuthController(users, settings),
		routes.Options{
			Logger:         log,
			JWTSecret:      settings.JWTSecret,
			AllowedOrigins: settings.AllowedOrigins,
			RateLimit:      rateLimit(rdb, settings),
		},
	)

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", settings.Port, "store", settings.StoreDriver, "env", settings.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", "err", err)
	}
	log.Info("server stopped")
}

// openStore returns the issue store, account store and name directory for the
// configured driver, plus a func releasing their connections.
func openStore(log *slog.Logger, settings *config.Settings) (store.IssueStore, identity.UserStore, identity.Directory, func()) {
	if settings.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		users := identity.NewMemoryUsers()
		return store.NewMemoryStore(), users, users, func() {}
	}

	client, db, err := config.ConnectDB(settings.MongoURI, settings.MongoDatabase)
	if err != nil {
		log.Error("mongo unavailable", "err", err)
		os.Exit(1)
	}
	log.Info("MongoDB connection established successfully!", "database", settings.MongoDatabase)

	issueStore := store.NewMongoStore(db)
	if err := issueStore.EnsureIndexes(); err != nil {
		log.Error("failed to create issue indexes", "err", err)
		os.Exit(1)
	}
	if err := models.EnsureUserIndexes(db.Collection("users")); err != nil {
		log.Error("failed to create user indexes", "err", err)
		os.Exit(1)
	}

	return issueStore, identity.NewMongoUsers(db), identity.NewMongoDirectory(db), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
}

func rateLimit(rdb *redis.Client, settings *config.Settings) routes.RateLimit {
	return routes.RateLimit{
		Client: rdb,
		Prefix: settings.RateLimitPrefix,
		Limit:  settings.ReportLimit,
	}
}
