package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"bitbucket.org/mmdatafocus/qist_backend/analytics"
	"bitbucket.org/mmdatafocus/qist_backend/cloudsync"
	"bitbucket.org/mmdatafocus/qist_backend/config"
	"bitbucket.org/mmdatafocus/qist_backend/connectivity"
	"bitbucket.org/mmdatafocus/qist_backend/export"
	"bitbucket.org/mmdatafocus/qist_backend/localstore"
	"bitbucket.org/mmdatafocus/qist_backend/middlewares"
	"bitbucket.org/mmdatafocus/qist_backend/offline"
	"bitbucket.org/mmdatafocus/qist_backend/remote"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
)

const defaultPort = "8080"

var tracer = otel.Tracer("qist-backend")

// application bundles the wired services. It is assigned once after the
// local store is open; until then the readiness gate returns 503.
type application struct {
	store     *localstore.Store
	remote    remote.Client
	monitor   *connectivity.Monitor
	syncer    *cloudsync.Manager
	data      *offline.DataService
	analytics *analytics.Service
	export    *export.Service
	logger    *logrus.Logger
}

var app *application

func main() {
	port := utils.EnvOrDefault("API_PORT", utils.EnvOrDefault("PORT", defaultPort))

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server first; app endpoints 503 until the store is up.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if app == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Dependencies after the port is open.
	if err := config.ConnectLocalDatabase(); err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Panic("cannot open local mirror: " + err.Error())
	}
	config.ConnectRedis(context.Background())

	store := localstore.New(config.GetLocalDB())
	if !utils.EnvBoolDefault("SKIP_MIGRATIONS", false) {
		if err := store.AutoMigrate(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Panic("cannot migrate local mirror: " + err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	client := buildRemoteClient(logger)
	syncer := cloudsync.New(store, client, logger)
	monitor := connectivity.NewMonitor(client, probeInterval(), logger, func() {
		syncer.AutoSync(context.Background())
	})
	monitor.Start()

	app = &application{
		store:     store,
		remote:    client,
		monitor:   monitor,
		syncer:    syncer,
		data:      offline.NewDataService(store, client, monitor, syncer, offline.NewRedisCache(), logger),
		analytics: analytics.NewService(store),
		export:    export.NewService(store),
		logger:    logger,
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop the probe loop before draining so no new sync cycle starts.
	monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if db := config.GetLocalDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// buildRemoteClient picks the remote transport: a REST endpoint when
// REMOTE_API_URL is set, a direct database connection when REMOTE_DB_* is
// set, otherwise the unconfigured sentinel (pure offline mode).
func buildRemoteClient(logger *logrus.Logger) remote.Client {
	if baseURL := strings.TrimSpace(os.Getenv("REMOTE_API_URL")); baseURL != "" {
		client, err := remote.NewRestClient(baseURL, os.Getenv("REMOTE_API_KEY"))
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "remote"}).Warn("invalid REMOTE_API_URL; running offline: " + err.Error())
			return remote.Unconfigured{}
		}
		return client
	}

	db, err := config.ConnectRemoteDatabase()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "remote"}).Warn("remote database unreachable; running offline: " + err.Error())
		return remote.Unconfigured{}
	}
	if db == nil {
		logger.WithFields(logrus.Fields{"field": "remote"}).Info("no remote store configured; running offline")
		return remote.Unconfigured{}
	}

	client := remote.NewGormClient(db)
	if utils.EnvBoolDefault("REMOTE_DB_AUTOMIGRATE", false) {
		if err := client.AutoMigrate(); err != nil {
			logger.WithFields(logrus.Fields{"field": "remote"}).Warn("remote migrate failed: " + err.Error())
		}
	}
	return client
}

func probeInterval() time.Duration {
	return time.Duration(utils.IntFromEnv("PROBE_INTERVAL_SECONDS", 30)) * time.Second
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// customErrorLogger logs only requests that collected errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}
