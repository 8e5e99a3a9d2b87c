package main

import (
	"context"
	"database/sql"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fleet-cloud/internal/admin"
	"fleet-cloud/internal/audit"
	"fleet-cloud/internal/auth"
	"fleet-cloud/internal/mq"
	"fleet-cloud/internal/observability/metrics"
	"fleet-cloud/internal/presence"
	robotsapp "fleet-cloud/internal/robots/application"
	robotsrepo "fleet-cloud/internal/robots/infrastructure/postgres"
	robotshttp "fleet-cloud/internal/robots/interfaces/http"
	telemetryapp "fleet-cloud/internal/telemetry/application"
	"fleet-cloud/internal/telemetry/application/events"
	telemetryrepo "fleet-cloud/internal/telemetry/infrastructure/postgres"
	telemetryinterfaces "fleet-cloud/internal/telemetry/interfaces"
	telemetryhttp "fleet-cloud/internal/telemetry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := buildLogger(cfg.LogFile)
	ctx := context.Background()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	cache, err := presence.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis connect error: %v", err)
	}
	defer cache.Close()

	mqCfg, err := mq.LoadConsumerConfig()
	if err != nil {
		logger.Fatalf("mq config error: %v", err)
	}
	bus, err := mq.NewAMQPBus(cfg.RabbitURL, mq.DefaultExchange, mqCfg, logger)
	if err != nil {
		logger.Fatalf("mq bus error: %v", err)
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.MQConnectTimeout)
	if err := bus.Connect(connectCtx); err != nil {
		cancel()
		logger.Fatalf("mq connect error: %v", err)
	}
	cancel()
	defer bus.Close()

	auditRepo := audit.NewRepository(db)
	historyRepo := telemetryrepo.NewHistoryRepository(db)
	robotRepo := robotsrepo.NewRepository(db)

	robotService, err := robotsapp.NewService(robotRepo, cache, logger)
	if err != nil {
		logger.Fatalf("robots service error: %v", err)
	}
	telemetryService, err := telemetryapp.NewService(cache, bus, historyRepo, cfg.PresenceTTL, logger)
	if err != nil {
		logger.Fatalf("telemetry service error: %v", err)
	}

	historyConsumer, err := telemetryinterfaces.NewHistoryConsumer(historyRepo, logger)
	if err != nil {
		logger.Fatalf("history consumer error: %v", err)
	}
	if err := bus.Consume(mqCfg.Queue, events.TypeTelemetryIngested, historyConsumer.Handle); err != nil {
		logger.Fatalf("consumer bind error: %v", err)
	}

	robotHandler, err := robotshttp.NewHandler(robotService, auditRepo, logger)
	if err != nil {
		logger.Fatalf("robots handler error: %v", err)
	}
	telemetryHandler, err := telemetryhttp.NewHandler(telemetryService, logger)
	if err != nil {
		logger.Fatalf("telemetry handler error: %v", err)
	}
	adminHandler, err := admin.NewHandler(robotService, historyRepo, auditRepo, cfg.LogFile, logger)
	if err != nil {
		logger.Fatalf("admin handler error: %v", err)
	}

	robotAuth := auth.NewRobotKeyMiddleware(robotService)
	adminAuth := auth.NewAdminMiddleware([]byte(cfg.AdminJWTSecret))

	mux := http.NewServeMux()
	mux.Handle("/api/v1/robots", robotHandler)
	mux.Handle("/api/v1/robots/", robotHandler)
	mux.Handle("/api/v1/robots/me", robotAuth.Wrap(robotshttp.MeHandler{}))
	mux.Handle("/api/v1/robots/telemetry", robotAuth.Wrap(telemetryHandler))
	mux.Handle("/api/v1/robots/me/telemetry", robotAuth.Wrap(telemetryHandler))
	mux.Handle("/api/v1/robots/me/telemetry/history", robotAuth.Wrap(telemetryHandler))
	mux.Handle("/api/v1/admin/", adminAuth.Wrap(adminHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RabbitURL        string
	HTTPAddr         string
	PresenceTTL      time.Duration
	AdminJWTSecret   string
	LogFile          string
	MQConnectTimeout time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		RedisAddr:        getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getenvDefault("REDIS_PASSWORD", ""),
		RedisDB:          getenvIntDefault("REDIS_DB", 0),
		RabbitURL:        getenvDefault("RABBITMQ_URL", ""),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		PresenceTTL:      time.Duration(getenvIntDefault("PRESENCE_TTL_SECONDS", 60)) * time.Second,
		AdminJWTSecret:   getenvDefault("ADMIN_JWT_SECRET", ""),
		LogFile:          getenvDefault("LOG_FILE", "logs/app.log"),
		MQConnectTimeout: getenvDuration("MQ_CONNECT_TIMEOUT", time.Minute),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.RabbitURL == "" {
		log.Fatal("RABBITMQ_URL is required")
	}
	if cfg.AdminJWTSecret == "" {
		log.Fatal("ADMIN_JWT_SECRET is required")
	}
	return cfg
}

// buildLogger tees to the log file feeding the admin log tail. Falls
// back to stdout only when the file cannot be opened.
func buildLogger(path string) *log.Logger {
	writer := io.Writer(os.Stdout)
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				writer = io.MultiWriter(os.Stdout, file)
			}
		}
	}
	return log.New(writer, "", log.LstdFlags)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
