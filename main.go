package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-eventgrid/internal/auth"
	"ms-eventgrid/internal/config"
	"ms-eventgrid/internal/database/migrations"
	event_db "ms-eventgrid/internal/events/db"
	"ms-eventgrid/internal/events/event_api"
	events "ms-eventgrid/internal/events/service"
	"ms-eventgrid/internal/kafka"
	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/metrics"
	ticket_db "ms-eventgrid/internal/tickets/db"
	"ms-eventgrid/internal/tickets/listener"
	"ms-eventgrid/internal/tickets/qr"
	ticketredis "ms-eventgrid/internal/tickets/redis"
	tickets "ms-eventgrid/internal/tickets/service"
	"ms-eventgrid/internal/tickets/ticket_api"
)

func verifyConnections(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	if cfg.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		_ = sqldb.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func buildVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) auth.Verifier {
	if cfg.OIDCIssuer != "" {
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to discover OIDC issuer %s: %v", cfg.OIDCIssuer, err))
		}
		log.Info("AUTH", fmt.Sprintf("Verifying organizer tokens against %s", cfg.OIDCIssuer))
		return verifier
	}
	if cfg.JWTSecret == "" {
		log.Fatal("CONFIG", "either OIDC_ISSUER or JWT_SECRET must be set")
	}
	log.Info("AUTH", "Verifying organizer tokens with the shared JWT secret")
	return auth.NewHMACVerifier(cfg.JWTSecret)
}

// requestLogger writes one API line per request.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", status), time.Since(start).String())
		})
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Ticketing Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("APP", "Verifying database connections")
	bunDB := verifyConnections(cfg.Database, log)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		// The runner is not closed here: closing it closes the shared *sql.DB.
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: cfg.Database.MigrationsDir,
			AutoMigrate:   true,
		}, log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Failed to run migrations: %v", err))
		}
		log.LogDatabase("MIGRATE", "schema_migrations", "Database schema is up to date")
	}

	monitor := metrics.NewMonitor()

	ticketService := tickets.NewTicketService(&ticket_db.DB{Bun: bunDB}, log)
	ticketService.Metrics = monitor
	ticketService.QR = qr.NewQRGenerator(cfg.Booking.QRSize)

	if cfg.Redis.Addr != "" {
		redisClient, err := ticketredis.Connect(ctx, cfg.Redis.Addr, log)
		if err != nil {
			log.Warn("REDIS", fmt.Sprintf("Booking guard disabled: %v", err))
		} else {
			defer redisClient.Close()
			ticketService.Guard = ticketredis.NewBookingGuard(redisClient, cfg.Booking.GuardTTL, log)
		}
	} else {
		log.Info("REDIS", "REDIS_ADDR not set, booking guard disabled")
	}

	var (
		producer  *kafka.Producer
		consumers []*kafka.Consumer
		wg        sync.WaitGroup
	)
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}

		producer = kafka.NewProducer(cfg.Kafka.Brokers, log)
		ticketService.Publisher = kafka.NewTicketPublisher(producer, cfg.Kafka.Topics)
		log.Info("KAFKA", "Kafka producer initialized successfully")

		handlers := map[string]kafka.MessageHandler{
			cfg.Kafka.Topics.PaymentReconcile: (&listener.PaymentReconciler{Service: ticketService, Logger: log}).HandleMessage,
			cfg.Kafka.Topics.UserRegistered:   (&listener.UserLinker{Service: ticketService, Logger: log}).HandleMessage,
		}
		for topic, handler := range handlers {
			consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topic, cfg.Kafka.GroupID, log)
			consumers = append(consumers, consumer)
			wg.Add(1)
			go func(handler kafka.MessageHandler) {
				defer wg.Done()
				if err := consumer.Start(ctx, handler); err != nil {
					log.Error("KAFKA", fmt.Sprintf("Consumer for %s stopped: %v", consumer.Topic, err))
				}
			}(handler)
		}
	} else {
		log.Info("KAFKA", "KAFKA_ENABLED is false, domain events will not be published")
	}

	eventService := events.NewEventService(&event_db.DB{Bun: bunDB}, log)

	hideInternal := cfg.Server.IsProduction()
	ticketHandler := ticket_api.NewHandler(ticketService, log, hideInternal)
	eventHandler := event_api.NewHandler(eventService, ticketService, log, hideInternal)
	organizerAuth := auth.Middleware(buildVerifier(ctx, cfg.Auth, log), log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(requestLogger(log))
	r.Use(monitor.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := bunDB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/tickets", func(r chi.Router) {
		ticketHandler.RegisterRoutes(r, organizerAuth)
	})
	log.Info("ROUTER", "Ticket routes registered under /api/tickets")

	r.Route("/api/events", func(r chi.Router) {
		eventHandler.RegisterRoutes(r, organizerAuth)
	})
	log.Info("ROUTER", "Event routes registered under /api/events")

	r.Route("/internal", func(r chi.Router) {
		r.Use(auth.InternalTokenMiddleware(cfg.Auth.InternalToken))
		ticketHandler.RegisterInternalRoutes(r)
	})
	if cfg.Auth.InternalToken == "" {
		log.Warn("AUTH", "INTERNAL_API_TOKEN not set, internal routes will reject every request")
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Ticketing Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}

	cancel()
	wg.Wait()
	for _, consumer := range consumers {
		if err := consumer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close consumer for %s: %v", consumer.Topic, err))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
	log.Info("HTTP", "✅ Ticketing Service shutdown complete")
}
