/**
 * @description
 * This is the main entry point for the allocation service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external API clients, message brokers, repositories, the core
 * application service, the cron scheduler and the HTTP server. It wires everything
 * together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Redis client for the OTP rate limiter.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq, pkg/smsclient: Clients for RabbitMQ and the SMS gateway.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/api"
	"github.com/belal1alaidaroos/TestProject-sub001/internal/app"
	"github.com/belal1alaidaroos/TestProject-sub001/internal/config"
	"github.com/belal1alaidaroos/TestProject-sub001/internal/store"
	rmrabbit "github.com/belal1alaidaroos/TestProject-sub001/pkg/rabbitmq"
	"github.com/belal1alaidaroos/TestProject-sub001/pkg/smsclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting allocation-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish lifecycle and audit events.
	var producer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		producer = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the SMS gateway client for OTP dispatch. A missing gateway should
	// not prevent the service from booting; OTP delivery will degrade.
	var smsSender smsclient.Sender
	if strings.TrimSpace(cfg.SMSAPIBaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"sms gateway not configured; otp delivery disabled\" env=SMS_API_BASE_URL")
	} else {
		smsSender = smsclient.NewClient(cfg.SMSAPIBaseURL, cfg.SMSAPIKey)
	}

	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; otp rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; otp rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; otp rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)
	repository.SetRetryAttempts(cfg.DeadlockRetryBudget)

	var rateLimiter app.RateLimiter
	if redisClient != nil {
		rateLimiter = app.NewRedisOTPRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Initialize the core application service with its dependencies.
	allocationService := app.NewService(repository, producer, smsSender, rateLimiter, app.Policy{
		ReservationTTL:    time.Duration(cfg.ReservationTTLMinutes) * time.Minute,
		ExtensionMin:      time.Duration(cfg.ExtensionMinMinutes) * time.Minute,
		ExtensionMax:      time.Duration(cfg.ExtensionMaxMinutes) * time.Minute,
		PaymentSessionTTL: time.Duration(cfg.PaymentSessionTTLMinutes) * time.Minute,
		OTPMaxAttempts:    cfg.OTPMaxAttempts,
		OTPSendLimit:      cfg.OTPSendLimitPerWindow,
		OTPSendWindow:     time.Duration(cfg.OTPSendWindowSeconds) * time.Second,
		InvoiceDueIn:      time.Duration(cfg.InvoiceDueInDays) * 24 * time.Hour,
	})

	// Wire up the worker intake consumer: agencies publish intake batches that
	// register workers into the pool.
	intakeConsumer := app.NewWorkerIntakeConsumer(allocationService)
	rabbitConsumer, err := rmrabbit.NewEventConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; worker intake disabled\" err=%v", err)
	} else {
		defer rabbitConsumer.Close()
		intakeBindings := map[string]func([]byte) bool{
			app.WorkerIntakeRoutingKey: intakeConsumer.HandleMessage,
		}
		if err := rabbitConsumer.Subscribe(rmrabbit.AllocationExchange, cfg.WorkerIntakeQueue, intakeBindings); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"worker intake consumer start failed\" err=%v", err)
		}
	}

	// Start the expiry sweeps on the cron scheduler.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	jobs := app.NewJobs(allocationService, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()

	// Initialize the API handlers and set up the HTTP router.
	allocationHandlers := api.NewAllocationHandlers(allocationService)
	router := api.AllocationRoutes(allocationHandlers, cfg.JWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	<-scheduler.Stop().Done()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
