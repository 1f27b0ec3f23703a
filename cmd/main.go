/**
 * @description
 * This is the main entry point for the wallet-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * external API clients, message brokers, repositories, the core application service,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/directory: Client for the account directory's internal API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/restomart/wallet-service/internal/api"
	"github.com/restomart/wallet-service/internal/app"
	"github.com/restomart/wallet-service/internal/config"
	"github.com/restomart/wallet-service/internal/store"
	"github.com/restomart/wallet-service/pkg/directory"
	rmrabbit "github.com/restomart/wallet-service/pkg/rabbitmq"
	"github.com/shopspring/decimal"
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
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting wallet-service\" port=%s", cfg.ServerPort)

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

	// Initialize the data access layer (repository) and ensure the schema exists.
	repository := store.NewPostgresRepository(dbpool)
	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSchema()
	if err := repository.EnsureSchema(schemaCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"schema setup failed\" err=%v", err)
	}

	// Initialize the RabbitMQ producer to publish wallet events.
	var eventPublisher rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		eventPublisher = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		eventPublisher = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the account directory. A missing directory config
	// should not prevent the wallet-service from booting; account existence
	// verification on wallet provisioning will degrade.
	var directoryClient *directory.Client
	if strings.TrimSpace(cfg.DirectoryURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"account directory client not configured; account verification disabled\" env=DIRECTORY_URL")
	} else {
		directoryClient = directory.NewClient(cfg.DirectoryURL, cfg.DirectoryInternalAPIKey)
	}

	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the core application service with its dependencies.
	walletService := app.NewService(
		repository,
		eventPublisher,
		decimal.NewFromFloat(cfg.CommissionRatePercent),
		decimal.NewFromFloat(cfg.ReferralDiscountPercent),
	)

	var rateLimiter *app.RedisRateLimiter
	if redisClient != nil {
		rateLimiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Initialize the API handlers and the router.
	walletHandlers := api.NewWalletHandlers(
		walletService,
		rateLimiter,
		cfg.WithdrawalRateLimitPerMin,
		cfg.ReferralApplyRateLimitPerMin,
	)

	router := chi.NewRouter()
	router.Mount("/", api.WalletRoutes(walletHandlers, cfg.JWTSecret, cfg.InternalAPIKey))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	// Wire up the consumer: settled deposits from the payment bridge and
	// account-created announcements from the directory feed the ledger.
	walletConsumer := app.NewWalletEventsConsumer(walletService, directoryClient)

	rabbitConsumer, err := rmrabbit.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"rabbitmq consumer init failed\" err=%v", err)
	}
	defer rabbitConsumer.Close()

	walletBindings := map[string]func([]byte) bool{
		rmrabbit.RoutingKeyDepositSettled: walletConsumer.HandleDepositSettled,
		rmrabbit.RoutingKeyAccountCreated: walletConsumer.HandleAccountCreated,
	}

	if err := rabbitConsumer.ConsumeWithBindings(rmrabbit.WalletEventsExchange, cfg.WalletEventQueue, walletBindings); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"wallet consumer start failed\" err=%v", err)
	}

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

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
