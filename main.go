package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awsscheduler "github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"ms-discovery/internal/auth"
	"ms-discovery/internal/awsutil"
	"ms-discovery/internal/backend"
	"ms-discovery/internal/clock"
	"ms-discovery/internal/config"
	"ms-discovery/internal/handlers"
	"ms-discovery/internal/kafka"
	"ms-discovery/internal/scheduler"
	"ms-discovery/internal/services"
	"ms-discovery/internal/status"
	"ms-discovery/internal/trending"
)

const shutdownTimeout = 10 * time.Second

func main() {
	syncOnly := flag.Bool("sync", false, "Sync the catalog from the backend, recalculate trending and exit")
	flag.Parse()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	clk := clock.NewSystem()

	dbService, err := services.NewDatabaseService(services.DatabaseConfig{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		DBName:   cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database service: %v", err)
	}
	defer dbService.Close()

	if err := dbService.RunMigrations(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	redisOptions, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOptions)
	defer redisClient.Close()

	catalog := services.NewCatalogService(dbService.DB)
	wishlist := services.NewWishlistService(dbService.DB)
	trendingCache := services.NewTrendingCache(redisClient, cfg.TrendingCacheTTL)
	backendClient := backend.NewClient(cfg, httpClient)

	sqsClient, schedulerClient := newAWSClients(ctx, cfg)
	trendingProcessor := trending.NewProcessor(sqsClient, cfg.SQSTrendingQueueURL, catalog, backendClient, trendingCache, clk, cfg.TrendingTopN)

	if *syncOnly {
		runSync(ctx, catalog, backendClient, trendingProcessor)
		return
	}

	var wg sync.WaitGroup

	var statusScheduler kafka.StatusScheduler
	if cfg.SQSStatusQueueARN != "" {
		statusScheduler = scheduler.NewService(cfg, schedulerClient)
	} else {
		log.Println("Status queue ARN not configured, status transitions will not be scheduled")
	}

	eventConsumer := kafka.NewEventConsumer(cfg, catalog, statusScheduler, clk)
	if eventConsumer.Enabled() {
		defer eventConsumer.Close()
		startWorker(ctx, &wg, "event consumer", eventConsumer.StartConsuming)
	} else {
		log.Println("Kafka URL not configured, skipping event consumer setup")
	}

	if cfg.SQSTrendingQueueURL != "" {
		startWorker(ctx, &wg, "trending processor", trendingProcessor.ProcessMessages)
	} else {
		log.Println("Trending queue URL not configured, skipping trending processor setup")
	}

	if cfg.SQSStatusQueueURL != "" {
		statusProcessor := status.NewProcessor(sqsClient, cfg.SQSStatusQueueURL, catalog, backendClient, clk)
		startWorker(ctx, &wg, "status processor", statusProcessor.ProcessMessages)
	} else {
		log.Println("Status queue URL not configured, skipping status processor setup")
	}

	if warning := adminAuthWarning(cfg); warning != "" {
		log.Println(warning)
	}

	eventsHandler := handlers.NewEventsHandler(catalog, trendingCache, clk, cfg)
	router := setupRouter(cfg, routerDeps{
		events:   eventsHandler,
		wishlist: handlers.NewWishlistHandler(wishlist, eventsHandler),
		admin:    handlers.NewAdminHandler(catalog, backendClient, trendingProcessor),
		health: handlers.NewHealthHandler(map[string]func() error{
			"database": dbService.CheckConnection,
			"redis":    trendingCache.CheckConnection,
		}),
	})

	serve(ctx, cfg, router)
	stop()
	wg.Wait()
}

func newAWSClients(ctx context.Context, cfg config.Config) (*sqs.Client, *awsscheduler.Client) {
	awsCfg, err := awsutil.LoadConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("unable to load AWS SDK config, %v", err)
	}
	log.Println("AWS clients initialized")
	return awsutil.NewSQSClient(awsCfg, cfg), awsutil.NewSchedulerClient(awsCfg, cfg)
}

func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, run func(context.Context) error) {
	log.Printf("Starting %s", name)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Error in %s: %v", name, err)
		}
	}()
}

func runSync(ctx context.Context, catalog *services.CatalogService, source services.EventSource, processor *trending.Processor) {
	n, err := catalog.SyncFromBackend(ctx, source)
	if err != nil {
		log.Fatalf("Catalog sync failed: %v", err)
	}
	snapshot, err := processor.Recalculate(ctx)
	if err != nil {
		log.Fatalf("Trending recalculation failed: %v", err)
	}
	log.Printf("Synced %d events, %d trending", n, len(snapshot.EventIDs))
}

// adminAuthWarning describes the risk of serving admin routes without a
// token secret, or returns "" when one is configured.
func adminAuthWarning(cfg config.Config) string {
	if cfg.JWTSecret != "" {
		return ""
	}
	return "WARNING: JWT_SECRET is not set, tokens are not verified and any bearer token claiming an admin role can call /api/discovery/admin/v1"
}

type routerDeps struct {
	events   *handlers.EventsHandler
	wishlist *handlers.WishlistHandler
	admin    *handlers.AdminHandler
	health   *handlers.HealthHandler
}

func setupRouter(cfg config.Config, deps routerDeps) *mux.Router {
	router := mux.NewRouter()
	router.Use(auth.CORSMiddleware(cfg))

	authMiddleware := auth.NewMiddleware(auth.NewTokenParser(cfg.JWTSecret))

	// Public discovery feeds
	publicRouter := router.PathPrefix("/api/discovery/v1").Subrouter()
	publicRouter.HandleFunc("/events", deps.events.ListEvents).Methods("GET")
	publicRouter.HandleFunc("/events/recent", deps.events.RecentEvents).Methods("GET")
	publicRouter.HandleFunc("/events/trending", deps.events.TrendingEvents).Methods("GET")
	publicRouter.HandleFunc("/events/{eventId}", deps.events.GetEvent).Methods("GET")

	wishlistRouter := router.PathPrefix("/api/discovery/wishlist/v1").Subrouter()
	wishlistRouter.Use(authMiddleware.Authenticate)
	wishlistRouter.HandleFunc("/toggle", deps.wishlist.Toggle).Methods("POST")
	wishlistRouter.HandleFunc("/items", deps.wishlist.Items).Methods("GET")
	wishlistRouter.HandleFunc("/is-wishlisted/{eventId}", deps.wishlist.IsWishlisted).Methods("GET")
	wishlistRouter.HandleFunc("/{eventId}", deps.wishlist.Remove).Methods("DELETE")

	adminRouter := router.PathPrefix("/api/discovery/admin/v1").Subrouter()
	adminRouter.Use(authMiddleware.Authenticate, authMiddleware.RequireAdmin)
	adminRouter.HandleFunc("/sync", deps.admin.Sync).Methods("POST")

	router.HandleFunc("/api/discovery/health", deps.health.HandleHealth).Methods("GET")
	router.HandleFunc("/healthz", deps.health.HandleHealth).Methods("GET")
	router.HandleFunc("/readyz", deps.health.HandleReadiness).Methods("GET")
	router.HandleFunc("/livez", deps.health.HandleLiveness).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

func serve(ctx context.Context, cfg config.Config, router http.Handler) {
	serverAddr := cfg.ServerHost + ":" + cfg.ServerPort
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	log.Printf("Starting HTTP server on %s", serverAddr)
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("HTTP server stopped")
}
