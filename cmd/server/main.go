package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"booking-system/internal/clock"
	"booking-system/internal/config"
	"booking-system/internal/database"
	"booking-system/internal/handlers"
	"booking-system/internal/kafka"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/redis"
	"booking-system/internal/repository"
	"booking-system/internal/services"

	"github.com/google/uuid"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	runMigrations    = database.Migrate
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	mux      *http.ServeMux
	server   *http.Server
}

// routeHandlers HTTP-обработчики, которые регистрирует setupRoutes.
type routeHandlers struct {
	resources *handlers.ResourceHandler
	promos    *handlers.PromoHandler
	checkout  *handlers.CheckoutHandler
	health    *handlers.HealthHandler
	rateLimit *handlers.RateLimitHandler
	limiter   handlers.MiddlewareLimiter
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting booking pricing server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	app.shutdown(ctx)
	app.log.Info("Server exited")
}

// shutdown останавливает сервер и закрывает зависимости в обратном порядке.
func (a *application) shutdown(ctx context.Context) {
	if a.consumer != nil {
		_ = a.consumer.Stop()
	}
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.WithError(err).Error("Server forced to shutdown")
		}
	}
	_ = a.producer.Close()
	_ = a.redis.Close()
	_ = a.db.Close()
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	_, err = runMigrations(migrateCtx, db, log)
	cancel()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	clk := clock.NewRealClock()
	resourceService := services.NewResourceService(
		repository.NewPostgresResourceRepository(db),
		redisClient,
		producer,
		log,
		clk,
		time.Duration(cfg.Pricing.ResourceCacheTTLSeconds)*time.Second,
	)
	promoService := services.NewPromoService(repository.NewPostgresPromoRepository(db, clk), redisClient, producer, log, clk, &cfg.Promo)
	pricingService := services.NewPricingService(resourceService, log, cfg.Pricing.MaxDurationHours)
	checkoutService := services.NewCheckoutService(pricingService, promoService, producer, log)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit, clk)

	routes := routeHandlers{
		resources: handlers.NewResourceHandler(resourceService, log),
		promos:    handlers.NewPromoHandler(promoService, log),
		checkout:  handlers.NewCheckoutHandler(checkoutService, log),
		health:    handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck),
		rateLimit: handlers.NewRateLimitHandler(rateLimiter, log, &cfg.RateLimit),
		limiter:   rateLimiter,
	}

	registerEventHandlers(consumer, resourceService, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	mux := setupRoutes(routes, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		mux:      mux,
		server:   server,
	}, nil
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(h routeHandlers, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	applyAPI := func(next http.HandlerFunc) http.HandlerFunc {
		return corsMiddleware(handlers.RateLimitMiddleware(h.limiter, log, next))
	}

	// Health check endpoints
	mux.HandleFunc("/health", corsMiddleware(h.health.Health))
	mux.HandleFunc("/health/readiness", corsMiddleware(h.health.Readiness))
	mux.HandleFunc("/health/liveness", corsMiddleware(h.health.Liveness))

	// Pricing endpoints
	mux.HandleFunc("/api/quotes", applyAPI(h.checkout.Quote))
	mux.HandleFunc("/api/checkout", applyAPI(h.checkout.Checkout))

	// Resource endpoints
	mux.HandleFunc("/api/resources", applyAPI(handleResourcesRoute(h.resources)))
	mux.HandleFunc("/api/resources/", applyAPI(handleResourceRoute(h.resources)))

	// Promo codes endpoints
	mux.HandleFunc("/api/promo-codes", applyAPI(handlePromoCodesRoute(h.promos)))
	mux.HandleFunc("/api/promo-codes/", applyAPI(handlePromoCodeRoute(h.promos)))

	// Rate limit status
	mux.HandleFunc("/api/rate-limit/status", applyAPI(h.rateLimit.Status))

	return mux
}

// handleResourcesRoute обрабатывает коллекцию ресурсов
func handleResourcesRoute(handler *handlers.ResourceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.ListResources(w, r)
		case http.MethodPost:
			handler.CreateResource(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handleResourceRoute обрабатывает отдельный ресурс
func handleResourceRoute(handler *handlers.ResourceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.GetResource(w, r)
		case http.MethodPut:
			handler.UpdateResource(w, r)
		case http.MethodDelete:
			handler.DeleteResource(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handlePromoCodesRoute обрабатывает коллекцию промокодов
func handlePromoCodesRoute(handler *handlers.PromoHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.ListPromoCodes(w, r)
		case http.MethodPost:
			handler.CreatePromoCode(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handlePromoCodeRoute обрабатывает отдельный промокод и его действия
func handlePromoCodeRoute(handler *handlers.PromoHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/pause"):
			handler.PausePromoCode(w, r)
		case strings.HasSuffix(r.URL.Path, "/resume"):
			handler.ResumePromoCode(w, r)
		case strings.HasSuffix(r.URL.Path, "/validate"):
			handler.ValidatePromoCode(w, r)
		case r.Method == http.MethodGet:
			handler.GetPromoCode(w, r)
		case r.Method == http.MethodPut:
			handler.UpdatePromoCode(w, r)
		case r.Method == http.MethodDelete:
			handler.DeletePromoCode(w, r)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// pricingInvalidator сбрасывает кеш тарифа ресурса.
type pricingInvalidator interface {
	InvalidateResource(ctx context.Context, id uuid.UUID) error
}

// registerEventHandlers регистрирует обработчики событий Kafka
func registerEventHandlers(consumer *kafka.Consumer, resources pricingInvalidator, log *logger.Logger) {
	// Тариф поменялся на другой реплике: локальный кеш больше не актуален.
	consumer.RegisterHandler(models.EventTypeResourcePricingUpdated, func(ctx context.Context, event *models.Event) error {
		var data models.ResourcePricingUpdatedData
		if err := event.DecodeData(&data); err != nil {
			return fmt.Errorf("decode pricing update: %w", err)
		}
		log.WithField("resource_id", data.ResourceID).Debug("Invalidating resource pricing cache")
		return resources.InvalidateResource(ctx, data.ResourceID)
	})
}

// corsMiddleware и другие helper функции
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	type errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
