package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/config"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/database"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/events"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/handlers"
	customMiddleware "github.com/Madhav-Gupta-28/islamic-library-backend-go/middleware"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/routes"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const serviceName = "islamic-library-api"

type eventPublisher interface {
	handlers.EventPublisher
	Close() error
}

func main() {
	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()

	log := utils.NewLogger(serviceName, cfg.LogLevel)
	defer log.Sync()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx := context.Background()

	// Connect to MongoDB
	db, err := database.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}

	publisher := connectPublisher(cfg.RabbitMQURL, log)

	if cfg.Payment.StoreID == "" || cfg.Payment.StorePassword == "" {
		log.Warn("STORE_ID or STORE_PASSWD not set, payment sessions will be rejected")
	}
	if !cfg.Payment.VerifyCallbacks {
		log.Warn("Payment callback verification is disabled")
	}
	gateway := utils.NewPaymentGateway(utils.GatewayConfig{
		StoreID:       cfg.Payment.StoreID,
		StorePassword: cfg.Payment.StorePassword,
		Live:          cfg.Payment.Live,
	}, log)

	users := database.NewUserRepository(db, log)
	metrics := customMiddleware.NewMetrics()

	h := handlers.New(handlers.Deps{
		Products: database.NewProductRepository(db, log),
		Orders:   database.NewOrderRepository(db, log),
		Users:    users,
		Carts:    database.NewCartRepository(db, log),
		Gateway:  gateway,
		Events:   publisher,
		Metrics:  metrics,
		Ping: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		Log: log,
		Options: handlers.Options{
			JWTSecret:       cfg.JWTSecret,
			FrontendURL:     cfg.FrontendURL,
			BackendURL:      cfg.BackendURL,
			VerifyCallbacks: cfg.Payment.VerifyCallbacks,
		},
	})

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.ErrorHandler(log)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(customMiddleware.RequestLogger(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("1M"))

	// Setup routes
	routes.SetupRoutes(e, h, routes.Options{
		JWTSecret:      cfg.JWTSecret,
		Users:          users,
		Metrics:        metrics,
		RateLimit:      cfg.RateLimitPer15Min,
		RateLimitEvery: 15 * time.Minute,
	})

	// Start the server
	go func() {
		log.Info("Server starting", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		log.Warn("Failed to close event publisher", zap.Error(err))
	}
	disconnect(shutdownCtx, db.Client(), log)

	log.Info("Server exited")
}

// connectPublisher falls back to a no-op publisher when RabbitMQ is not
// configured or unreachable; events are best effort.
func connectPublisher(url string, log *zap.Logger) eventPublisher {
	if url == "" {
		log.Info("RABBITMQ_URL not set, order events disabled")
		return events.NopPublisher{}
	}

	publisher, err := events.NewPublisher(url, log)
	if err != nil {
		log.Warn("Failed to connect to RabbitMQ, order events disabled", zap.Error(err))
		return events.NopPublisher{}
	}
	return publisher
}

func disconnect(ctx context.Context, client *mongo.Client, log *zap.Logger) {
	if err := client.Disconnect(ctx); err != nil {
		log.Error("Failed to disconnect from MongoDB", zap.Error(err))
	}
}
