package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port              string
	MongoURI          string
	MongoDatabase     string
	JWTSecret         string
	FrontendURL       string
	BackendURL        string
	RabbitMQURL       string
	LogLevel          string
	RateLimitPer15Min int
	Payment           PaymentConfig
}

// PaymentConfig carries the SSLCommerz store credentials.
type PaymentConfig struct {
	StoreID         string
	StorePassword   string
	Live            bool
	VerifyCallbacks bool
}

// LoadEnv loads environment variables from a .env file
func LoadEnv() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("No .env file found, using process environment")
	}
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:              GetEnv("PORT", "5000"),
		MongoURI:          GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:     GetEnv("MONGODB_DATABASE", "islamic_library"),
		JWTSecret:         GetEnv("JWT_SECRET", ""),
		FrontendURL:       GetEnv("FRONTEND_URL", "http://localhost:5173"),
		BackendURL:        GetEnv("BACKEND_URL", "http://localhost:5000"),
		RabbitMQURL:       GetEnv("RABBITMQ_URL", ""),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		RateLimitPer15Min: GetEnvInt("RATE_LIMIT_PER_15_MIN", 100),
		Payment: PaymentConfig{
			StoreID:         GetEnv("STORE_ID", ""),
			StorePassword:   GetEnv("STORE_PASSWD", ""),
			Live:            GetEnvBool("PAYMENT_LIVE", false),
			VerifyCallbacks: GetEnvBool("PAYMENT_VERIFY_CALLBACKS", true),
		},
	}
}

// GetEnv retrieves environment variables with a fallback
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func GetEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}
