package config

import (
	"os"
	"strconv"
	"time"

	"clicker_webapp/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Payments
	TonWalletAddress string
	RateBaseURL      string
	RateQuote        string

	// Click handling
	ClickCooldown time.Duration

	// HTTP rate limits
	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration

	LogLevel string
	LogJSON  bool
}

// Load reads configuration from the environment (.env supported).
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	walletAddress := os.Getenv("TON_WALLET_ADDRESS")
	if walletAddress == "" {
		logger.Warn("TON_WALLET_ADDRESS is not set, deposit links will be incomplete")
	}

	rateBaseURL := os.Getenv("RATE_API_URL")
	if rateBaseURL == "" {
		rateBaseURL = "https://api.coingecko.com/api/v3"
	}

	// Fiat currency deposits are quoted in
	rateQuote := os.Getenv("RATE_QUOTE_CURRENCY")
	if rateQuote == "" {
		rateQuote = "amd"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	clickCooldown := 150 * time.Millisecond
	if v := os.Getenv("CLICK_COOLDOWN_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			clickCooldown = time.Duration(n) * time.Millisecond
		}
	}

	return &Config{
		AppPort:          port,
		DatabaseURL:      dbURL,
		JWTSecret:        jwtSecret,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,
		TonWalletAddress: walletAddress,
		RateBaseURL:      rateBaseURL,
		RateQuote:        rateQuote,
		ClickCooldown:    clickCooldown,
		APIRateLimit:     envInt("API_RATE_LIMIT", 60),
		APIRateWindow:    envSeconds("API_RATE_WINDOW_SECONDS", time.Minute),
		AuthRateLimit:    envInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow:   envSeconds("AUTH_RATE_WINDOW_SECONDS", time.Minute),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogJSON:          os.Getenv("LOG_JSON") == "true",
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
