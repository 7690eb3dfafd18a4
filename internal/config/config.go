package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Upstream police API
	PoliceAPIBaseURL     string
	Force                string // jurisdiction tag used for every upstream query
	AvailabilityCategory string // key in crimes-street-dates entries listing forces
	RequestTimeout       time.Duration
	FetchDelay           time.Duration
	MonthWindow          int

	// Presentation
	ItemsPerPage   int
	CacheMaxAge    time.Duration
	CacheStale     time.Duration
	RefreshOnStart bool

	AllowedOrigins []string
}

// Load loads environment variables and returns a Config struct
func Load() *Config {
	_ = godotenv.Load()

	allowedOrigins := strings.Split(
		getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		",",
	)
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	return &Config{
		Port:                 getEnv("APP_PORT", "8780"),
		Environment:          getEnv("ENVIRONMENT", "development"),
		LogLevel:             getEnv("LOG_LEVEL", ""),
		PoliceAPIBaseURL:     strings.TrimRight(getEnv("POLICE_API_BASE_URL", "https://data.police.uk/api"), "/"),
		Force:                getEnv("POLICE_FORCE", "metropolitan"),
		AvailabilityCategory: getEnv("AVAILABILITY_CATEGORY", "stop-and-search"),
		RequestTimeout:       time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		FetchDelay:           time.Duration(getEnvAsInt("FETCH_DELAY_MS", 500)) * time.Millisecond,
		MonthWindow:          getEnvAsInt("MONTH_WINDOW", 12),
		ItemsPerPage:         getEnvAsInt("ITEMS_PER_PAGE", 20),
		CacheMaxAge:          time.Duration(getEnvAsInt("CACHE_MAX_AGE_SECONDS", 3600)) * time.Second,
		CacheStale:           time.Duration(getEnvAsInt("CACHE_STALE_SECONDS", 86400)) * time.Second,
		RefreshOnStart:       getEnvAsBool("REFRESH_ON_START", true),
		AllowedOrigins:       allowedOrigins,
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("invalid bool for %s, defaulting to %v\n", key, fallback)
		return fallback
	}
	return val
}

func getEnvAsInt(key string, fallback int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.Atoi(strings.TrimSpace(valStr))
	if err != nil || val < 0 {
		log.Printf("invalid int for %s, defaulting to %v\n", key, fallback)
		return fallback
	}
	return val
}
