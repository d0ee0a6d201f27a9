package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// Settings holds everything main needs to wire the service.
type Settings struct {
	Port            string
	GoEnv           string
	Domain          string
	StoreDriver     string
	MongoURI        string
	MongoDatabase   string
	RedisAddress    string
	RedisPassword   string
	JWTSecret       string
	ReportLimit     int
	RateLimitPrefix string
	DisplayNameTTL  time.Duration
	AllowedOrigins  []string
}

// LoadEnvFile reads .env into the process environment. A missing file is not an error.
func LoadEnvFile() bool {
	return godotenv.Load() == nil
}

// GetEnv returns the variable's value or def when unset or empty.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// Load reads Settings from the environment and validates them.
func Load() (*Settings, error) {
	s := &Settings{
		Port:            GetEnv("PORT", "8080"),
		GoEnv:           GetEnv("GO_ENV", "development"),
		Domain:          os.Getenv("DOMAIN"),
		StoreDriver:     strings.ToLower(GetEnv("STORE_DRIVER", StoreDriverMongo)),
		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDatabase:   GetEnv("MONGODB_DATABASE", "civictrack"),
		RedisAddress:    os.Getenv("REDIS_ADDRESS"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RateLimitPrefix: GetEnv("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue-limit"),
	}

	limit, err := strconv.Atoi(GetEnv("ISSUE_REPORT_LIMIT", "20"))
	if err != nil || limit < 1 {
		return nil, fmt.Errorf("ISSUE_REPORT_LIMIT must be a positive integer")
	}
	s.ReportLimit = limit

	ttl, err := time.ParseDuration(GetEnv("DISPLAY_NAME_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("DISPLAY_NAME_TTL: %w", err)
	}
	s.DisplayNameTTL = ttl

	for _, origin := range strings.Split(GetEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			s.AllowedOrigins = append(s.AllowedOrigins, origin)
		}
	}

	if len(s.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}

	switch s.StoreDriver {
	case StoreDriverMongo:
		if s.MongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI must be set when STORE_DRIVER=mongo")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", s.StoreDriver)
	}

	if s.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	return s, nil
}

func (s *Settings) IsProduction() bool {
	return s.GoEnv == "production"
}
