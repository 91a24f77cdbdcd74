package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	JWTSecret          string
	MongoURI           string
	DBName             string
	SkipAuth           bool
	Environment        string
	AppId              string
	DirectoryDriver    string // "mongo" or "postgres"
	PostgresURI        string
	ImportSecret       string // HMAC key for import session tokens
	ImportTTLHours     int    // lifetime of a created import session
	ImportRuleScript   string // optional tengo script applied to each row
	AuditRetentionDays int    // import audit documents older than this are purged
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:             getEnv("DB_NAME", "thrivio-hr"),
		SkipAuth:           getEnv("SKIP_AUTH", "false") == "true",
		Environment:        getEnv("ENVIRONMENT", "development"),
		AppId:              getEnv("APP_ID", "thrivio-hr"),
		DirectoryDriver:    getEnv("DIRECTORY_DRIVER", "mongo"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		ImportSecret:       getEnv("IMPORT_SESSION_SECRET", getEnv("JWT_SECRET", "secret")),
		ImportTTLHours:     getEnvInt("IMPORT_SESSION_TTL_HOURS", 24),
		ImportRuleScript:   getEnv("IMPORT_RULE_SCRIPT", ""),
		AuditRetentionDays: getEnvInt("AUDIT_RETENTION_DAYS", 90),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
