package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Optional values fall back to the defaults the
// production deployment uses.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret    string        // secret used to sign bearer tokens
	AccessTTLMin int           // bearer token time-to-live in minutes
	SessionTTL   time.Duration // Redis session lifetime

	TZOffsetMin int           // business-day offset from UTC in minutes (KST = 540)
	LockTTL     time.Duration // mutual-exclusion lock lifetime
	HolidayKey  string        // data.go.kr service key for the holiday proxy

	LogRetentionDays int // audit log retention window
}

// Load reads the .env file (if present) and then the environment. Required
// variables are enforced by must(); missing values exit with a fatal log.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:              getenv("APP_ENV", "dev"),
		Port:             getenv("APP_PORT", "3000"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"),
		DBHost:           must("DB_HOST"),
		DBPort:           getenv("DB_PORT", "3306"),
		DBName:           must("DB_NAME"),
		JWTSecret:        must("JWT_SECRET"),
		AccessTTLMin:     atoi(getenv("ACCESS_TOKEN_TTL_MIN", "1440")),
		SessionTTL:       time.Duration(atoi(getenv("SESSION_TTL_HOURS", "24"))) * time.Hour,
		TZOffsetMin:      atoi(getenv("ATTENDANCE_TZ_OFFSET_MIN", "540")),
		LockTTL:          time.Duration(atoi(getenv("LOCK_TTL_SEC", "10"))) * time.Second,
		HolidayKey:       os.Getenv("DATA_GO_KR_KEY"),
		LogRetentionDays: atoi(getenv("LOG_RETENTION_DAYS", "180")),
	}
}

// Timezone returns the fixed civil timezone used to compute business days.
// Attendance and same-day aggregation must never use server-local time.
func (c Config) Timezone() *time.Location {
	return time.FixedZone("business", c.TZOffsetMin*60)
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q", s)
	}
	return i
}
