package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration values
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  StoreType selects which slot store the
// engine runs on: "mysql" uses the transactional adapter, "redis" the
// batch-consistency adapter.  The DB_* variables are only required when
// the MySQL store is selected; Redis connection settings live in
// redis.go and are read by NewRedisClient.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	StoreType      string        // slot store backend: "mysql" or "redis"
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	OwnersTotal    string        // leaderboard aggregation: "sum" or "count"
	BookingTimeout time.Duration // upper bound on one booking transaction
	RedisBatchSize int           // keys per bulk read/write on the redis store
	DefaultRows    int           // seat grid rows when /api/newRound omits them
	DefaultCols    int           // seat grid columns when /api/newRound omits them
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),                            // environment (dev/test/prod)
		Port:           must("APP_PORT"),                           // port to bind the HTTP server
		StoreType:      getenv("STORE_TYPE", "mysql"),              // slot store backend
		OwnersTotal:    getenv("OWNERS_TOTAL", "sum"),              // leaderboard aggregation mode
		BookingTimeout: parseDur(getenv("BOOKING_TX_TIMEOUT", "5s")), // booking transaction bound
		RedisBatchSize: atoi(getenv("REDIS_BATCH_SIZE", "25")),     // chunk size for bulk redis calls
		DefaultRows:    atoi(getenv("GRID_ROWS", "10")),            // default seat grid rows
		DefaultCols:    atoi(getenv("GRID_COLS", "10")),            // default seat grid columns
	}
	if cfg.StoreType == "mysql" {
		cfg.DBUser = must("DB_USER")      // database user
		cfg.DBPass = os.Getenv("DB_PASS") // database password (empty allowed)
		cfg.DBHost = must("DB_HOST")      // database host
		cfg.DBPort = must("DB_PORT")      // database port
		cfg.DBName = must("DB_NAME")      // database name
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// Helper functions shared with the cache and rate limit loaders.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
