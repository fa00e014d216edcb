package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default seed endpoints contacted for fleet discovery. Overridable via
// SEED_IPS for staging networks.
var defaultSeedIPs = []string{
	"173.212.203.145",
	"173.212.220.65",
	"161.97.97.41",
	"192.190.136.36",
	"192.190.136.37",
	"192.190.136.38",
	"192.190.136.28",
	"192.190.136.29",
	"207.244.255.1",
}

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Refresh  RefreshConfig
	Logger   LoggerConfig
}

type DatabaseConfig struct {
	// URL is a sqlite file path or DSN. Defaults to a local file so the
	// tracker runs with zero external dependencies.
	URL string
}

type ServerConfig struct {
	Host string
	Port int
}

type RefreshConfig struct {
	Interval      time.Duration
	SeedIPs       []string
	RPCPort       int
	RPCTimeout    time.Duration
	ProbeTimeout  time.Duration
	GeoAPIURL     string
	CreditsAPIURL string
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// It's okay if .env file doesn't exist in production
	}

	serverPort, _ := strconv.Atoi(getEnv("SERVER_PORT", "3001"))
	rpcPort, _ := strconv.Atoi(getEnv("RPC_PORT", "6000"))

	refreshInterval, _ := time.ParseDuration(getEnv("REFRESH_INTERVAL", "30s"))
	rpcTimeout, _ := time.ParseDuration(getEnv("RPC_TIMEOUT", "5s"))
	probeTimeout, _ := time.ParseDuration(getEnv("PROBE_TIMEOUT", "2s"))

	return &Config{
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "pnodes.db"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: serverPort,
		},
		Refresh: RefreshConfig{
			Interval:      refreshInterval,
			SeedIPs:       getEnvList("SEED_IPS", defaultSeedIPs),
			RPCPort:       rpcPort,
			RPCTimeout:    rpcTimeout,
			ProbeTimeout:  probeTimeout,
			GeoAPIURL:     getEnv("GEO_API_URL", "http://ip-api.com/json"),
			CreditsAPIURL: getEnv("CREDITS_API_URL", "https://podcredits.xandeum.network/api/pods-credits"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
