package config

import (
	"os"
	"strconv"
	"strings"

	"care-session-service/pkg/database"
)

// Config holds all environment-driven settings for the care-session service.
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  database.Config
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Keycloak KeycloakConfig
	Broker   BrokerConfig
	// AllowedOrigins is the comma-separated CORS allow list.
	AllowedOrigins []string
	// PermissionsFile is the role→permission policy table path.
	PermissionsFile string
}

// KeycloakConfig identifies the token issuer.
type KeycloakConfig struct {
	URL       string // base URL, e.g. "https://auth.example.com"
	Realm     string
	Algorithm string // expected signing algorithm, e.g. "RS256"
}

// BrokerConfig holds event-broker connection settings.
type BrokerConfig struct {
	Enabled  bool
	URL      string // e.g. "tcp://localhost:1883"
	ClientID string
	Username string
	Password string
	// TopicPrefix namespaces event topics (e.g. "wailsalutem.events").
	TopicPrefix string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8000")

	// Default to true for local dev: with DB unavailable the service falls
	// back to in-memory repositories so the API stays usable.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "care_sessions")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Keycloak.URL = getEnv("KEYCLOAK_URL", "http://localhost:8080")
	cfg.Keycloak.Realm = getEnv("KEYCLOAK_REALM", "wailsalutem")
	cfg.Keycloak.Algorithm = getEnv("KEYCLOAK_ALGORITHM", "RS256")

	cfg.Broker.Enabled = getEnv("BROKER_ENABLED", "false") == "true"
	cfg.Broker.URL = getEnv("BROKER_URL", "tcp://localhost:1883")
	cfg.Broker.ClientID = getEnv("BROKER_CLIENT_ID", "care-session-service")
	cfg.Broker.Username = getEnv("BROKER_USERNAME", "")
	cfg.Broker.Password = getEnv("BROKER_PASSWORD", "")
	cfg.Broker.TopicPrefix = getEnv("BROKER_TOPIC_PREFIX", "wailsalutem.events")

	cfg.AllowedOrigins = splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"))
	cfg.PermissionsFile = getEnv("PERMISSIONS_FILE", "permissions.yml")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
