package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Auth       AuthConfig
	Import     ImportConfig
	Enrichment EnrichmentConfig
	Filter     FilterConfig
	Thumbnail  ThumbnailConfig
}

// ServerConfig holds HTTP/MCP server configuration
type ServerConfig struct {
	HTTPAddr       string
	MCPMode        bool
	AllowedOrigins []string
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds admin token configuration. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	TokenTTL    time.Duration
}

// ImportConfig controls the bulk import pipeline
type ImportConfig struct {
	BatchSize      int
	BatchDelay     time.Duration
	MaxUploadBytes int64
	FetchImages    bool
	FetchSpecs     bool
}

// EnrichmentConfig controls outbound image and spec lookups
type EnrichmentConfig struct {
	Timeout          time.Duration
	UserAgent        string
	RateLimit        time.Duration
	PlaceholderImage string
	ImageSearchURL   string
	SpecSearchURL    string
	SpecAPIURL       string
	ConfidenceFloor  float64
	CacheTTL         time.Duration
}

// FilterConfig selects how facet option counts are computed
type FilterConfig struct {
	CountMode string // "collection" or "narrowed"
}

// ThumbnailConfig bounds generated product thumbnails
type ThumbnailConfig struct {
	Width    int
	Height   int
	MaxBytes int64
}

// Load reads an optional .env file, then parses flags and environment variables
func Load() *Config {
	// Missing .env is the normal case outside local development
	_ = godotenv.Load()

	cfg := &Config{}

	httpAddr := flag.String("http", ":8080", "HTTP server address")
	mcpMode := flag.Bool("mcp", false, "Run in MCP stdio mode")
	cacheTTL := flag.Duration("cache-ttl", 30*time.Minute, "Default cache TTL")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	useDB := flag.Bool("db", false, "Persist products in PostgreSQL instead of memory")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "devicedesk", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")
	batchSize := flag.Int("import-batch-size", 5, "Rows enriched concurrently per import batch")
	batchDelay := flag.Duration("import-batch-delay", time.Second, "Pause between import batches")
	countMode := flag.String("filter-count-mode", "collection", "Facet count mode: collection or narrowed")

	flag.Parse()

	applyEnvOverrides(httpAddr, mcpMode, cacheTTL, cacheBackend, redisAddr, logLevel, useDB,
		dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	cfg.Server = ServerConfig{
		HTTPAddr:       *httpAddr,
		MCPMode:        *mcpMode,
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	cfg.Cache = CacheConfig{
		Backend:   *cacheBackend,
		TTL:       *cacheTTL,
		RedisAddr: *redisAddr,
	}

	cfg.Database = DatabaseConfig{
		Enabled:  *useDB,
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	cfg.Auth = loadAuthConfig()
	cfg.Import = loadImportConfig(*batchSize, *batchDelay)
	cfg.Enrichment = loadEnrichmentConfig()
	cfg.Filter = FilterConfig{CountMode: strings.ToLower(getEnvOrDefault("FILTER_COUNT_MODE", *countMode))}
	cfg.Thumbnail = ThumbnailConfig{
		Width:    envInt("THUMBNAIL_WIDTH", 320),
		Height:   envInt("THUMBNAIL_HEIGHT", 320),
		MaxBytes: int64(envInt("THUMBNAIL_MAX_BYTES", 10<<20)),
	}

	return cfg
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer:   getEnvOrDefault("AUTH_JWT_ISSUER", "devicedesk"),
		JWTAudience: getEnvOrDefault("AUTH_JWT_AUDIENCE", "devicedesk-admin"),
		TokenTTL:    envDuration("AUTH_TOKEN_TTL", 12*time.Hour),
	}
}

func loadImportConfig(batchSize int, batchDelay time.Duration) ImportConfig {
	if v := envInt("IMPORT_BATCH_SIZE", 0); v > 0 {
		batchSize = v
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	batchDelay = envDuration("IMPORT_BATCH_DELAY", batchDelay)
	if batchDelay < 0 {
		batchDelay = 0
	}

	return ImportConfig{
		BatchSize:      batchSize,
		BatchDelay:     batchDelay,
		MaxUploadBytes: int64(envInt("IMPORT_MAX_UPLOAD_BYTES", 20<<20)),
		FetchImages:    envBool("IMPORT_FETCH_IMAGES", false),
		FetchSpecs:     envBool("IMPORT_FETCH_SPECS", false),
	}
}

func loadEnrichmentConfig() EnrichmentConfig {
	floor := 0.3
	if v := os.Getenv("ENRICH_CONFIDENCE_FLOOR"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 && parsed <= 1 {
			floor = parsed
		}
	}

	return EnrichmentConfig{
		Timeout:          envDuration("ENRICH_TIMEOUT", 10*time.Second),
		UserAgent:        getEnvOrDefault("ENRICH_USER_AGENT", "DeviceDesk/1.0 (+catalog enrichment)"),
		RateLimit:        envDuration("ENRICH_RATE_LIMIT", time.Second),
		PlaceholderImage: getEnvOrDefault("ENRICH_PLACEHOLDER_IMAGE", "/placeholder.svg"),
		ImageSearchURL:   os.Getenv("ENRICH_IMAGE_SEARCH_URL"),
		SpecSearchURL:    os.Getenv("ENRICH_SPEC_SEARCH_URL"),
		SpecAPIURL:       os.Getenv("ENRICH_SPEC_API_URL"),
		ConfidenceFloor:  floor,
		CacheTTL:         envDuration("ENRICH_CACHE_TTL", 24*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyEnvOverrides(
	httpAddr *string,
	mcpMode *bool,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	logLevel *string,
	useDB *bool,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("MCP_MODE"); v == "true" || v == "1" {
		*mcpMode = true
	}
	*cacheTTL = envDuration("CACHE_TTL", *cacheTTL)
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	*useDB = envBool("DB_ENABLED", *useDB)
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	*dbPort = envInt("DB_PORT", *dbPort)
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}
}
