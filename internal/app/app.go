package app

import (
	"context"
	"os"

	"github.com/johnrirwin/devicedesk/internal/auth"
	"github.com/johnrirwin/devicedesk/internal/cache"
	"github.com/johnrirwin/devicedesk/internal/config"
	"github.com/johnrirwin/devicedesk/internal/database"
	"github.com/johnrirwin/devicedesk/internal/enrichment"
	"github.com/johnrirwin/devicedesk/internal/filter"
	"github.com/johnrirwin/devicedesk/internal/httpapi"
	"github.com/johnrirwin/devicedesk/internal/images"
	"github.com/johnrirwin/devicedesk/internal/importer"
	"github.com/johnrirwin/devicedesk/internal/logging"
	"github.com/johnrirwin/devicedesk/internal/mcp"
	"github.com/johnrirwin/devicedesk/internal/products"
	"github.com/johnrirwin/devicedesk/internal/ratelimit"
)

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Cache          cache.Cache
	Normalizer     *enrichment.Normalizer
	ProductSvc     *products.Service
	ImportSvc      *importer.Service
	Thumbnails     *images.Service
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	HTTPServer     *httpapi.Server
	MCPServer      *mcp.Server
	db             *database.DB
	limiter        *ratelimit.Limiter
	filterOpts     filter.Options
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = app.initLogger()
	app.Cache = app.initCache()

	// One limiter shared by enrichment and thumbnail downloads so a host sees a single request stream
	app.limiter = ratelimit.New(cfg.Enrichment.RateLimit)
	app.Normalizer = enrichment.FromConfig(cfg.Enrichment, app.Cache, app.limiter, app.Logger)

	app.ProductSvc = products.NewService(app.initStore(), app.Normalizer, app.Logger)
	app.ImportSvc = importer.NewService(app.ProductSvc, app.Normalizer, importer.ConfigFrom(cfg.Import), app.Logger)

	// Fetcher truncates at MaxBytes, so allow one extra byte for the thumbnailer to detect oversize images
	thumbFetcher := enrichment.NewFetcher(app.limiter, enrichment.FetcherConfig{
		Timeout:   cfg.Enrichment.Timeout,
		UserAgent: cfg.Enrichment.UserAgent,
		MaxBytes:  cfg.Thumbnail.MaxBytes + 1,
	})
	app.Thumbnails = images.NewService(thumbFetcher, app.Cache, images.ConfigFrom(cfg.Thumbnail, cfg.Cache.TTL), app.Logger)

	if err := app.initAuth(); err != nil {
		return nil, err
	}

	app.filterOpts = filter.Options{CountMode: filter.ParseCountMode(cfg.Filter.CountMode)}
	app.initServers()

	return app, nil
}

// Run starts the application in the appropriate mode
func (a *App) Run(ctx context.Context) error {
	if a.Config.Server.MCPMode {
		return a.runMCPMode(ctx)
	}
	return a.runHTTPMode()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	switch c := a.Cache.(type) {
	case *cache.MemoryCache:
		c.Stop()
	case *cache.RedisCache:
		if err := c.Close(); err != nil {
			a.Logger.Error("Redis close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initLogger() *logging.Logger {
	level := logging.ParseLevel(a.Config.Logging.Level)
	if a.Config.Server.MCPMode {
		// stdout carries JSON-RPC in MCP mode
		return logging.New(level)
	}
	return logging.NewWithWriter(level, os.Stdout)
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: "devicedesk:",
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

func (a *App) initStore() products.Store {
	if !a.Config.Database.Enabled {
		a.Logger.Info("Using in-memory product store")
		return products.NewMemoryStore()
	}

	db, err := database.New(database.ConfigFrom(a.Config.Database))
	if err != nil {
		a.Logger.Warn("Failed to connect to PostgreSQL, using in-memory product store", logging.WithField("error", err.Error()))
		return products.NewMemoryStore()
	}

	a.Logger.Info("Connected to PostgreSQL")
	if err := db.Migrate(context.Background()); err != nil {
		a.Logger.Warn("Failed to run migrations, using in-memory product store", logging.WithField("error", err.Error()))
		_ = db.Close()
		return products.NewMemoryStore()
	}

	a.db = db
	return database.NewProductStore(db)
}

func (a *App) initAuth() error {
	svc, err := auth.NewService(a.Config.Auth, a.Logger)
	if err != nil {
		return err
	}
	a.AuthService = svc
	a.AuthMiddleware = auth.NewMiddleware(svc)
	if svc != nil {
		a.Logger.Info("Admin authentication initialized")
	}
	return nil
}

func (a *App) initServers() {
	defaults := httpapi.ImportDefaults{
		FetchImages:    a.Config.Import.FetchImages,
		FetchSpecs:     a.Config.Import.FetchSpecs,
		MaxUploadBytes: a.Config.Import.MaxUploadBytes,
	}
	a.HTTPServer = httpapi.New(a.ProductSvc, a.ImportSvc, a.Thumbnails, a.AuthMiddleware, a.filterOpts, defaults, a.Config.Server.AllowedOrigins, a.Logger)
	if rc, ok := a.Cache.(*cache.RedisCache); ok {
		a.HTTPServer.AddHealthCheck("redis", rc.Ping)
	}
	if a.db != nil {
		a.HTTPServer.AddHealthCheck("database", a.db.PingContext)
	}

	mcpHandler := mcp.NewHandler(a.ProductSvc, a.filterOpts, a.Logger)
	a.MCPServer = mcp.NewServer(mcpHandler, a.Logger)
}

func (a *App) runMCPMode(ctx context.Context) error {
	a.Logger.Info("Starting MCP server in stdio mode")
	return a.MCPServer.Run(ctx)
}

func (a *App) runHTTPMode() error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))
	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}
