package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"templatefill-backend/internal/artifacts"
	"templatefill-backend/internal/extract"
	"templatefill-backend/internal/fulfillment"
	"templatefill-backend/internal/llm"
	openai "templatefill-backend/internal/llm/openai"
	"templatefill-backend/internal/render"
	"templatefill-backend/internal/services/health"
	"templatefill-backend/internal/shared/auth"
	"templatefill-backend/internal/shared/cache"
	"templatefill-backend/internal/shared/config"
	"templatefill-backend/internal/shared/server"
	"templatefill-backend/internal/shared/storage/db"
	"templatefill-backend/internal/shared/storage/object"
	localstore "templatefill-backend/internal/shared/storage/object/local"
	s3store "templatefill-backend/internal/shared/storage/object/s3"
	"templatefill-backend/internal/shared/telemetry"
	"templatefill-backend/internal/templates"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	openAIModel   = "gpt-4o-mini"
)

// Store is an object store that deployment tooling can also provision.
type Store interface {
	object.ObjectStore
	object.Provisioner
}

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     Store
	Cache     cache.Store
	Suggester llm.Suggester
	Templates *templates.Service
	Artifacts *artifacts.Service
	Sessions  *fulfillment.Manager
	Health    *health.Service
	closers   []func() error
}

// Build prepares dependencies and wires the router. It never provisions
// infrastructure; cmd/migrate does that.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg}

	app.DB, err = buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if app.DB != nil {
		app.closers = append(app.closers, app.DB.Close)
	}

	app.Store, err = BuildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Cache = buildCache(ctx, app, cfg)

	app.Suggester, err = buildSuggester(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	var (
		templateRepo templates.Repo
		artifactRepo artifacts.Repo
	)
	if app.DB != nil {
		templateRepo = &templates.PGRepo{DB: app.DB}
		artifactRepo = &artifacts.PGRepo{DB: app.DB}
	} else {
		templateRepo = templates.NewMemoryRepo()
		artifactRepo = artifacts.NewMemoryRepo()
	}

	extractor := extract.NewCached(extract.New(), app.Cache, cfg.PlaceholderTTL)
	app.Templates = templates.NewService(app.Store, templateRepo, extractor)
	app.Artifacts = artifacts.NewService(artifactRepo, app.Store)
	app.Sessions = fulfillment.NewManager(fulfillment.Deps{
		Suggester: app.Suggester,
		Renderer:  render.New(),
		Deliverer: app.Artifacts,
	}, cfg.SessionIdleTimeout)

	checks := map[string]health.CheckFunc{
		"database":    health.DatabaseCheck(app.DB),
		"objectStore": health.StoreCheck(app.Store),
	}
	if pinger, ok := app.Cache.(interface{ Ping(context.Context) error }); ok {
		checks["cache"] = pinger.Ping
	}
	app.Health = health.NewService(checks)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             cfg,
		Verifier:           verifier,
		HealthHandler:      health.NewHandler(app.Health),
		TemplateHandler:    templates.NewHandler(app.Templates),
		FulfillmentHandler: fulfillment.NewHandler(app.Sessions, app.Templates),
		ArtifactHandler:    artifacts.NewHandler(app.Artifacts),
	})

	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// buildDB connects to Postgres when DATABASE_URL is set. In dev-like
// environments a missing or unreachable database falls back to memory.
func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_unreachable", map[string]any{"fallback": "memory", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	if err := db.CheckSchema(ctx, sqlDB); err != nil {
		telemetry.Warn("bootstrap.schema_missing", map[string]any{"error": err.Error()})
	}
	return sqlDB, nil
}

// BuildStore selects the object store named by OBJECT_STORE.
func BuildStore(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildCache(ctx context.Context, app *App, cfg config.Config) cache.Store {
	if cfg.RedisAddr == "" {
		return cache.NewMemory()
	}
	rdb := cache.NewRedis(cache.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx); err != nil {
		telemetry.Warn("bootstrap.redis_unreachable", map[string]any{"addr": cfg.RedisAddr, "error": err.Error()})
	}
	app.closers = append(app.closers, rdb.Close)
	return rdb
}

func buildSuggester(cfg config.Config) (llm.Suggester, error) {
	if cfg.LLMAPIKey == "" {
		telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"provider": cfg.LLMProvider})
		return llm.Unconfigured{}, nil
	}
	occ := openai.Config{
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
	}
	if cfg.LLMProvider == "openai" {
		if occ.BaseURL == "" {
			occ.BaseURL = openAIBaseURL
		}
		if occ.Model == "" {
			occ.Model = openAIModel
		}
	}
	return openai.NewSuggestClient(occ)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
