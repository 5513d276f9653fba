package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"resume-match/internal/account"
	"resume-match/internal/analysis"
	googleauth "resume-match/internal/auth"
	"resume-match/internal/credentials"
	"resume-match/internal/llm"
	"resume-match/internal/llm/gemini"
	"resume-match/internal/llm/openai"
	"resume-match/internal/orchestrator"
	"resume-match/internal/prefs"
	"resume-match/internal/reports"
	sharedauth "resume-match/internal/shared/auth"
	"resume-match/internal/shared/config"
	"resume-match/internal/shared/metrics"
	"resume-match/internal/shared/server"
	"resume-match/internal/shared/server/middleware"
	"resume-match/internal/shared/storage/db"
	"resume-match/internal/shared/telemetry"
	"resume-match/internal/users"
)

// App holds the wired service.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Registry *orchestrator.Registry
	Backend  *account.Backend
	Analyzer *analysis.Client
	Metrics  *metrics.Collector
}

// Build connects storage, picks the analysis provider and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	signer, err := sharedauth.NewSigner(cfg.JWTSecret, cfg.SessionTTL, cfg.Env == "production")
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if sqlDB != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(sqlDB, "resume_match"))
	}
	collector := metrics.NewCollector(reg)

	provider, err := BuildProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	analyzer := analysis.NewClient(provider, collector)

	var (
		credRepo    credentials.Repo
		usersRepo   users.Repo
		reportsRepo reports.Repo
		prefStore   prefs.Store
	)
	if sqlDB != nil {
		credRepo = &credentials.PGRepo{DB: sqlDB}
		usersRepo = &users.PGRepo{DB: sqlDB}
		reportsRepo = &reports.PGRepo{DB: sqlDB}
		prefStore = &prefs.PGStore{DB: sqlDB}
	} else {
		credRepo = credentials.NewMemoryRepo()
		usersRepo = users.NewMemoryRepo()
		reportsRepo = reports.NewMemoryRepo()
		prefStore = prefs.NewMemoryStore()
	}

	backend := account.NewBackend(credentials.NewService(credRepo), usersRepo, reportsRepo, signer)
	registry := orchestrator.NewRegistry(orchestrator.RegistryConfig{
		NewStore:       func() orchestrator.Store { return backend.NewClient() },
		Analyzer:       analyzer,
		Prefs:          prefStore,
		ShareBaseURL:   cfg.PublicBaseURL,
		Metrics:        collector,
		MaxControllers: cfg.MaxSessions,
	})
	handler := orchestrator.NewHandler(registry, cfg.SessionTTL, cfg.Env == "production")
	google := googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		registry,
		handler.SetSessionCookie,
	)

	deps := server.RouterDeps{
		Config:      cfg,
		App:         handler,
		GoogleAuth:  google,
		Metrics:     collector.Handler(),
		RateLimiter: middleware.NewRateLimiter(nil),
	}
	if sqlDB != nil {
		deps.Ready = db.Ready(sqlDB)
	}

	return &App{
		Config:   cfg,
		Router:   server.NewRouter(deps),
		DB:       sqlDB,
		Registry: registry,
		Backend:  backend,
		Analyzer: analyzer,
		Metrics:  collector,
	}, nil
}

// Close tears down sessions and releases the database.
func (a *App) Close() error {
	a.Registry.Close()
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// BuildProvider returns the configured model provider. A missing API key
// outside production yields a provider whose calls fail.
func BuildProvider(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return missingKey(cfg, "OPENAI_API_KEY")
		}
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.Model(), cfg.LLMTemperature)
	default:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return missingKey(cfg, "GEMINI_API_KEY")
		}
		return gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.Model(), cfg.LLMTemperature)
	}
}

func missingKey(cfg config.Config, key string) (llm.Provider, error) {
	if cfg.Env == "production" {
		return nil, fmt.Errorf("%s is required for LLM_PROVIDER=%s", key, cfg.LLMProvider)
	}
	telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"provider": cfg.LLMProvider, "missing": key})
	return llm.Unconfigured{}, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Info("bootstrap.memory_store", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_store", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}
