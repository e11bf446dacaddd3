package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/fleetlens/mrrpv-engine/pkg/adapters/warehouse"
	pgwarehouse "github.com/fleetlens/mrrpv-engine/pkg/adapters/warehouse/postgres"
	sqlitewarehouse "github.com/fleetlens/mrrpv-engine/pkg/adapters/warehouse/sqlite"
	"github.com/fleetlens/mrrpv-engine/pkg/config"
	"github.com/fleetlens/mrrpv-engine/pkg/conversation"
	"github.com/fleetlens/mrrpv-engine/pkg/database"
	"github.com/fleetlens/mrrpv-engine/pkg/handlers"
	"github.com/fleetlens/mrrpv-engine/pkg/llm"
	enginemcp "github.com/fleetlens/mrrpv-engine/pkg/mcp"
	mcptools "github.com/fleetlens/mrrpv-engine/pkg/mcp/tools"
	"github.com/fleetlens/mrrpv-engine/pkg/metrics"
	"github.com/fleetlens/mrrpv-engine/pkg/middleware"
	"github.com/fleetlens/mrrpv-engine/pkg/reconcile"
	"github.com/fleetlens/mrrpv-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const migrationsPath = "migrations"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("warehouse_driver", cfg.Warehouse.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model))

	ctx := context.Background()

	executor, err := newWarehouseExecutor(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up warehouse", zap.Error(err))
	}
	defer executor.Close()

	presets := loadPresets(cfg, logger)

	compiler := metrics.NewCompiler(executor, logger, time.Duration(cfg.QueryTimeoutSeconds)*time.Second)
	reconciler := reconcile.New(reconcile.RegexClassifier{}, presets, logger)
	toolExecutor := services.NewMetricsToolExecutor(compiler, reconciler, presets, logger)

	chatClient, err := llm.NewChatClient(&llm.Config{
		Provider: cfg.LLM.Provider,
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create chat client", zap.Error(err))
	}

	store := conversation.NewStore()
	limiter := conversation.NewRateLimiter(cfg.RateLimit.TurnsPerMinute, time.Minute)
	usage := services.NewLogUsageRecorder(logger)
	chatService := services.NewChatService(chatClient, toolExecutor, presets, store, limiter, usage, logger)

	mux := http.NewServeMux()
	secret := handlers.RequireSecret(cfg.SharedSecret)

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(chatService, logger).RegisterRoutes(mux, secret)
	handlers.NewMetricsHandler(compiler, presets, logger).RegisterRoutes(mux, secret)

	mcpServer := enginemcp.NewServer("mrrpv-engine", cfg.Version, logger.Named("mcp"))
	mcptools.RegisterMetricTool(mcpServer.MCP(), &mcptools.MetricToolDeps{
		Executor: toolExecutor,
		Presets:  presets,
		Logger:   logger.Named("mcp-tools"),
	})
	mux.Handle("/mcp", secret(mcpServer.NewStreamableHTTPServer()))

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting mrrpv-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newWarehouseExecutor opens the configured warehouse backend and applies
// pending migrations before handing back a query executor.
func newWarehouseExecutor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (warehouse.QueryExecutor, error) {
	switch cfg.Warehouse.Driver {
	case "sqlite":
		// The migration driver closes its handle; the executor gets its own.
		migrationDB, err := sql.Open("sqlite", cfg.Warehouse.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(migrationDB, "sqlite", migrationsPath, logger); err != nil {
			_ = migrationDB.Close()
			return nil, err
		}
		_ = migrationDB.Close()
		return sqlitewarehouse.NewExecutor(cfg.Warehouse.SQLitePath)
	default:
		connString := cfg.Warehouse.ConnectionString()

		migrationDB, err := sql.Open("pgx", connString)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(migrationDB, "postgres", migrationsPath, logger); err != nil {
			_ = migrationDB.Close()
			return nil, err
		}
		_ = migrationDB.Close()

		pool, err := database.NewConnection(ctx, &database.Config{
			URL:            connString,
			MaxConnections: cfg.Warehouse.MaxConnections,
		})
		if err != nil {
			return nil, err
		}
		return pgwarehouse.NewExecutorFromPool(pool.Pool), nil
	}
}

func loadPresets(cfg *config.Config, logger *zap.Logger) *metrics.PresetStore {
	if cfg.PresetsPath == "" {
		return metrics.DefaultPresets()
	}
	presets, err := metrics.LoadPresets(cfg.PresetsPath)
	if err != nil {
		logger.Warn("Failed to load presets file, using built-ins",
			zap.String("path", cfg.PresetsPath),
			zap.Error(err))
		return metrics.DefaultPresets()
	}
	return presets
}
