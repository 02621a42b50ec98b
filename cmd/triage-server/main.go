package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/triageflow/triageflow/internal/config"
	"github.com/triageflow/triageflow/internal/domain/analytics"
	"github.com/triageflow/triageflow/internal/domain/triage"
	"github.com/triageflow/triageflow/internal/platform/assistant"
	"github.com/triageflow/triageflow/internal/platform/db"
	"github.com/triageflow/triageflow/internal/platform/middleware"
	"github.com/triageflow/triageflow/internal/platform/ocr"
	"github.com/triageflow/triageflow/internal/platform/websocket"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "triage-server",
		Short: "ER patient triage API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(scoreCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the triage API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to run migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to inspect migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// scoreCmd computes a priority score from the command line, useful for
// sanity-checking the scoring table without a running server.
func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute a priority score for the given inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			severity, _ := cmd.Flags().GetString("severity")
			condition, _ := cmd.Flags().GetString("condition")
			age, _ := cmd.Flags().GetInt("age")

			scorer := triage.NewScorer(triage.DefaultScoringConfig())
			score := scorer.Score(triage.Severity(severity), condition, age, nil)

			out, _ := json.Marshal(map[string]interface{}{
				"severity":  severity,
				"condition": condition,
				"age":       age,
				"priority":  score,
			})
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().String("severity", "medium", "Severity level (critical, high, medium, low)")
	cmd.Flags().String("condition", "", "Condition description")
	cmd.Flags().Int("age", 30, "Patient age in years")
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Patient store: Postgres when configured, in-memory otherwise.
	ctx := context.Background()
	var pool *pgxpool.Pool
	var repo triage.Repository
	if cfg.UsePostgres() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		repo = triage.NewPGRepo(pool)
		logger.Info().Msg("connected to database")
	} else {
		repo = triage.NewMemoryRepo()
		logger.Warn().Msg("DATABASE_URL not set; using in-memory patient store")
	}

	// Core services
	scorer := triage.NewScorer(triage.DefaultScoringConfig())
	triageSvc := triage.NewService(repo, scorer)

	hub := websocket.NewHub()
	triageSvc.SetNotifier(websocket.NewQueueNotifier(hub))

	reporter := analytics.NewReporter(triageSvc)

	ocrClient := ocr.NewClient(ocr.Config{
		BaseURL: cfg.OCRAPIURL,
		APIKey:  cfg.OCRAPIKey,
	}, logger)

	assistantSvc := assistant.NewService(assistant.Config{
		BaseURL: cfg.AssistantAPIURL,
		APIKey:  cfg.AssistantAPIKey,
		Model:   cfg.AssistantModel,
	}, triageSvc, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Domain handlers
	triage.NewHandler(triageSvc).RegisterRoutes(apiV1)
	analytics.NewHandler(reporter).RegisterRoutes(apiV1)
	ocr.NewHandler(ocrClient).RegisterRoutes(apiV1)
	assistant.NewHandler(assistantSvc).RegisterRoutes(apiV1)

	// Queue events over WebSocket
	wsGroup := e.Group("/ws")
	websocket.NewHandler(hub).RegisterRoutes(wsGroup)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
