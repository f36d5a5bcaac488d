package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Amund211/lilypad/internal/achievements"
	"github.com/Amund211/lilypad/internal/adapters/achievementrepository"
	"github.com/Amund211/lilypad/internal/adapters/cache"
	"github.com/Amund211/lilypad/internal/adapters/database"
	"github.com/Amund211/lilypad/internal/adapters/highscorerepository"
	"github.com/Amund211/lilypad/internal/adapters/jobqueue"
	"github.com/Amund211/lilypad/internal/adapters/playerrepository"
	"github.com/Amund211/lilypad/internal/adapters/sessionrepository"
	"github.com/Amund211/lilypad/internal/adapters/suggestionrepository"
	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/config"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
	"github.com/Amund211/lilypad/internal/ports"
	"github.com/Amund211/lilypad/internal/reporting"
	"github.com/Amund211/lilypad/internal/telemetry"
	"github.com/Amund211/lilypad/internal/worker"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/crypto/x509roots/fallback"
)

const serviceName = "lilypad"

func main() {
	instanceID := uuid.New().String()
	logger := logging.New(os.Stdout, slog.LevelInfo).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file loaded, reading environment variables directly")
	}

	config, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", config.NonSensitiveString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.SetupOTelSDK(ctx, serviceName)
	if err != nil {
		fail("Failed to initialize telemetry", "error", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error("Failed to shut down telemetry", "error", err.Error())
		}
	}()
	logger.Info("Initialized telemetry")

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	logger.Info("Initializing database connection")
	db, err := database.NewConfiguredPostgresDatabase(config)
	if err != nil {
		fail("Failed to initialize database", "error", err.Error())
	}
	defer db.Close()
	logger.Info("Initialized database connection")

	repositorySchemaName := database.GetSchemaName(!config.IsProduction())

	err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, repositorySchemaName)
	if err != nil {
		fail("Failed to migrate database", "error", err.Error())
	}

	sessionRepo := sessionrepository.NewPostgres(db, repositorySchemaName, time.Now)
	highScoreRepo := highscorerepository.NewPostgres(db, repositorySchemaName, time.Now)
	playerRepo := playerrepository.NewPostgres(db, repositorySchemaName, config.StatsLockTimeout(), time.Now)
	achievementRepo := achievementrepository.NewPostgres(db, repositorySchemaName, time.Now)
	suggestionRepo := suggestionrepository.NewPostgres(db, repositorySchemaName, time.Now)
	queue := jobqueue.NewPostgres(db, repositorySchemaName, time.Now)
	logger.Info("Initialized repositories")

	recordHighScore := app.BuildRecordHighScore(sessionRepo, highScoreRepo)
	aggregatePlayerStats := app.BuildAggregatePlayerStats(sessionRepo, playerRepo)
	evaluateAchievements := app.BuildEvaluateAchievements(
		achievements.DefaultCatalog(),
		playerRepo,
		sessionRepo,
		achievementRepo,
	)
	runWorkUnit := app.BuildRunWorkUnit(recordHighScore, aggregatePlayerStats, evaluateAchievements)

	// Work units are enqueued in the transaction that saves the session
	submitGameSession := app.BuildSubmitGameSession(sessionRepo, playerRepo)

	leaderboardCache := cache.NewTTLCache[[]domain.LeaderboardEntry](10 * time.Second)
	getLeaderboard := app.BuildGetLeaderboard(leaderboardCache, highScoreRepo)
	getPlayerStats := app.BuildGetPlayerStats(playerRepo)
	getPlayerAchievements := app.BuildGetPlayerAchievements(playerRepo, achievementRepo)
	getGameHistory := app.BuildGetGameHistory(playerRepo, sessionRepo)
	createPlayer := app.BuildCreatePlayer(playerRepo)
	getPlayerProfile := app.BuildGetPlayerProfile(playerRepo)
	updatePlayerProfile := app.BuildUpdatePlayerProfile(playerRepo)
	createSuggestion := app.BuildCreateSuggestion(playerRepo, suggestionRepo)

	g, ctx := errgroup.WithContext(ctx)

	if config.RunsWorker() {
		options := worker.DefaultOptions()
		options.Concurrency = config.WorkerConcurrency()
		options.MaxAttempts = config.WorkerMaxAttempts()

		pool, err := worker.NewPool(queue, runWorkUnit, options, time.Now)
		if err != nil {
			fail("Failed to initialize worker pool", "error", err.Error())
		}

		if err := queue.RegisterDepthMetric(otel.Meter("lilypad/jobqueue")); err != nil {
			fail("Failed to register queue metrics", "error", err.Error())
		}

		workerCtx := logging.AddToContext(ctx, logger.With("component", "worker"))
		g.Go(func() error {
			return pool.Run(workerCtx)
		})
	}

	if config.RunsAPI() {
		allowedOrigins, err := ports.NewDomainSuffixes(config.AllowedOrigins()...)
		if err != nil {
			fail("Failed to initialize allowed origins", "error", err.Error())
		}

		mux := http.NewServeMux()

		mux.HandleFunc(
			"OPTIONS /v1/game_sessions",
			ports.BuildCORSHandler(allowedOrigins),
		)
		mux.HandleFunc(
			"POST /v1/game_sessions",
			ports.MakeSubmitGameSessionHandler(
				submitGameSession,
				allowedOrigins,
				logger.With("port", "gamesessions"),
				sentryMiddleware,
			),
		)

		mux.HandleFunc(
			"OPTIONS /v1/leaderboard",
			ports.BuildCORSHandler(allowedOrigins),
		)
		mux.HandleFunc(
			"GET /v1/leaderboard",
			ports.MakeGetLeaderboardHandler(
				getLeaderboard,
				allowedOrigins,
				logger.With("port", "leaderboard"),
				sentryMiddleware,
			),
		)

		mux.HandleFunc(
			"OPTIONS /v1/players",
			ports.BuildCORSHandler(allowedOrigins),
		)
		mux.HandleFunc(
			"POST /v1/players",
			ports.MakeCreatePlayerHandler(
				createPlayer,
				allowedOrigins,
				logger.With("port", "createplayer"),
				sentryMiddleware,
			),
		)

		mux.HandleFunc(
			"OPTIONS /v1/players/me/stats",
			ports.BuildCORSHandler(allowedOrigins),
		)
		mux.HandleFunc(
			"GET /v1/players/me/stats",
			ports.MakeGetPlayerStatsHandler(
				getPlayerStats,
				allowedOrigins,
				logger.With("port", "playerstats"),
				sentryMiddleware,
			),
		)

		mux.HandleFunc(
			"OPTIONS /v1/players/me/profile",
			ports.BuildCORSHandler(allowedOrigins),
		)
		mux.HandleFunc(
			"GET /v1/players/me/profile",
			ports.MakeGetPlayerProfileHandler(
				getPlayerProfile,
				allowedOrigins,
				logger.With("port", "playerprofile"),
				sentryMiddleware,
			),
		)
		mux.HandleFunc(
			"PATCH /v1/players/me/profile",
			ports.MakeUpdatePlayerProfileHandler(
				updatePlayerProfile,
				allowedOrigins,
				logger.With("port", "updateplayerprofile"),
				sentryMiddleware,
			),
		)

		mux.HandleFunc(
			"OPTIONS /v1/players/{username}/achievements",
			ports.BuildCORSHandler(allowedOrigins),
		)
		mux.HandleFunc(
			"GET /v1/players/{username}/achievements",
			ports.MakeGetPlayerAchievementsHandler(
				getPlayerAchievements,
				allowedOrigins,
				logger.With("port", "playerachievements"),
				sentryMiddleware,
			),
		)

		mux.HandleFunc(
			"OPTIONS /v1/players/{username}/game_history",
			ports.BuildCORSHandler(allowedOrigins),
		)
		mux.HandleFunc(
			"GET /v1/players/{username}/game_history",
			ports.MakeGetGameHistoryHandler(
				getGameHistory,
				allowedOrigins,
				logger.With("port", "gamehistory"),
				sentryMiddleware,
			),
		)

		mux.HandleFunc(
			"OPTIONS /v1/suggestions",
			ports.BuildCORSHandler(allowedOrigins),
		)
		mux.HandleFunc(
			"POST /v1/suggestions",
			ports.MakeCreateSuggestionHandler(
				createSuggestion,
				allowedOrigins,
				logger.With("port", "suggestions"),
				sentryMiddleware,
			),
		)

		server := &http.Server{
			Addr:              fmt.Sprintf(":%s", config.Port()),
			Handler:           otelhttp.NewHandler(mux, serviceName),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("Starting server", "port", config.Port())
			err := server.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	logger.Info("Init complete", "role", config.Role())
	if err := g.Wait(); err != nil {
		fail("Shutdown with error", "error", err.Error())
	}
	logger.Info("Shutdown complete")
}
