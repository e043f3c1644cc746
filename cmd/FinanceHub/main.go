package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sebuszqo/FinanceHub/internal/auth"
	"github.com/sebuszqo/FinanceHub/internal/config"
	database "github.com/sebuszqo/FinanceHub/internal/db"
	"github.com/sebuszqo/FinanceHub/internal/favorite"
	"github.com/sebuszqo/FinanceHub/internal/finance/application"
	"github.com/sebuszqo/FinanceHub/internal/finance/infrastructure"
	"github.com/sebuszqo/FinanceHub/internal/finance/interfaces"
	"github.com/sebuszqo/FinanceHub/internal/github"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
	applog "github.com/sebuszqo/FinanceHub/internal/log"
	"github.com/sebuszqo/FinanceHub/internal/user"
)

const githubTimeout = 10 * time.Second

type Server struct {
	router             *http.ServeMux
	cfg                *config.Config
	db                 *database.DBService
	authService        auth.Service
	authHandler        *auth.Handler
	userHandler        *user.Handler
	githubHandler      *github.AccountHandler
	categoryHandler    *interfaces.CategoryHandler
	transactionHandler *interfaces.TransactionHandler
	repositoryHandler  *github.RepositoryHandler
	favoriteHandler    *favorite.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, httpx.Message("Server is running"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	stats := s.db.Health(ctx)
	if stats["status"] != "up" {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "readiness check failed", "error", stats["error"])
		httpx.RespondStatus(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, httpx.Success(map[string]string{"status": "ready"}))
}

func (s *Server) RegisterRoutes() {
	protected := s.authService.JWTAccessTokenMiddleware()
	withGitHub := func(h http.HandlerFunc) http.Handler {
		return protected(auth.RequireGitHub(httpx.RespondError)(h))
	}
	authLimit := httpx.RateLimit(s.cfg.RateLimitAuth, s.cfg.RateLimitWindow)

	// AUTH API
	authRoutes := http.NewServeMux()
	authRoutes.Handle("POST /api/auth/register", http.HandlerFunc(s.authHandler.HandleRegister))
	authRoutes.Handle("POST /api/auth/login", http.HandlerFunc(s.authHandler.HandleLogin))
	authRoutes.Handle("POST /api/auth/refresh", http.HandlerFunc(s.authHandler.HandleRefresh))
	authRoutes.Handle("POST /api/auth/logout", s.authService.OptionalSessionMiddleware()(http.HandlerFunc(s.authHandler.HandleLogout)))
	authRoutes.Handle("GET /api/auth/me", protected(http.HandlerFunc(s.userHandler.HandleMe)))
	if s.githubHandler != nil {
		authRoutes.Handle("GET /api/auth/github", http.HandlerFunc(s.githubHandler.HandleAuthURL))
		authRoutes.Handle("GET /api/auth/github/callback", http.HandlerFunc(s.githubHandler.HandleCallback))
		authRoutes.Handle("POST /api/auth/github/connect", protected(http.HandlerFunc(s.githubHandler.HandleConnect)))
		authRoutes.Handle("DELETE /api/auth/github/disconnect", protected(http.HandlerFunc(s.githubHandler.HandleDisconnect)))
	}
	authRoutes.Handle("/", http.HandlerFunc(httpx.NotFoundHandler))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/auth/", authLimit(authRoutes))

	// CATEGORY API
	mainRouter.Handle("GET /api/categories", protected(http.HandlerFunc(s.categoryHandler.GetCategories)))
	mainRouter.Handle("POST /api/categories", protected(http.HandlerFunc(s.categoryHandler.CreateCategory)))
	mainRouter.Handle("PUT /api/categories/{id}",
		protected(s.categoryHandler.ValidatePathParamsMiddleware(http.HandlerFunc(s.categoryHandler.UpdateCategory))))
	mainRouter.Handle("DELETE /api/categories/{id}",
		protected(s.categoryHandler.ValidatePathParamsMiddleware(http.HandlerFunc(s.categoryHandler.DeleteCategory))))

	// TRANSACTION API
	mainRouter.Handle("GET /api/transactions", protected(http.HandlerFunc(s.transactionHandler.GetTransactions)))
	mainRouter.Handle("POST /api/transactions", protected(http.HandlerFunc(s.transactionHandler.CreateTransaction)))
	mainRouter.Handle("GET /api/transactions/summary", protected(http.HandlerFunc(s.transactionHandler.GetSummary)))
	mainRouter.Handle("GET /api/transactions/{id}",
		protected(s.transactionHandler.ValidatePathParamsMiddleware(http.HandlerFunc(s.transactionHandler.GetTransaction))))
	mainRouter.Handle("PUT /api/transactions/{id}",
		protected(s.transactionHandler.ValidatePathParamsMiddleware(http.HandlerFunc(s.transactionHandler.UpdateTransaction))))
	mainRouter.Handle("DELETE /api/transactions/{id}",
		protected(s.transactionHandler.ValidatePathParamsMiddleware(http.HandlerFunc(s.transactionHandler.DeleteTransaction))))

	// REPOSITORY API
	mainRouter.Handle("GET /api/repositories", withGitHub(s.repositoryHandler.ListRepositories))
	mainRouter.Handle("GET /api/repositories/search", withGitHub(s.repositoryHandler.SearchRepositories))
	mainRouter.Handle("GET /api/repositories/{owner}/{repo}", withGitHub(s.repositoryHandler.GetRepository))
	mainRouter.Handle("GET /api/repositories/{owner}/{repo}/readme", withGitHub(s.repositoryHandler.GetReadme))
	mainRouter.Handle("GET /api/repositories/{owner}/{repo}/commits", withGitHub(s.repositoryHandler.ListCommits))
	mainRouter.Handle("GET /api/repositories/{owner}/{repo}/contributors", withGitHub(s.repositoryHandler.ListContributors))

	// FAVORITES API
	mainRouter.Handle("GET /api/favorites", withGitHub(s.favoriteHandler.GetFavorites))
	mainRouter.Handle("GET /api/favorites/{repoId}/check", withGitHub(s.favoriteHandler.CheckFavorite))
	mainRouter.Handle("POST /api/favorites/{repoId}", withGitHub(s.favoriteHandler.AddFavorite))
	mainRouter.Handle("DELETE /api/favorites/{repoId}", withGitHub(s.favoriteHandler.RemoveFavorite))

	mainRouter.Handle("GET /health", http.HandlerFunc(s.handleHealth))
	mainRouter.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	mainRouter.Handle("/", http.HandlerFunc(httpx.NotFoundHandler))

	s.router = mainRouter
}

// connectCache returns nil when Redis is not configured or unreachable; the
// GitHub service then goes upstream on every read.
func connectCache(ctx context.Context, redisURL string, logger *applog.Logger) (github.Cache, *redis.Client) {
	if redisURL == "" {
		logger.Info("Redis not configured, GitHub cache disabled")
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("Invalid REDIS_URL, GitHub cache disabled", "error", err)
		return nil, nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, GitHub cache disabled", "error", err)
		client.Close()
		return nil, nil
	}
	logger.Info("GitHub cache enabled", "addr", opts.Addr)
	return github.NewRedisCache(client), client
}

func StartRefreshPurgeScheduler(schedule string, userService user.Service, logger *applog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		purged, err := userService.PurgeExpiredRefreshTokens(ctx)
		if err != nil {
			logger.Error("Error purging expired refresh tokens", "error", err)
			return
		}
		logger.Info("Expired refresh tokens purged", "count", purged)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func main() {
	cfg := config.Load()
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: "server",
		JSON:      cfg.IsProduction(),
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Missing configuration, update to start server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	dbService, err := database.NewDBService(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("Could not initialize database", "error", err)
		os.Exit(1)
	}
	defer dbService.Close()

	if err := database.ApplySchema(dbService.DB); err != nil {
		logger.Error("Could not apply database schema", "error", err)
		os.Exit(1)
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		logger.Error("Could not initialize token manager", "error", err)
		os.Exit(1)
	}
	cookies := auth.CookieConfig{
		Secure:     cfg.SecureCookies(),
		Production: cfg.IsProduction(),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}

	categoryRepo := infrastructure.NewCategoryRepository(dbService.DB)
	transactionRepo := infrastructure.NewTransactionRepository(dbService.DB)

	userService := user.NewUserService(user.NewUserRepository(dbService.DB), categoryRepo)
	userHandler := user.NewHandler(httpx.RespondJSON, httpx.RespondError)
	authService := auth.NewAuthService(userService, jwtManager, httpx.RespondError)
	authHandler := auth.NewHandler(authService, cookies, httpx.RespondJSON, httpx.RespondError)

	categoryService := application.NewCategoryService(categoryRepo, transactionRepo)
	transactionService := application.NewTransactionService(transactionRepo, categoryService)
	summaryService := application.NewSummaryService(transactionRepo)
	categoryHandler := interfaces.NewCategoryHandler(categoryService, httpx.RespondJSON, httpx.RespondError)
	transactionHandler := interfaces.NewTransactionHandler(transactionService, summaryService, httpx.RespondJSON, httpx.RespondError)

	cache, redisClient := connectCache(ctx, cfg.RedisURL, logger.WithComponent("cache"))
	if redisClient != nil {
		defer redisClient.Close()
	}
	githubClient := github.NewClient(cfg.GitHubAPIURL, githubTimeout)
	githubService := github.NewService(githubClient, nil, cache, cfg.GitHubCacheTTL)
	favoriteService := favorite.NewService(favorite.NewFavoriteRepository(dbService.DB), githubService)
	githubService.SetFavoriteLookup(favoriteService)

	server := &Server{
		cfg:                cfg,
		db:                 dbService,
		authService:        authService,
		authHandler:        authHandler,
		userHandler:        userHandler,
		categoryHandler:    categoryHandler,
		transactionHandler: transactionHandler,
		repositoryHandler:  github.NewRepositoryHandler(githubService, httpx.RespondJSON, httpx.RespondError),
		favoriteHandler:    favorite.NewHandler(favoriteService, httpx.RespondJSON, httpx.RespondError),
	}
	if cfg.GitHubOAuthEnabled() {
		oauth := github.NewOAuth(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL, cfg.GitHubAPIURL)
		server.githubHandler = github.NewAccountHandler(oauth, githubClient, userService, cfg.FrontendURL, httpx.RespondJSON, httpx.RespondError)
	} else {
		logger.Warn("GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET missing, GitHub linking disabled")
	}
	server.RegisterRoutes()

	scheduler, err := StartRefreshPurgeScheduler(cfg.RefreshPurgeSchedule, userService, logger.WithComponent("scheduler"))
	if err != nil {
		logger.Error("Scheduler didn't start, stopping the app", "error", err)
		os.Exit(1)
	}

	handler := httpx.Chain(server.router,
		httpx.Recover,
		applog.Middleware(logger.WithComponent("http")),
		httpx.SecurityHeaders,
		httpx.CORS(cfg.FrontendURL),
		httpx.RateLimit(cfg.RateLimitGlobal, cfg.RateLimitWindow),
	)
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	done := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		<-scheduler.Stop().Done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		close(done)
	}()

	logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
