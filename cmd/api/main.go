package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yourusername/animemaster-api/internal/config"
	"github.com/yourusername/animemaster-api/internal/domain/repository"
	"github.com/yourusername/animemaster-api/internal/handler"
	"github.com/yourusername/animemaster-api/internal/middleware"
	"github.com/yourusername/animemaster-api/internal/notifier"
	"github.com/yourusername/animemaster-api/internal/pkg/logger"
	memoryRepo "github.com/yourusername/animemaster-api/internal/repository/memory"
	pgRepo "github.com/yourusername/animemaster-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/animemaster-api/internal/repository/redis"
	"github.com/yourusername/animemaster-api/internal/service"
	"github.com/yourusername/animemaster-api/pkg/auth"
	"github.com/yourusername/animemaster-api/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}

	log := logger.New(cfg.Log.Level, cfg.Server.IsRelease())
	log.Info().Str("path", configPath).Str("storage", cfg.Storage.Backend).Str("notifier", cfg.Notifier.Driver).Msg("configuration loaded")

	// Root context for background goroutines; cancelled on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := openDatabase(cfg, log)

	var (
		userRepo       repository.UserRepository
		collectionRepo repository.CollectionRepository
		animeRepo      repository.AnimeRepository
	)
	if db != nil {
		userRepo = pgRepo.NewUserRepo(db)
		collectionRepo = pgRepo.NewCollectionRepo(db)
		animeRepo = pgRepo.NewAnimeRepo(db)
	} else {
		log.Warn().Msg("no database configured, users and collections are kept in memory and the catalog is empty")
		userRepo = memoryRepo.NewUserRepo()
		collectionRepo = memoryRepo.NewCollectionRepo()
		animeRepo = memoryRepo.NewAnimeRepo()
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled() {
		redisClient, err = database.NewUniversalRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Str("mode", cfg.Redis.Mode).Msg("connected to redis")
	}

	revocationStore, codeStore := openStores(cfg, db, redisClient, log)

	revocations, err := service.NewTokenRevocationRegistry(revocationStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize revocation registry")
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiration, revocations, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize JWT service")
	}
	if cfg.JWT.Issuer != "" {
		jwtService.SetIssuer(cfg.JWT.Issuer)
	}
	revocations.SetExpiryResolver(jwtService.ExpiryOf)

	codeNotifier, notifierCloser, err := notifier.New(cfg.Notifier, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize notifier")
	}
	defer closeQuietly(notifierCloser, "notifier", log)

	codes, err := service.NewVerificationCodeService(
		codeStore,
		codeNotifier,
		cfg.Verification.CodeTTL,
		cfg.Verification.SendInterval,
		cfg.Notifier.Nickname,
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize verification code service")
	}

	lockout := service.NewLockoutPolicy(cfg.Lockout.MaxFailures, cfg.Lockout.Duration, log)

	authService, err := service.NewAuthService(userRepo, jwtService, revocations, lockout, codes, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth service")
	}

	collections, err := service.NewCollectionService(collectionRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize collection service")
	}
	catalog, err := service.NewCatalogService(animeRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize catalog service")
	}

	go revocations.RunCleanup(ctx, cfg.JWT.CleanupInterval)
	go codes.RunCleanup(ctx, cfg.Verification.CleanupInterval)

	if err := handler.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("failed to register request validators")
	}

	if cfg.Server.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	// Release mode trusts no proxy headers; put the load balancer here when one is used.
	trusted := []string{"127.0.0.1", "::1"}
	if cfg.Server.IsRelease() {
		trusted = nil
	}
	if err := router.SetTrustedProxies(trusted); err != nil {
		log.Warn().Err(err).Msg("failed to set trusted proxies")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authMiddleware := middleware.NewAuthMiddleware(jwtService, log)
	router.Use(authMiddleware.Authenticate())

	var limits handler.RouteLimits
	if cfg.RateLimit.Enabled && redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient, log)
		limits.Group = limiter.LimitByIP(middleware.AuthGroupRateLimitConfig(cfg.RateLimit.AuthGroup, cfg.RateLimit.Window))
		limits.Login = limiter.Limit(middleware.LoginRateLimitConfig(cfg.RateLimit.Login, cfg.RateLimit.Window))
		limits.SendCode = limiter.Limit(middleware.SendCodeRateLimitConfig(cfg.RateLimit.SendCode, cfg.RateLimit.Window))
	} else if cfg.RateLimit.Enabled {
		log.Warn().Msg("rate limiting needs redis and is disabled")
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := handler.NewAuthHandler(authService, jwtService.Validity(), log)
	api := router.Group("/api")
	handler.RegisterAuthRoutes(api, authHandler, authMiddleware, limits)
	handler.RegisterCollectionRoutes(api, handler.NewCollectionHandler(collections, log), authMiddleware)
	handler.RegisterCatalogRoutes(api, handler.NewCatalogHandler(catalog, log))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server exited properly")
}

// openDatabase connects to PostgreSQL and applies migrations. It returns nil
// when no database is configured.
func openDatabase(cfg *config.Config, log zerolog.Logger) *gorm.DB {
	if !cfg.Database.Enabled() {
		return nil
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !cfg.Server.IsRelease())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath, log); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().Str("host", cfg.Database.Host).Str("dbname", cfg.Database.DBName).Msg("connected to database")
	return db
}

// openStores selects the revocation and verification code stores.
func openStores(cfg *config.Config, db *gorm.DB, client redis.UniversalClient, log zerolog.Logger) (repository.RevocationStore, repository.VerificationCodeStore) {
	switch cfg.Storage.Backend {
	case config.StorageRedis:
	case config.StoragePostgres:
		if db == nil {
			log.Fatal().Msg("storage backend postgres requires a database")
		}
		return pgRepo.NewRevocationStore(db), pgRepo.NewVerificationCodeStore(db)
	default:
		return memoryRepo.NewRevocationStore(), memoryRepo.NewVerificationCodeStore()
	}
	if client == nil {
		log.Fatal().Msg("storage backend redis requires a redis connection")
	}

	revocationStore, err := redisRepo.NewRevocationStore(client)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis revocation store")
	}
	codeStore, err := redisRepo.NewVerificationCodeStore(client)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis verification code store")
	}
	return revocationStore, codeStore
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}

func closeQuietly(c io.Closer, name string, log zerolog.Logger) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Str("resource", name).Msg("close failed")
	}
}
