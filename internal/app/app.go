package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/keeper/internal/auth"
	"github.com/MrSnakeDoc/keeper/internal/bookmarks"
	"github.com/MrSnakeDoc/keeper/internal/changefeed"
	"github.com/MrSnakeDoc/keeper/internal/config"
	"github.com/MrSnakeDoc/keeper/internal/httpserver"
	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keeper/internal/logger"
	"github.com/MrSnakeDoc/keeper/internal/redis"
	"github.com/MrSnakeDoc/keeper/internal/scheduler"
	"github.com/MrSnakeDoc/keeper/internal/session"
	"github.com/MrSnakeDoc/keeper/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/keeper/internal/store/redis"
	"github.com/MrSnakeDoc/keeper/internal/store/supabase"
	"github.com/MrSnakeDoc/keeper/internal/utils"
	"github.com/MrSnakeDoc/keeper/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	db          *sql.DB // nil with the supabase backend
	views       *session.Manager
	unwatch     func()
	janitor     *scheduler.ViewJanitor
	importer    *scheduler.BookmarkImporter
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	ctx := context.Background()

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(ctx, redis.ConnectOptions{
		Addr:         cfg.RedisAddr,
		User:         cfg.RedisUser,
		Password:     cfg.RedisPassword,
		RedisDB:      cfg.RedisDB,
		DialTimeout:  cfg.RedisDT,
		ReadTimeout:  cfg.RedisRT,
		WriteTimeout: cfg.RedisWT,
		PoolSize:     cfg.RedisPoolSize,
		Retry:        retryPolicy(cfg, cfg.RedisConnectTimeout),
	}, loggerClient)
	if err != nil {
		loggerClient.Error("Failed to connect to Redis", logger.Error(err))
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	// Bookmark store
	repo, db, err := openRepository(ctx, cfg, loggerClient)
	if err != nil {
		loggerClient.Error("Failed to open bookmark store",
			logger.String("backend", cfg.Backend), logger.Error(err))
		utils.Close(redisClient)
		os.Exit(1)
	}
	loggerClient.Info("bookmark store initialized", logger.String("backend", cfg.Backend))

	// Data collaborator: every committed write is announced on the owner's channel
	publisher := changefeed.NewPublisher(redisClient, loggerClient.Named("changefeed"))
	service := bookmarks.NewService(repo, publisher, loggerClient)

	// Auth collaborator, revoked token ids live in Redis
	tokenStore := redisstore.NewStore(redisClient)
	provider := auth.NewProvider(auth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Secret:       []byte(cfg.JWTSecret),
		TokenTTL:     cfg.TokenTTL,
	}, tokenStore, loggerClient)

	// Views follow sign-out and token refresh
	subscriber := changefeed.NewSubscriber(redisClient, loggerClient.Named("changefeed"))
	views := session.NewManager(service, session.RedisFeed(subscriber), loggerClient.Named("views"))
	unwatch := views.Watch(provider)

	janitor := scheduler.NewViewJanitor(views, loggerClient.Named("janitor"), cfg.JanitorInterval, cfg.ViewIdleTTL)

	// Scheduled import (if an import file is configured)
	var importer *scheduler.BookmarkImporter
	var importTrigger chan struct{}
	if cfg.ImportFile != "" {
		loggerClient.Info("import file configured, initializing bookmark importer",
			logger.String("file", cfg.ImportFile))
		importTrigger = make(chan struct{}, 1)
		importer = scheduler.NewBookmarkImporter(
			cfg.ImportFile,
			cfg.ImportOwner,
			service,
			loggerClient,
			cfg.ImportInterval,
			importTrigger,
		)
	} else {
		loggerClient.Info("import file not configured, scheduled import disabled")
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedOrigins:  cfg.AllowedOrigins,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RedisClient:     redisClient,
		Revocations:     tokenStore,
		Backend:         cfg.Backend,
		Views:           views,
		Auth:            provider,
		Bookmarks:       service,
		ImportTrigger:   importTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		db:          db,
		views:       views,
		unwatch:     unwatch,
		janitor:     janitor,
		importer:    importer,
	}
}

func retryPolicy(cfg *config.Config, total time.Duration) utils.Backoff {
	return utils.Backoff{
		Initial:     cfg.RedisRetryInterval,
		Max:         cfg.RedisMaxWait,
		Total:       total,
		PingTimeout: cfg.RedisPingTimeout,
		WarnAfter:   cfg.RedisWarnThreshold,
	}
}

// openRepository returns the configured store. db is nil for supabase.
func openRepository(ctx context.Context, cfg *config.Config, log logger.Logger) (bookmarks.Repository, *sql.DB, error) {
	switch cfg.Backend {
	case config.BackendSupabase:
		return supabase.NewRepository(supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey)), nil, nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN, retryPolicy(cfg, cfg.DBConnectTimeout), log)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRepository(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Keeper v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Keeper %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start bookmark importer (if enabled)
	if a.importer != nil {
		if err := a.importer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start bookmark importer: %w", err)
		}
		a.logger.Info("bookmark importer started",
			logger.Duration("interval", a.cfg.ImportInterval))
	}

	// Start view janitor
	if err := a.janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start view janitor: %w", err)
	}
	a.logger.Info("view janitor started",
		logger.Duration("interval", a.cfg.JanitorInterval),
		logger.Duration("idle_ttl", a.cfg.ViewIdleTTL))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.shutdownViews()
		return err
	}

	if a.importer != nil {
		a.importer.Stop()
	}
	a.janitor.Stop()

	// Unmounting closes every subscription and ends open event streams,
	// so the server below has nothing long-lived left to wait for.
	a.shutdownViews()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.db != nil {
		utils.MustClose(a.db, "Postgres", a.logger)
	}
	if a.redisClient != nil {
		utils.MustClose(a.redisClient, "Redis", a.logger)
	}

	a.logger.Info("✅ Keeper stopped cleanly")
	_ = a.logger.Sync()
	return nil
}

func (a *App) shutdownViews() {
	if a.unwatch != nil {
		a.unwatch()
	}
	a.views.Close()
}
