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

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/db"
	httpx "github.com/geocoder89/taskhub/internal/http"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/redisclient"
	"github.com/geocoder89/taskhub/internal/repo/memory"
	"github.com/geocoder89/taskhub/internal/repo/postgres"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/geocoder89/taskhub/internal/service"
	"github.com/geocoder89/taskhub/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg, os.Args[2:]); err != nil {
			log.Error("migrate failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// runMigrate handles `api migrate [up|down|status]`.
func runMigrate(cfg config.Config, args []string) error {
	pool, err := db.NewPool(context.Background(), cfg.DBURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}

	ctx := context.Background()

	switch cmd {
	case "up":
		return db.Migrate(ctx, pool)
	case "down":
		return db.MigrateDown(ctx, pool)
	case "status":
		return db.MigrationStatus(ctx, pool)
	default:
		return fmt.Errorf("unknown migrate command %q (want up, down or status)", cmd)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "taskhub-api",
			Env:         cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
		})
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Pinger{}

	// stores
	var (
		userRepo service.UserRepo
		taskRepo service.TaskRepo
	)

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		users, tasks := memory.New()
		userRepo, taskRepo = users, tasks

	case config.StoreDriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()

		if cfg.DBAutoMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}

		checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
		userRepo, taskRepo = postgresRepos(pool, prom)

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	// cache: redis when configured, otherwise process-local
	var store cache.Store = cache.NewMemory(cfg.CacheTTL)
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pctx, cancel := config.WithTimeout(2 * time.Second)
		err := rdb.Ping(pctx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}

		checks["redis"] = rdb.Ping
		store = cache.NewRedis(rdb.Raw(), cfg.CacheTTL)
	}

	avatars, avatarDir, err := avatarStore(ctx, cfg)
	if err != nil {
		return err
	}

	hasher := security.NewBcryptHasher()
	opts := service.Options{Logger: log, Prom: prom, Cache: store, CacheTTL: cfg.CacheTTL}

	userSvc := service.NewUserService(userRepo, taskRepo, hasher, avatars, opts)
	taskSvc := service.NewTaskService(taskRepo, opts)
	avatarSvc := service.NewAvatarService(userRepo, avatars, opts)

	sctx, cancel := config.WithTimeout(5 * time.Second)
	err = db.EnsureAdminUser(sctx, userRepo, hasher.Hash, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:       log,
		Config:    cfg,
		Tasks:     taskSvc,
		Users:     userSvc,
		Avatars:   avatarSvc,
		Tokens:    auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL(), cfg.JWTRefreshTTL()),
		Revoked:   store,
		Prom:      prom,
		Metrics:   reg,
		AvatarDir: avatarDir,
		Checks:    checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver, "avatars", cfg.AvatarStorage)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	log.Info("server shutting down")

	shutdownCtx, cancelShutdown := config.WithTimeout(10 * time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

func postgresRepos(pool *pgxpool.Pool, prom *observability.Prom) (*postgres.UsersRepo, *postgres.TasksRepo) {
	return postgres.NewUsersRepo(pool, prom), postgres.NewTasksRepo(pool, prom)
}

// avatarStore picks local disk or S3 and puts a circuit breaker in front of it.
// The returned dir is non-empty only for local storage, which the router serves.
func avatarStore(ctx context.Context, cfg config.Config) (storage.Store, string, error) {
	breaker := storage.ProtectedStoreConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
		Cooldown:         15 * time.Second,
		HalfOpenMaxCalls: 1,
	}

	switch cfg.AvatarStorage {
	case config.AvatarStorageLocal:
		local, err := storage.NewLocalStore(cfg.AvatarDir)
		if err != nil {
			return nil, "", err
		}
		return storage.NewProtectedStore(local, breaker), local.Dir(), nil

	case config.AvatarStorageS3:
		s3, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			Bucket:       cfg.S3.Bucket,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
			Prefix:       "avatars/",
		})
		if err != nil {
			return nil, "", err
		}
		return storage.NewProtectedStore(s3, breaker), "", nil

	default:
		return nil, "", fmt.Errorf("unknown AVATAR_STORAGE %q", cfg.AvatarStorage)
	}
}
