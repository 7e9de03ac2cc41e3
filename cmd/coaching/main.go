package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/example/coaching-booking/internal/application"
	"github.com/example/coaching-booking/internal/cache"
	"github.com/example/coaching-booking/internal/config"
	httptransport "github.com/example/coaching-booking/internal/http"
	"github.com/example/coaching-booking/internal/logging"
	"github.com/example/coaching-booking/internal/persistence/sqlite"
	"github.com/example/coaching-booking/internal/persistence/sqlite/migration"
)

const usage = `usage:
  coaching                  start the booking API
  coaching hash-token TOKEN print the argon2id hash to use as COACHING_ADMIN_TOKEN_HASH`

func main() {
	if len(os.Args) > 1 {
		if err := runCommand(os.Args[1:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	bootstrap := logging.New(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// runCommand handles the CLI subcommands.
func runCommand(args []string, out io.Writer) error {
	switch args[0] {
	case "hash-token":
		if len(args) != 2 {
			return errors.New(usage)
		}
		hash, err := application.HashAdminToken(args[1], application.DefaultArgon2idParams)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, hash)
		return err
	case "help", "-h", "--help":
		_, err := fmt.Fprintln(out, usage)
		return err
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	slotCache, closeCache, err := newSlotCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	handler := buildHandler(appDeps{
		Storage:   storage,
		Config:    cfg,
		SlotCache: slotCache,
		Now:       time.Now,
		NewID:     uuid.NewString,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("coaching booking API listening", "addr", server.Addr, "redis", cfg.UsesRedis(), "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newSlotCache picks the shared Redis cache when REDIS_ADDR is set and the
// in-process cache otherwise.
func newSlotCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (application.SlotCache, func(), error) {
	if !cfg.UsesRedis() {
		return application.NewMemorySlotCache(cfg.SlotCacheTTL, 0, time.Now), func() {}, nil
	}
	client, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closeFn := func() {
		if cerr := client.Close(); cerr != nil && !errors.Is(cerr, redis.ErrClosed) {
			logger.Error("failed to close redis client", "error", cerr)
		}
	}
	return cache.NewRedisSlotCache(client, cache.Options{TTL: cfg.SlotCacheTTL, Logger: logger}), closeFn, nil
}

type appDeps struct {
	Storage   *sqlite.Storage
	Config    config.Config
	SlotCache application.SlotCache
	Now       func() time.Time
	NewID     func() string
	Logger    *slog.Logger
}

// buildHandler wires repositories, services and transport into the root handler.
func buildHandler(deps appDeps) http.Handler {
	cfg, logger := deps.Config, deps.Logger

	lessonTypeRepo := newLessonTypeRepositoryAdapter(deps.Storage.LessonTypes)
	athleteRepo := newAthleteRepositoryAdapter(deps.Storage.Athletes)
	availabilityRepo := newAvailabilityRepositoryAdapter(deps.Storage.Availability)
	bookingRepo := newBookingRepositoryAdapter(deps.Storage.Bookings)

	settings := application.SlotSettings{
		Granularity: cfg.SlotGranularity,
		HorizonDays: cfg.BookingHorizonDays,
		Location:    cfg.Location,
		Cache:       deps.SlotCache,
	}

	lessonTypeService := application.NewLessonTypeServiceWithLogger(lessonTypeRepo, deps.NewID, deps.Now, logger)
	athleteService := application.NewAthleteServiceWithLogger(athleteRepo, deps.NewID, deps.Now, logger)
	availabilityService := application.NewAvailabilityServiceWithLogger(availabilityRepo, lessonTypeRepo, bookingRepo, settings, deps.NewID, deps.Now, logger)
	bookingService := application.NewBookingServiceWithLogger(bookingRepo, availabilityRepo, lessonTypeRepo, athleteRepo, settings, deps.NewID, deps.Now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		LessonTypes:  httptransport.NewLessonTypeHandler(lessonTypeService, logger),
		Athletes:     httptransport.NewAthleteHandler(athleteService, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, logger),
		Bookings:     httptransport.NewBookingHandler(bookingService, logger),
		Health:       httptransport.NewHealthHandler(deps.Storage.DB(), logger),
		RateLimiter: httptransport.NewRateLimiter(httptransport.RateLimitConfig{
			PerMinute: cfg.RateLimitPerMinute,
			Burst:     cfg.RateLimitBurst,
			Now:       deps.Now,
		}, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Authenticate(cfg.AdminTokenHash, logger),
		},
	})

	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	}).Handler(router)
}
