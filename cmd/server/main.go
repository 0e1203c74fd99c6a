package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/section-scheduler/internal/config"
	"github.com/iliyamo/section-scheduler/internal/database"
	"github.com/iliyamo/section-scheduler/internal/handler"
	"github.com/iliyamo/section-scheduler/internal/middleware"
	"github.com/iliyamo/section-scheduler/internal/queue"
	"github.com/iliyamo/section-scheduler/internal/repository"
	"github.com/iliyamo/section-scheduler/internal/router"
	"github.com/iliyamo/section-scheduler/internal/schedule"
	"github.com/iliyamo/section-scheduler/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Env == "dev" {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unreachable; cache and rate limiting disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer rdb.Close()
	}

	store := repository.NewScheduleStore(db)
	guard := schedule.NewGuard(store, logger.Named("guard"))
	users := repository.NewUserRepo(db)
	events := service.NewPublisher(cfg.Events, logger)

	mw := router.Middlewares{
		Limiter: middleware.NewTokenBucket(cfg.RateLimit, rdb, logger.Named("ratelimit")),
		Cache:   middleware.NewRedisCache(cfg.Cache, rdb),
		Purge:   middleware.PurgeOnWrite(cfg.Cache, rdb),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request", zap.String("method", v.Method), zap.String("uri", v.URI),
				zap.Int("status", v.Status), zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	sections := handler.NewSectionHandler(store.Sections, guard, events, logger)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db), logger.Named("auth")), cfg.JWTSecret, mw.Limiter)
	router.RegisterAdmin(e, handler.NewAdminHandler(store.Courses, store.Rooms, users, cfg.BcryptCost, logger.Named("admin")), sections, cfg.JWTSecret, mw)
	router.RegisterFaculty(e, sections, cfg.JWTSecret, mw)
	router.RegisterStudent(e, handler.NewStudentHandler(store.Sections, store.Schedules, guard, events, logger), cfg.JWTSecret, mw)

	if cfg.Events.Enabled {
		go func() {
			if err := queue.NewConsumer(cfg.Events, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	errc := make(chan error, 1)
	go func() { errc <- e.Start(addr) }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
