package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/kronos/internal/config"
	"github.com/iliyamo/kronos/internal/database"
	"github.com/iliyamo/kronos/internal/handler"
	"github.com/iliyamo/kronos/internal/middleware"
	"github.com/iliyamo/kronos/internal/queue"
	"github.com/iliyamo/kronos/internal/repository"
	"github.com/iliyamo/kronos/internal/router"
	"github.com/iliyamo/kronos/internal/service"
	"github.com/iliyamo/kronos/internal/utils"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogger(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db, cfg.DBDriver); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database ready")

	// Redis is optional: without it the cache and rate limiter pass through.
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	hasher, err := utils.NewHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid password hasher")
	}

	var pub service.Publisher
	if cfg.AMQPURL != "" {
		pub = queue.NewAMQPPublisher(cfg.AMQPURL)
	}
	venue := service.NewVenue(db, pub, cfg.BoxExclusive)
	tokens := repository.NewTokenRepo(db)

	janitor, err := service.NewTokenJanitor(tokens, cfg.PurgeSchedule)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.PurgeSchedule).Msg("invalid token purge schedule")
	}
	janitor.Start()
	defer janitor.Stop()

	bg, stopBG := context.WithCancel(context.Background())
	defer stopBG()
	if cfg.AMQPURL != "" {
		go func() {
			if err := queue.StartActivityConsumer(bg, cfg.AMQPURL, cfg.ActivityLogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("activity consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger())

	router.RegisterRoutes(e)
	router.RegisterAuth(e,
		handler.NewAuthHandler(cfg, venue, tokens, hasher),
		cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheCfg := config.LoadCacheConfig()
	router.RegisterStats(e,
		handler.NewStatsHandler(venue, cfg.RequestTimeout),
		middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterVenue(e, handler.NewVenueHandler(venue, cfg.RequestTimeout), cfg.JWTSecret)
	admin := handler.NewAdminHandler(venue, hasher, cfg.RequestTimeout)
	admin.Cache = middleware.NewCacheEvictor(cacheCfg, rdb)
	router.RegisterAdmin(e, admin, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	stopBG()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}
