package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/cargobooking/api"
	"github.com/Domenick1991/cargobooking/config"
	"github.com/Domenick1991/cargobooking/internal/bootstrap"
	"github.com/Domenick1991/cargobooking/internal/cache"
	"github.com/Domenick1991/cargobooking/internal/health"
	"github.com/Domenick1991/cargobooking/internal/kafka"
	"github.com/Domenick1991/cargobooking/internal/logger"
	"github.com/Domenick1991/cargobooking/internal/repository"
	"github.com/Domenick1991/cargobooking/internal/service/booking"
	"github.com/Domenick1991/cargobooking/internal/service/flights"
	"github.com/Domenick1991/cargobooking/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	grpchealth "google.golang.org/grpc/health"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Log)
	if logger.Log.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	var bookingRepo repository.BookingRepository
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, err := repository.ConnectMongo(ctx, cfg.Database.MongoURI)
		if err != nil {
			log.Fatal().Err(err).Msg("connect mongodb")
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		mongoRepo := repository.NewMongoBookingRepository(client.Database(cfg.Database.MongoDatabase))
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("ensure booking indexes")
		}
		bookingRepo = mongoRepo
	default:
		bookingRepo = repository.NewBookingRepository(pool)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("booking store ready")

	redisClient := cache.NewClient(cfg.Redis)
	defer redisClient.Close()
	guard := cache.NewGuard(redisClient, cfg.Redis.OpTimeout())
	go guard.Watch(ctx, cfg.Redis.HealthInterval())

	locker := cache.NewLocker(guard, cfg.Booking.LockTTL())
	redisCache := cache.NewRedisCache(guard, cfg.Booking.CacheTTL(), cfg.Booking.RouteCacheTTL())

	var producer booking.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewProducer(cfg.Kafka.Brokers)
		defer p.Close()
		producer = p
	} else {
		log.Warn().Msg("no kafka brokers configured, booking events disabled")
	}

	flightService := flights.NewFlightService(repository.NewFlightRepository(pool), redisCache)
	bookingService := booking.NewBookingService(
		bookingRepo,
		locker,
		redisCache,
		producer,
		booking.WithEventsTopic(cfg.Kafka.BookingEventsTopic),
		booking.WithListLimits(cfg.Booking.ListDefaultLimit, cfg.Booking.ListMaxLimit),
	)
	defer bookingService.Wait()

	grpcHealth := grpchealth.NewServer()
	checker := health.NewChecker(bookingRepo, guard, grpcHealth)
	go checker.Watch(ctx, cfg.Redis.HealthInterval())

	router := api.NewRouter(cfg.HTTP, bookingService, flightService, checker)
	servers := bootstrap.NewServers(cfg, router, grpcHealth)

	if err := servers.Run(ctx, cfg.GRPC.Address); err != nil {
		log.Error().Err(err).Msg("server error")
		return
	}
	log.Info().Msg("stopped")
}
