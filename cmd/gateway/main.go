package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dinein-system/config"
	"dinein-system/internal/admission"
	"dinein-system/internal/audit"
	"dinein-system/internal/catalog"
	"dinein-system/internal/database"
	"dinein-system/internal/health"
	"dinein-system/internal/notify"
	"dinein-system/internal/orders"
	"dinein-system/internal/promotion"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

type application struct {
	config     config.Config
	logger     *zap.SugaredLogger
	redis      *redis.Client
	storage    *audit.Storage
	broker     notify.Broker
	worker     *notify.Worker
	checker    *health.Checker
	grpcServer *grpc.Server

	guard      *admission.Guard
	catalog    *catalog.Repository
	orders     *orders.Service
	promotions *promotion.GormStore
	validator  *promotion.Validator
}

func main() {
	cfg := config.LoadConfig()

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		logger.Fatalw("failed to connect to postgres", "error", err)
	}
	if err := database.MigrateOrderingDB(db); err != nil {
		logger.Fatalw("failed to migrate ordering database", "error", err)
	}
	logger.Info("connected to postgres")

	app := &application{config: cfg, logger: logger, checker: health.NewChecker(logger)}
	app.checker.Add("postgres", true, health.Postgres(db))

	redisClient, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnw("redis unavailable, running without menu cache and push feed", "error", err)
	} else {
		app.redis = redisClient
		app.checker.Add("redis", false, health.Redis(redisClient))
		logger.Info("connected to redis")
	}

	var auditor audit.Recorder = audit.Nop{}
	if cfg.Mongo.URI != "" {
		storage, err := audit.Connect(audit.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, Timeout: cfg.Mongo.Timeout})
		if err != nil {
			logger.Warnw("failed to connect to MongoDB, status audit disabled", "error", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := storage.CreateIndexes(ctx); err != nil {
				logger.Warnw("failed to create indexes", "error", err)
			}
			cancel()
			app.storage = storage
			app.checker.Add("mongo", false, health.Ping(storage))
			auditor = audit.NewMongoRecorder(storage)
			logger.Info("connected to MongoDB")
		}
	}

	var counter admission.Counter = admission.NewMemoryCounter(time.Minute)
	if cfg.Admission.Backend == "redis" && app.redis != nil {
		counter = admission.NewRedisCounter(app.redis)
	}
	app.guard = admission.NewGuard(counter)

	app.catalog = catalog.NewRepository(db, app.redis, logger)
	app.promotions = promotion.NewGormStore(db)
	app.validator = promotion.NewValidator(app.promotions)

	deps := orders.Deps{
		Catalog:    app.catalog,
		Promotions: app.validator,
		Repo:       orders.NewGormRepository(db),
		Auditor:    auditor,
		Log:        logger,
	}
	if app.redis != nil {
		deps.Publisher = orders.NewRedisPublisher(app.redis)
	}
	if n := app.notifier(db); n != nil {
		deps.Notifier = n
	}
	app.orders = orders.NewService(deps)

	app.grpcServer = health.NewGRPCServer(app.checker)

	logger.Fatal(app.run(setupRouter(app)))
}

func (app *application) run(handler http.Handler) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go app.checker.Watch(ctx, 15*time.Second)
	go func() {
		if err := health.Serve(ctx, app.grpcServer, app.config.GRPC.HealthAddr, app.logger); err != nil {
			app.logger.Errorw("gRPC health server stopped", "error", err)
		}
	}()

	if app.worker != nil {
		if err := app.worker.Start(); err != nil {
			return fmt.Errorf("failed to start notification worker: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         app.config.HTTP.Addr,
		Handler:      handler,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())
		stop()

		if app.worker != nil {
			app.worker.Stop()
		}

		if app.storage != nil {
			if err := app.storage.Close(ctx); err != nil {
				app.logger.Errorw("error closing MongoDB", "error", err)
			}
		}

		if app.broker != nil {
			if err := app.broker.Close(); err != nil {
				app.logger.Errorw("error closing RabbitMQ", "error", err)
			}
		}

		if app.redis != nil {
			app.redis.Close()
		}

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.HTTP.Addr, "grpc_health", app.config.GRPC.HealthAddr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.HTTP.Addr)
	return nil
}

func init() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
