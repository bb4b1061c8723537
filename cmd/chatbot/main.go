package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"dinein-system/config"
	"dinein-system/internal/admission"
	"dinein-system/internal/catalog"
	"dinein-system/internal/chat"
	"dinein-system/internal/database"
	"dinein-system/internal/orders"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	if cfg.Telegram.Token == "" {
		logger.Fatal("TELEGRAM_TOKEN must be set")
	}

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		logger.Fatalw("failed to connect to postgres", "error", err)
	}
	if err := database.MigrateOrderingDB(db); err != nil {
		logger.Fatalw("failed to migrate ordering database", "error", err)
	}

	var counter admission.Counter = admission.NewMemoryCounter(time.Minute)
	catalogRepo := catalog.NewRepository(db, nil, logger)

	redisClient, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnw("redis unavailable, menu summaries are read from postgres", "error", err)
	} else {
		defer redisClient.Close()
		catalogRepo = catalog.NewRepository(db, redisClient, logger)
		if cfg.Admission.Backend == "redis" {
			counter = admission.NewRedisCounter(redisClient)
		}
	}

	routerCfg := chat.RouterConfig{
		Cache:    chat.NewSessionCache(cfg.Chat.SessionTTL, time.Now),
		Resolver: chat.NewGormResolver(db),
		Catalog:  catalogRepo,
		Orders:   orders.NewService(orders.Deps{Repo: orders.NewGormRepository(db), Log: logger}),
		Guard:    admission.NewGuard(counter),
		AIRule:   admission.Rule{Limit: cfg.Admission.AI.Limit, Window: cfg.Admission.AI.Window},
		MaxItems: cfg.Chat.MenuItemsLimit,
		Log:      logger,
	}
	if cfg.Chat.GeneratorKey != "" {
		routerCfg.Generator = chat.NewOpenAIGenerator(cfg.Chat.GeneratorURL, cfg.Chat.GeneratorKey, cfg.Chat.GeneratorModel)
	} else {
		logger.Warn("CHAT_GENERATOR_KEY not set, free-form questions get the canned reply")
	}
	router := chat.NewRouter(routerCfg)

	transport, err := chat.NewTelegramTransport(cfg.Telegram.Token, router, logger)
	if err != nil {
		logger.Fatalw("failed to start telegram bot", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, routerCfg.Cache, cfg.Chat.SessionTTL, logger)

	transport.Run(ctx)
	logger.Info("chatbot has stopped")
}

func sweepSessions(ctx context.Context, cache *chat.SessionCache, every time.Duration, logger *zap.SugaredLogger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cache.Sweep(); n > 0 {
				logger.Debugw("expired chat sessions dropped", "count", n)
			}
		}
	}
}
