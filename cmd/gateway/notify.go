package main

import (
	"dinein-system/internal/notify"
	"dinein-system/internal/orders"

	"gorm.io/gorm"
)

// notifier picks the staff notification path: queued through RabbitMQ when it
// is configured, delivered in-process otherwise, and none without a bot token.
func (app *application) notifier(db *gorm.DB) orders.Notifier {
	cfg := app.config
	if cfg.Telegram.NotifyToken == "" {
		app.logger.Warn("TELEGRAM_NOTIFY_TOKEN not set, staff notifications disabled")
		return nil
	}

	sender, err := notify.NewTelegramSender(cfg.Telegram.NotifyToken)
	if err != nil {
		app.logger.Warnw("failed to start notification bot, staff notifications disabled", "error", err)
		return nil
	}
	dispatcher := notify.NewDispatcher(sender, notify.NewGormRecipients(db), app.logger)

	if cfg.RabbitMQ.URL == "" {
		return notify.NewDirectNotifier(dispatcher, app.logger)
	}

	broker, err := notify.NewRabbitMQBroker(notify.BrokerConfig{
		URL:           cfg.RabbitMQ.URL,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Queues:        []string{cfg.RabbitMQ.Queue},
		Logger:        app.logger,
	})
	if err != nil {
		app.logger.Warnw("failed to connect to RabbitMQ, delivering notifications in-process", "error", err)
		return notify.NewDirectNotifier(dispatcher, app.logger)
	}
	app.logger.Info("connected to RabbitMQ")

	app.broker = broker
	app.worker = notify.NewWorker(dispatcher, broker, cfg.RabbitMQ.Queue, app.logger)
	return notify.NewQueueNotifier(broker, cfg.RabbitMQ.Queue, app.logger)
}
