package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/storefront-settlement/internal/config"
	kafkax "github.com/ariefcatur/storefront-settlement/internal/kafka"
	"github.com/ariefcatur/storefront-settlement/internal/logs"
	"github.com/ariefcatur/storefront-settlement/internal/notify"
	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/ariefcatur/storefront-settlement/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logs.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		slog.Error("logger", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender, err := notify.NewSMTPSender(notify.MailConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
	})
	if err != nil {
		log.Error("smtp", "err", err)
		os.Exit(1)
	}

	// Redis (dedup)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	worker := &notify.MailWorker{
		Sender:    sender,
		Redis:     rdb,
		StoreName: cfg.Mail.StoreName,
		Log:       log.With("component", "mailer"),
	}

	// Consumer
	group, workers := cfg.Mailer.Group, cfg.Mailer.Workers
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderSettled, workers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("mailer consumer started", "group", group, "topic", orders.TopicOrderSettled, "workers", workers)
		if err := cons.Start(ctx, worker.HandleOrderSettled); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()
	<-done
}
