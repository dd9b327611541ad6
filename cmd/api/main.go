package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/storefront-settlement/internal/config"
	"github.com/ariefcatur/storefront-settlement/internal/httpx"
	kafkax "github.com/ariefcatur/storefront-settlement/internal/kafka"
	"github.com/ariefcatur/storefront-settlement/internal/logs"
	"github.com/ariefcatur/storefront-settlement/internal/notify"
	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/ariefcatur/storefront-settlement/internal/payment"
	"github.com/ariefcatur/storefront-settlement/internal/postgres"
	"github.com/ariefcatur/storefront-settlement/internal/redisx"
	"github.com/ariefcatur/storefront-settlement/internal/settlement"
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
	if err := cfg.ValidateAPI(); err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolConfig{})
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "err", err)
		os.Exit(1)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: settled & paid (dua topic berbeda)
	pSettled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSettled, 1024, log)
	pSettled.Start(ctx)
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024, log)
	pPaid.Start(ctx)

	verifier := payment.NewVerifier(cfg.Payment.KeySecret, cfg.Payment.WebhookSecret, cfg.Payment.AllowSkip)
	if verifier.SkipAllowed() {
		log.Warn("payment signature skip sentinel is ENABLED; never run this in production")
	}
	if !verifier.WebhookConfigured() {
		log.Warn("RAZORPAY_WEBHOOK_SECRET not set; webhook deliveries will be ignored")
	}

	repo := &orders.Repo{DB: db}
	notifier := &notify.Notifier{
		Settled:     pSettled,
		Paid:        pPaid,
		Redis:       rdb,
		ServiceName: cfg.ServiceName,
		Log:         log.With("component", "notifier"),
	}
	svc := &settlement.Service{
		Store:        repo,
		Verifier:     verifier,
		Notifier:     notifier,
		Cache:        &redisx.SettleCache{Redis: rdb, Log: log},
		Log:          log.With("component", "settlement"),
		VerifyTotals: cfg.Settle.VerifyTotals,
	}

	// Router & handlers
	adminSecret := []byte(cfg.Admin.JWTSecret)
	router := httpx.NewRouter(log)
	(&httpx.CheckoutHandler{Service: svc, Timeout: cfg.Settle.Timeout, Log: log}).Register(router)
	(&httpx.WebhookHandler{Verifier: verifier, Orders: repo, Notifier: notifier, Redis: rdb, Log: log}).Register(router)
	(&httpx.InventoryHandler{Store: repo, Admin: notifier, Secret: adminSecret, Log: log}).Register(router)
	(&httpx.OrdersHandler{Repo: repo, Redis: rdb, Admin: notifier, Secret: adminSecret, Log: log}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	// tunggu settlement yang sedang jalan selesai sebelum producer ditutup
	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.Settle.Timeout+5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pSettled.Close() // tutup inbox -> flush & close writer
	pPaid.Close()
	pSettled.WaitClosed()
	pPaid.WaitClosed()
	cancel()
}
