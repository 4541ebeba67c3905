package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatline/internal/config"
	"chatline/internal/handlers"
	"chatline/internal/kafka"
	"chatline/internal/mail"
	"chatline/internal/observability"
	"chatline/internal/presence"
	"chatline/internal/pubsub"
	"chatline/internal/relay"
	"chatline/internal/router"
	"chatline/internal/security"
	"chatline/internal/server"
	"chatline/internal/service"
	"chatline/internal/store"
	"chatline/internal/websocket"
)

func main() {
	cfg := config.Load()

	// Observability
	observability.InitLogger(cfg.ServiceName)
	log := observability.Log

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer tp.Shutdown(context.Background())
	}

	ctx, cancel := setupSignalHandler(log)
	defer cancel()

	instanceID := getOrGenerateInstanceID(cfg.InstanceID)

	pg, err := store.NewPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pg.Close()

	reg := presence.NewRegistry()

	verify := func(token string) (string, error) {
		return security.VerifyAccess(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, token)
	}
	engine := relay.NewEngine(reg, pg, verify, cfg.ServiceName)

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		engine.WithProducer(producer, cfg.KafkaMessageTopic)
	}

	if cfg.RedisAddr != "" {
		redisClient := initRedis(ctx, cfg.RedisAddr, log)
		bus := pubsub.New(redisClient, instanceID)
		engine.WithBus(bus, instanceID)
		bus.Subscribe(ctx, engine.DeliverRemote)
	}

	authSvc := service.NewAuthService(pg, cfg, initMailer(cfg), producerOrNil(producer))

	uploadH, err := handlers.NewUploadHandler(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatal("failed to set up upload dir", zap.Error(err))
	}

	mainRouter := router.New(
		handlers.NewAuthHandler(authSvc),
		handlers.NewChatHandler(pg, pg),
		uploadH,
		websocket.NewHandler(engine, cfg.ServiceName),
		cfg,
	)

	obsSrv := initObservabilityServer(cfg, pg.Ping)
	mainSrv := server.New(cfg.HTTPAddr, mainRouter)

	startServers(cfg, obsSrv, mainSrv, log)

	<-ctx.Done()
	performGracefulShutdown(obsSrv, mainSrv, reg, log)
}

func setupSignalHandler(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func getOrGenerateInstanceID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func initRedis(ctx context.Context, addr string, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	return client
}

func initMailer(cfg *config.Config) mail.Sender {
	if cfg.SMTPAddr == "" {
		return mail.LogSender{}
	}
	return &mail.SMTPSender{
		Addr: cfg.SMTPAddr,
		Host: cfg.SMTPHost,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}
}

// producerOrNil keeps the typed-nil producer from masquerading as a non-nil
// interface value inside the auth service.
func producerOrNil(p *kafka.Producer) service.Publisher {
	if p == nil {
		return nil
	}
	return p
}

func initObservabilityServer(cfg *config.Config, ping func(ctx context.Context) error) *http.Server {
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/health/live", observability.HealthLiveHandler)
	mux.Get("/health/ready", observability.HealthReadyHandler(ping))
	return &http.Server{Addr: cfg.ObsHTTPAddr, Handler: mux}
}

func startServers(cfg *config.Config, obsSrv *http.Server, mainSrv *server.Server, log *zap.Logger) {
	go func() {
		log.Info("starting observability server", zap.String("addr", cfg.ObsHTTPAddr))
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("observability server error", zap.Error(err))
		}
	}()
	go func() {
		log.Info("starting main server", zap.String("addr", cfg.HTTPAddr))
		if err := mainSrv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()
}

func performGracefulShutdown(obs *http.Server, main *server.Server, reg *presence.Registry, log *zap.Logger) {
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := main.Shutdown(ctx); err != nil {
		log.Error("error during main server shutdown", zap.Error(err))
	}
	if err := obs.Shutdown(ctx); err != nil {
		log.Error("error during observability server shutdown", zap.Error(err))
	}
	reg.CloseAll()
	log.Info("shutdown complete, exiting")
}
