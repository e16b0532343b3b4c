package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/ticketbottle-gateway/config"
	grpcSvc "github.com/vogiaan1904/ticketbottle-gateway/internal/delivery/grpc"
	httpDelivery "github.com/vogiaan1904/ticketbottle-gateway/internal/delivery/http"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/delivery/kafka/consumer"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/delivery/ws"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/repository"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/service"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/store"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/cache"
	pkgGrpc "github.com/vogiaan1904/ticketbottle-gateway/pkg/grpc"
	pkgKafka "github.com/vogiaan1904/ticketbottle-gateway/pkg/kafka"
	pkgLog "github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
	pkgRedis "github.com/vogiaan1904/ticketbottle-gateway/pkg/redis"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	instanceID := cfg.Gateway.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	ctx = l.With(ctx, "instance", instanceID)

	// Shared cache; redis also relays broadcasts between instances
	var (
		c        cache.Cache
		relay    gateway.Relay
		redisCli *goredis.Client
	)
	switch cfg.Cache.Driver {
	case config.CacheDriverRedis:
		redisCli, err = pkgRedis.Connect(ctx, cfg.Redis)
		if err != nil {
			l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
		}
		defer pkgRedis.Disconnect(redisCli)

		c = cache.NewRedisCache(redisCli)
		relay = gateway.NewRedisRelay(redisCli, l)
	default:
		memCache := cache.NewMemoryCache(time.Minute)
		defer memCache.Close()

		c = memCache
		l.Warn(ctx, "Using in-memory cache, state is not shared between instances")
	}

	// Persistence store
	db, err := store.Open(cfg.Database)
	if err != nil {
		l.Fatalf(ctx, "Failed to open database: %v", err)
	}
	defer store.Close(db)
	st := store.New(db, l)

	// Repositories
	presenceRepo := repository.NewPresenceRepository(c, l)
	voiceRepo := repository.NewVoiceRepository(c, l)
	musicRepo := repository.NewMusicRepository(c, l)
	lockRepo := repository.NewLockRepository(c, l)

	// Kafka
	var (
		activity    service.ActivityProducer
		kafkaConsGr sarama.ConsumerGroup
	)
	if cfg.Kafka.Enabled {
		kafkaSyncProd, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
			ClientID:     "chat-gateway-" + instanceID,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		prod := producer.NewProducer(kafkaSyncProd, l)
		defer prod.Close()
		activity = prod

		// Every instance must see every message event, so each gets its own group.
		kafkaConsGr, err = pkgKafka.NewConsumer(pkgKafka.ConsumerConfig{
			Brokers:  cfg.Kafka.Brokers,
			GroupID:  fmt.Sprintf("%s-%s", cfg.Kafka.ConsumerGroupID, instanceID),
			ClientID: "chat-gateway-" + instanceID,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka consumer: %v", err)
		}
	}

	// Gateway core
	topics := gateway.NewTopicIndex(cfg.Gateway.MaxTopicsPerConn)
	reg := gateway.NewRegistry(topics, l)
	fanout := gateway.NewFanout(reg, relay, instanceID, l)

	// Services
	presenceSvc := service.NewPresenceService(presenceRepo, st, fanout, activity, cfg.Gateway.PresenceTTL, l)
	voiceSvc := service.NewVoiceService(voiceRepo, fanout, topics, fanout, activity, cfg.Gateway.VoiceStateTTL, l)
	musicSvc := service.NewMusicService(musicRepo, lockRepo, st, fanout, service.MusicOptions{
		StateTTL:       cfg.Gateway.MusicStateTTL,
		HistorySize:    cfg.Gateway.MusicHistorySize,
		ConfigCacheTTL: cfg.Gateway.MusicConfigCacheTTL,
	}, l)
	defer musicSvc.Close()

	sessionSvc := service.NewSessionService(
		service.NewJWTVerifier(cfg.JWT.Secret),
		st,
		reg,
		fanout,
		presenceSvc,
		voiceSvc,
		cfg.Gateway.HeartbeatInterval,
		l,
	)
	eventSvc := service.NewEventService(fanout, l)

	reg.OnDisconnect(sessionSvc.HandleDisconnect)

	// Websocket + HTTP server
	dispatcher := ws.NewDispatcher(ws.Deps{
		Session:   sessionSvc,
		Presence:  presenceSvc,
		Voice:     voiceSvc,
		Music:     musicSvc,
		Publisher: fanout,
		Topics:    topics,
		Registry:  reg,
	}, cfg.Gateway.HandlerTimeout, l)

	wsHandler := ws.NewHandler(reg, dispatcher, ws.Options{
		IdentifyTimeout: cfg.Gateway.IdentifyTimeout,
		WriteWait:       cfg.Gateway.WriteWait,
		SendBufferSize:  cfg.Gateway.SendBufferSize,
		MaxFrameSize:    cfg.Gateway.MaxFrameSize,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	}, l)

	checks := map[string]httpDelivery.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisCli != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisCli.Ping(ctx).Err()
		}
	}

	httpHandler := httpDelivery.NewHTTPHandler(reg, topics, checks, instanceID, l)
	httpSrv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:     httpDelivery.NewRouter(httpHandler, wsHandler, cfg.Server.AllowedOrigins, l),
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	// gRPC server
	lnr, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRpcPort))
	if err != nil {
		l.Fatalf(ctx, "gRPC server failed to listen: %v", err)
	}

	gRpcSrv := grpc.NewServer()
	pkgGrpc.RegisterGatewayServer(gRpcSrv, grpcSvc.NewGrpcService(eventSvc, musicSvc, l))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gRpcSrv, healthSrv)
	healthSrv.SetServingStatus(pkgGrpc.GatewayServiceName, healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)

	if kafkaConsGr != nil {
		kafkaCons := consumer.NewConsumer(kafkaConsGr, eventSvc, l)
		if err := kafkaCons.Start(gctx); err != nil {
			l.Fatalf(ctx, "Failed to start Kafka consumer: %v", err)
		}
		defer kafkaCons.Close()
	}

	g.Go(func() error {
		return reg.RunHeartbeat(gctx, cfg.Gateway.HeartbeatInterval)
	})

	g.Go(func() error {
		return fanout.Run(gctx)
	})

	g.Go(func() error {
		l.Infof(gctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		l.Infof(gctx, "gRPC server is listening on port: %d", cfg.Server.GRpcPort)
		if err := gRpcSrv.Serve(lnr); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		l.Info(ctx, "Server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		healthSrv.Shutdown()
		reg.CloseAll(shutdownCtx, gateway.ReasonShutdown)

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			l.Errorf(ctx, "Failed to shut down HTTP server: %v", err)
		}
		gRpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Errorf(ctx, "Server stopped with error: %v", err)
	}

	l.Info(ctx, "Server exited")
}
