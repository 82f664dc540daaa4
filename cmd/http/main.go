package main

import (
	"context"
	"expvar"
	"log"
	"runtime"
	"time"

	"github.com/hilthontt/huddle/internal/application/broadcast"
	"github.com/hilthontt/huddle/internal/application/session"
	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/configs"
	"github.com/hilthontt/huddle/internal/infrastructure/events"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/hilthontt/huddle/internal/infrastructure/messaging"
	"github.com/hilthontt/huddle/internal/infrastructure/metrics"
	"github.com/hilthontt/huddle/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/huddle/internal/infrastructure/repository"
	"github.com/hilthontt/huddle/internal/infrastructure/tracing"
	"github.com/hilthontt/huddle/internal/infrastructure/ws"
	"github.com/hilthontt/huddle/internal/presentation/api"
	"github.com/hilthontt/huddle/internal/presentation/handler/chat"
	"github.com/hilthontt/huddle/internal/presentation/handler/health"
	"github.com/hilthontt/huddle/internal/presentation/handler/rooms"
)

// @title        Huddle API
// @version      1.0
// @description  Ephemeral room-scoped chat over websockets.
// @BasePath     /api
func main() {
	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
		AppName:  cfg.Logger.AppName,
	})
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sh, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatalf("failed to initialize the tracer: %v", err)
	}
	defer sh(ctx)

	roomRepository := repository.NewRoomRepository(domain.NewCodeGenerator(cfg.Rooms.CodeLength), repository.Options{
		MaxRooms:        cfg.Rooms.MaxRooms,
		MaxCodeAttempts: cfg.Rooms.MaxCodeAttempts,
		Room: domain.RoomOptions{
			MaxMembers:           cfg.Rooms.MaxMembers,
			MaxBodyLength:        cfg.Rooms.MaxBodyLength,
			HistoryLimit:         cfg.Rooms.HistoryLimit,
			CaseInsensitiveNames: cfg.Rooms.CaseInsensitiveNames,
		},
	})
	m := metrics.New(roomRepository.Count)
	hub := ws.NewHub(logger)

	var publisher domain.RoomEventPublisher = events.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI, logger)
		if err != nil {
			logger.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer rabbitmq.Close()

		logger.Info(logging.RabbitMQ, logging.Startup, "rabbitmq connected", nil)
		publisher = events.NewRoomPublisher(rabbitmq)

		roomConsumer := events.NewRoomConsumer(rabbitmq, logger)
		go func() {
			if err := roomConsumer.Listen(); err != nil {
				logger.Error(logging.RabbitMQ, logging.Consume, "room consumer stopped", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}()
	}

	// HTTP requests share one budget per client; websocket frames get a
	// budget per connection.
	var httpCache ratelimiter.GetterSetter
	if cfg.RateLimiter.RedisAddr == "" {
		httpCache = ratelimiter.NewInMemory()
	} else {
		httpCache = ratelimiter.NewRedis(ratelimiter.RedisOptions{
			Addr:     cfg.RateLimiter.RedisAddr,
			Password: cfg.RateLimiter.RedisPassword,
			DB:       cfg.RateLimiter.RedisDB,
		})
		logger.Info(logging.Redis, logging.Startup, "rate limiter backed by redis", map[logging.ExtraKey]any{
			"addr": cfg.RateLimiter.RedisAddr,
		})
	}
	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		Cache:            httpCache,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})
	wsLimiter := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.WebSocket.MessagesPerSecond,
		MaxBurst:         cfg.WebSocket.Burst,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
	})

	dispatcher := broadcast.NewDispatcher(hub, roomRepository, logger, m, broadcast.Options{
		EchoToSender: cfg.Rooms.EchoToSender,
	})
	sessions := session.NewService(roomRepository, dispatcher, publisher, wsLimiter, logger, m, session.Options{
		MaxNameLength: cfg.Rooms.MaxNameLength,
	})

	go sweep(ctx, sessions, cfg.Rooms.SweepInterval, cfg.Rooms.AbandonedAfter)

	roomHandler := rooms.NewHandler(roomRepository, logger)
	healthHandler := health.NewHandler(roomRepository, hub)
	chatHandler := chat.NewHandler(sessions, hub, ws.NewUpgrader(cfg.HTTP.AllowedOrigins), ws.ClientOptions{
		SendBuffer: cfg.WebSocket.SendBuffer,
		ReadLimit:  cfg.WebSocket.ReadLimit,
		WriteWait:  cfg.WebSocket.WriteWait,
		PongWait:   cfg.WebSocket.PongWait,
		PingPeriod: cfg.WebSocket.PingPeriod,
	}, logger, m)

	app := api.NewApplication(*cfg, roomHandler, healthHandler, chatHandler, sessions, hub, logger, rl, m)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("rooms", expvar.Func(func() any {
		return roomRepository.Count()
	}))
	expvar.Publish("connections", expvar.Func(func() any {
		return hub.Count()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

// sweep closes rooms that were created but never joined.
func sweep(ctx context.Context, sessions *session.Service, every, olderThan time.Duration) {
	if every <= 0 || olderThan <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.SweepAbandoned(ctx, olderThan)
		}
	}
}
