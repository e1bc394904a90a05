package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatroomsgo/internal/config"
	"chatroomsgo/internal/database/db_client"
	"chatroomsgo/internal/database/db_schema"
	"chatroomsgo/internal/http/http_server"
	"chatroomsgo/internal/redis/redis_client"
	"chatroomsgo/internal/services/coordinator"
	"chatroomsgo/internal/services/message"
	"chatroomsgo/internal/services/room"
	"chatroomsgo/internal/syncmsg"
	"chatroomsgo/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis
	redisClient, err = redis_client.NewRedisClient(cfg.RedisChatHost, int(cfg.RedisChatPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	Log.Debug("Redis client created successfully")

	// 4. Postgres db client + schema
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	if err := db_schema.Apply(ctx, pgDb); err != nil {
		Log.Fatal("pg-schema", zap.Error(err))
	}

	// 5. Durable services: room registry + message log
	roomSvc := room.NewRoomService(redisClient, pgDb)
	messageSvc := message.NewMessageService(redisClient, pgDb, cfg.MessageStreamMaxLen)

	// 6. Background: message stream ➜ Postgres persister
	syncmsg.Run(ctx, redisClient, pgDb)

	// 7. WebSockets hub + Redis fan-out
	hub := ws.NewHub()
	delivery := ws.NewDelivery(hub, redisClient)
	delivery.Start(ctx)

	// 8. Room coordinator on top of registry, presence and delivery
	coord := coordinator.NewRoomCoordinator(roomSvc, messageSvc, delivery)

	// 9. Initialize the WS server
	wsSrv := ws.NewWsServer(hub, coord)

	// 10. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, roomSvc, messageSvc)
	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
