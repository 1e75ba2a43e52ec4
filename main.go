package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatgate/global/config"
	"chatgate/logger"
	midsec "chatgate/middleware/security"
	chatmod "chatgate/module/chat"
	"chatgate/module/chat/message"
	chatsvc "chatgate/module/chat/service"
	"chatgate/module/user"
	usersvc "chatgate/module/user/service"
	chatgw "chatgate/service/chat"
	"chatgate/service/kafka"
	"chatgate/service/mgo"
	"chatgate/service/natsx"
	"chatgate/service/storage"
	redissrv "chatgate/service/storage/redis"
	"chatgate/tools/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}

	jwtOpts := security.DefaultOptions(cfg.JwtSecret())
	jwtOpts.TTL = cfg.TokenTTL

	ctx := context.Background()

	// Presence and SSO live in Redis; without it the process still
	// serves chat with process-local stores (no cross-node presence).
	var presence storage.PresenceStore
	var sso storage.SsoStore
	if err := redissrv.InitRedis(redissrv.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		logger.Warnf("redis unavailable (%v), falling back to in-process presence/sso", err)
		presence = storage.NewMemoryPresence()
		sso = storage.NewMemorySso()
	} else {
		defer func() { _ = redissrv.CloseRedis() }()
		rdb := redissrv.GetRedis()
		presence = storage.NewRedisPresence(rdb, cfg.PresenceKeyPrefix)
		sso = storage.NewRedisSso(rdb, cfg.SsoKeyPrefix)
	}

	db, err := mgo.Connect(ctx, mgo.Config{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: 20,
	})
	if err != nil {
		logger.Errorf("mongo: %v", err)
		os.Exit(1)
	}
	msgLog := message.NewMongoLog(db)

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Errorf("postgres: %v", err)
		os.Exit(1)
	}
	defer pool.Close()
	dir := usersvc.NewPgDirectory(pool)

	svc := chatsvc.NewChatService(dir, msgLog, presence, cfg.InactivityWindow)

	var broker chatgw.Broker
	if cfg.NatsURL != "" {
		nc, err := natsx.NewClient(natsx.Config{
			Servers: []string{cfg.NatsURL},
			Name:    cfg.GwID,
		})
		if err != nil {
			logger.Errorf("nats: %v", err)
			os.Exit(1)
		}
		defer nc.Close()
		broker = nc
	} else {
		broker = chatgw.NewLocalBroker()
	}

	var events chatgw.EventSink
	if len(cfg.KafkaBrokers) > 0 {
		ep, err := kafka.NewEventProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Warnf("kafka unavailable, event feed disabled: %v", err)
		} else {
			defer ep.Close()
			events = ep
		}
	}

	server := chatgw.NewServer(jwtOpts, sso, svc, broker, events)
	stopFanout, err := server.StartFanout()
	if err != nil {
		logger.Errorf("fanout: %v", err)
		os.Exit(1)
	}
	defer stopFanout()

	reaper := chatgw.NewReaper(svc, cfg.SweepEvery)
	reaper.Start()
	defer reaper.Stop()

	r := gin.Default()

	userH := user.NewHandler(dir, sso, jwtOpts)
	r.POST("/api/auth/login", userH.Login)

	authed := midsec.Middleware(jwtOpts, sso)
	r.POST("/api/auth/logout", authed, userH.Logout)

	r.GET("/ws", server.HandleWS)

	api := r.Group("/api/chat", authed)
	chatmod.NewHandler(svc, dir).Register(api)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infof("chatgate %s listening on %s", cfg.GwID, addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("server: %v", err)
		os.Exit(1)
	}
}
