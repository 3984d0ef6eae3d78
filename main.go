package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"relay-service/internal/config"
	"relay-service/internal/db"
	"relay-service/internal/grpcserver"
	"relay-service/internal/handlers"
	"relay-service/internal/middleware"
	"relay-service/internal/observability"
	"relay-service/internal/rabbitmq"
	"relay-service/internal/repositories"
	"relay-service/internal/telemetry"
	"relay-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracer")
	}

	database, err := db.Connect(ctx, cfg.DBDSN, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	messageRepo := repositories.NewMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	logger.Info().
		Str("mode", rabbitmq.PublisherMode(publisher)).
		Str("reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("event publisher ready")
	audit := telemetry.NewAuditEmitter(publisher, "audit.relay", cfg.ServiceName, cfg.Env, logger)

	registry := ws.NewRegistry()
	router := ws.NewRouter(registry, messageRepo, groupRepo, userRepo, publisher, logger)
	wsHandler := ws.NewHandler(router, cfg.WSWriteTimeout, logger)

	messageHandler := handlers.NewMessageHandler(messageRepo, router, audit, logger)
	groupHandler := handlers.NewGroupHandler(groupRepo, groupMessageRepo, router, audit, logger)
	userHandler := handlers.NewUserHandler(userRepo)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(cfg.ServiceName))
	engine.Use(observability.HTTPMetricsMiddleware())
	engine.Use(middleware.Logger(logger))

	engine.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "sessions": registry.Count()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "sessions": registry.Count()})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	asUser := middleware.Identity("user_id")
	api := engine.Group("/api")
	api.POST("/messages", middleware.Identity("sender_id"), messageHandler.SendMessage)
	api.GET("/messages/:contact_id", asUser, messageHandler.ListMessages)
	api.DELETE("/messages/:contact_id", asUser, messageHandler.DeleteConversation)
	api.GET("/conversations", asUser, messageHandler.ListConversations)

	api.POST("/groups", asUser, groupHandler.CreateGroup)
	api.GET("/groups", asUser, groupHandler.ListGroups)
	api.GET("/groups/:group_id", asUser, groupHandler.GetGroup)
	api.GET("/groups/:group_id/messages", asUser, groupHandler.GetGroupMessages)
	api.POST("/groups/:group_id/messages", asUser, groupHandler.PostGroupMessage)

	api.GET("/users/:user_id/key", userHandler.PublicKey)

	engine.GET("/ws/:user_id", wsHandler.Handle)
	handlers.RegisterDebugRoutes(engine, registry, audit, cfg.IsDevelopment())

	healthSrv := grpcserver.New(database, logger)
	go healthSrv.Watch(ctx, 15*time.Second)

	errChan := make(chan error, 2)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Fatal().Err(err).Str("port", cfg.GRPCPort).Msg("failed to listen for grpc")
	}
	go func() {
		if err := healthSrv.Serve(lis); err != nil {
			errChan <- err
		}
	}()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errChan:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runShutdown(shutdownCtx, logger, shutdownSteps(srv, router, healthSrv, shutdownTracer))
	logger.Info().Msg("relay stopped")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", cfg.ServiceName).Logger()
}
