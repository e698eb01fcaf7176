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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chatroom-service/internal/auth"
	"chatroom-service/internal/config"
	"chatroom-service/internal/db"
	grpcserver "chatroom-service/internal/grpc"
	"chatroom-service/internal/handlers"
	"chatroom-service/internal/logging"
	"chatroom-service/internal/middleware"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/rabbitmq"
	"chatroom-service/internal/repositories"
	"chatroom-service/internal/services"
	"chatroom-service/internal/telemetry"
	"chatroom-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTel.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}

	database, err := db.Connect(cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	redisClient, err := db.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTPublicKeyFile, cfg.Auth.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token verifier")
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	log.Info().
		Str("mode", rabbitmq.PublisherMode(publisher)).
		Str("reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("audit publisher ready")
	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRouting, cfg.ServiceName, cfg.Environment)
	eventEmitter := telemetry.NewEventEmitter(publisher)

	userRepo := repositories.NewUserRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	realtimeRepo := repositories.NewRealtimeRepo(redisClient, cfg.Redis.KeyPrefix)

	coordinator := services.NewRoomCoordinator(userRepo, roomRepo, realtimeRepo,
		services.WithPublicJoinValidation(cfg.Rooms.ValidatePublicJoin))
	membership := services.NewMembershipQuery(userRepo, roomRepo, realtimeRepo)
	relay := services.NewMessageRelay(realtimeRepo)
	directory := services.NewUserDirectory(userRepo)
	reconciler := services.NewReconciler(roomRepo, realtimeRepo)

	hub := ws.NewHub(eventEmitter)
	handler := handlers.NewHandler(coordinator, membership, relay, directory, hub, auditEmitter, eventEmitter,
		handlers.Options{EnforceCallerIdentity: cfg.Auth.EnforceCallerIdentity})
	roomWS := ws.NewRoomWebSocketHandler(hub, verifier, membership)

	healthServer := grpcserver.NewHealthServer(cfg.ServiceName,
		grpcserver.Check{Name: "postgres", Ping: database.PingContext},
		grpcserver.Check{Name: "redis", Ping: realtimeRepo.Ping},
	)
	go healthServer.Watch(ctx, 15*time.Second)

	if cfg.Reconcile.Interval > 0 {
		go reconciler.Run(ctx, cfg.Reconcile.Interval)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", middleware.AuthHeader, "X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", observability.MetricsHandler())
	router.GET("/healthz", func(c *gin.Context) {
		if !healthServer.Refresh(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/create-user", handler.CreateUser)

	api := router.Group("/api", middleware.AuthMiddleware(verifier))
	api.POST("/create-room", handler.CreateRoom)
	api.DELETE("/delete-room/:userId/:roomId", handler.DeleteRoom)
	api.POST("/enter-room", handler.EnterRoom)
	api.DELETE("/exit-room/:userId/:roomId", handler.ExitRoom)
	api.GET("/get-user-rooms/:userId", handler.GetUserRooms)
	api.POST("/send-message", handler.SendMessage)
	api.GET("/get-room-messages/:roomId", handler.GetRoomMessages)

	router.GET("/ws/rooms/:roomId", roomWS.Handle)

	handlers.RegisterDebugRoutes(router, reconciler, auditEmitter, cfg.DebugRoutes)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	grpcSrv := grpcserver.NewServer(healthServer)
	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.GRPCPort).Msg("failed to listen for grpc")
	}

	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("grpc health server listening")
		if err := grpcSrv.Serve(grpcLis); err != nil {
			log.Error().Err(err).Msg("grpc server error")
		}
	}()

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	grpcSrv.GracefulStop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown error")
	}
}
