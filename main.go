package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"proximity-sync/internal/cache"
	"proximity-sync/internal/config"
	"proximity-sync/internal/directory"
	"proximity-sync/internal/engine"
	"proximity-sync/internal/events"
	"proximity-sync/internal/feed"
	"proximity-sync/internal/handlers"
	"proximity-sync/internal/identity"
	"proximity-sync/internal/logging"
	"proximity-sync/internal/middleware"
	"proximity-sync/internal/observability"
	"proximity-sync/internal/relationship"
	"proximity-sync/internal/repositories"
	"proximity-sync/internal/store"
	"proximity-sync/internal/ws"
)

const serviceName = "proximity-sync"

func main() {
	logging.Init()
	defer logging.Sync()
	log := logging.L()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Fatalw("failed to init tracing", "error", err)
	}
	defer shutdownTracing(context.Background())

	remote, err := store.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalw("failed to connect to remote store", "error", err)
	}

	db, err := cache.Connect(cfg.CacheDSN)
	if err != nil {
		log.Fatalw("failed to open local cache", "error", err)
	}
	defer db.Close()

	publisher := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	emitter := events.NewEmitter(publisher, serviceName, cfg.Environment)

	identities := repositories.NewRelationshipRepo(remote)
	conversations := repositories.NewConversationRepo(remote)
	notifications := repositories.NewNotificationRepo(remote)
	messageCache := cache.NewMessageCache(db)

	relSvc := relationship.NewService(identities, notifications, emitter, cfg.OpTimeout)
	dirSvc := directory.NewService(conversations, identities, emitter, cfg.OpTimeout)
	feedAgg := feed.NewAggregator(notifications)

	hub := ws.NewHub()
	verifier := identity.Static{UID: cfg.SessionUID, Token: cfg.DebugToken}

	deps := engine.Deps{
		Relationships: relSvc,
		Directory:     dirSvc,
		Feed:          feedAgg,
		Notifications: notifications,
		Identities:    identities,
		Cache:         messageCache,
		Hub:           hub,
		MirrorWindow:  cfg.MirrorWindow,
		OpTimeout:     cfg.OpTimeout,
	}

	var session *engine.Session
	if cfg.SessionUID != "" {
		session, err = engine.Open(ctx, cfg.SessionUID, deps)
		if err != nil {
			log.Fatalw("failed to open session", "uid", cfg.SessionUID, "error", err)
		}
		defer session.Close()
	}

	relationshipHandler := handlers.NewRelationshipHandler(relSvc)
	conversationHandler := handlers.NewConversationHandler(dirSvc, messageCache)
	feedHandler := handlers.NewFeedHandler(feedAgg)
	syncWS := ws.NewSyncWebSocketHandler(hub, verifier)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/relationship/requests", authMiddleware, relationshipHandler.SendRequest)
	router.POST("/relationship/requests/:request_id/accept", authMiddleware, relationshipHandler.AcceptRequest)
	router.POST("/relationship/requests/:request_id/reject", authMiddleware, relationshipHandler.RejectRequest)
	router.POST("/relationship/requests/:request_id/cancel", authMiddleware, relationshipHandler.CancelRequest)
	router.DELETE("/relationship/friends/:uid", authMiddleware, relationshipHandler.RemoveFriend)
	router.GET("/relationship/status/:uid", authMiddleware, relationshipHandler.Status)

	router.POST("/conversations", authMiddleware, conversationHandler.StartConversation)
	router.GET("/conversations", authMiddleware, conversationHandler.ListConversations)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, conversationHandler.PostMessage)
	router.POST("/conversations/:conversation_id/read", authMiddleware, conversationHandler.MarkRead)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, conversationHandler.GetMessages)
	router.GET("/conversations/:conversation_id/cache", authMiddleware, conversationHandler.GetCachedMessages)

	router.GET("/feed", authMiddleware, feedHandler.GetFeed)
	router.GET("/feed/unread", authMiddleware, feedHandler.GetUnreadCount)
	router.POST("/feed/read", authMiddleware, feedHandler.MarkAllRead)

	router.GET("/ws/sync", syncWS.Handle)

	if session != nil {
		handlers.RegisterDebugRoutes(router, session.Merge, feedAgg, cfg.SessionUID, cfg.Debug)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Infow("listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("graceful shutdown failed", "error", err)
	}
}
