package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-service/internal/db"
	"messenger-service/internal/handlers"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/relay"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

func main() {
	ctx := context.Background()

	shutdownTracing := telemetry.InitTracing(ctx, "messenger-service")
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	amqpURL := getEnv("AMQP_URL", "")
	exchange := getEnv("AMQP_EXCHANGE", "events")
	environment := getEnv("ENVIRONMENT", "dev")

	auditPublisher := rabbitmq.NewPublisher(amqpURL, exchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s reason=%q", rabbitmq.PublisherMode(auditPublisher), rabbitmq.PublisherNoopReason(auditPublisher))
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.relay", "messenger-service", environment)

	if wsPublisher, err := observability.NewAMQPPublisher(amqpURL, exchange); err != nil {
		log.Printf("ws events publisher disabled: %v", err)
	} else {
		observability.SetPublisher(wsPublisher)
		defer wsPublisher.Close()
	}

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)
	callRepo := repositories.NewCallRepo(database)

	directory := presence.NewDirectory()

	messageRelay := relay.New(relay.Deps{
		Conversations: conversationRepo,
		Messages:      messageRepo,
		Groups:        groupRepo,
		GroupMessages: groupMessageRepo,
		Calls:         callRepo,
		Directory:     directory,
		Audit:         audit,
	})
	wsHandler := ws.NewHandler(directory, messageRelay)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messenger-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", wsHandler.Handle)

	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "1")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
