package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ferremas-fulfillment/config"
	"ferremas-fulfillment/internal/api"
	"ferremas-fulfillment/internal/auth"
	"ferremas-fulfillment/internal/broker"
	"ferremas-fulfillment/internal/courier"
	"ferremas-fulfillment/internal/gateway"
	"ferremas-fulfillment/internal/pricefeed"
	"ferremas-fulfillment/internal/redisclient"
	"ferremas-fulfillment/internal/service"
	"ferremas-fulfillment/internal/store"
	"ferremas-fulfillment/internal/util"
	"ferremas-fulfillment/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting fulfillment service")

	tp, err := util.InitTracer("ferremas-fulfillment", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.JournalTopic)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	journal := broker.NewJournal(producer)

	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Timeout)
	courierClient := courier.NewClient(cfg.Courier.BaseURL, cfg.Courier.APIKey, cfg.Courier.Timeout)
	coverage := courier.NewCoverage(nil)

	var sources []pricefeed.Source
	for name, url := range cfg.PriceFeed.ParsedSources() {
		sources = append(sources, pricefeed.Source{Name: name, URL: url})
	}
	feedClient := pricefeed.NewClient(sources, cfg.PriceFeed.Timeout, logger)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	orderService := service.NewOrderService(db, journal)
	paymentService := service.NewPaymentService(db, gatewayClient, journal)
	shipmentService := service.NewShipmentService(db, courierClient, coverage, orderService, journal, cfg.Courier.OriginComuna)
	pricingService := service.NewPricingService(db, feedClient, redisClient, journal, cfg.Redis.ComparisonTTL)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	statusConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CourierStatusTopic, cfg.Kafka.ConsumerGroup)
	statusWorker := worker.NewShipmentStatusWorker(statusConsumer, shipmentService)
	go func() {
		if err := statusWorker.Start(workerCtx); err != nil {
			log.Printf("Shipment status worker stopped: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orderService, paymentService, shipmentService, pricingService, verifier)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if err := statusWorker.Stop(); err != nil {
		log.Printf("Error stopping shipment status worker: %v", err)
	}

	log.Println("Server exited")
}
