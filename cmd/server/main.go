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

	"github.com/strobelightprojects/Nursery-inventory-management/config"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/api"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/broker"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/redisclient"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/service"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/store"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/util"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting nursery inventory service")

	tp, err := util.InitTracer("nursery-inventory", cfg.Observ.JaegerEndpoint)
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

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStock)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	registry := service.NewRegistry(db)
	catalog := service.NewCatalog(registry, db, eventPublisher, redisClient, cfg.Stock.AllowZeroDelta)
	ledger := service.NewLedger()
	coordinator := service.NewCoordinator(catalog, ledger, db, eventPublisher)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	state, err := db.Load(loadCtx)
	loadCancel()
	if err != nil {
		log.Fatalf("Failed to load persisted state: %v", err)
	}
	registry.Restore(state.Suppliers)
	catalog.Restore(state.Plants)
	ledger.Restore(state.Orders)
	log.Printf("State loaded: %d plants, %d suppliers, %d orders",
		len(state.Plants), len(state.Suppliers), len(state.Orders))

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	stockConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStock, cfg.Kafka.ConsumerGroup)
	reorderWorker := worker.NewReorderWorker(stockConsumer, redisClient)
	go func() {
		if err := reorderWorker.Start(workerCtx); err != nil {
			log.Printf("Reorder worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(catalog, registry, ledger, coordinator)
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
	reorderWorker.Stop()

	log.Println("Server exited")
}
