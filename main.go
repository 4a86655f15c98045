package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/streadway/amqp"

	"quickbite/api/config"
	"quickbite/api/dispatch"
	_ "quickbite/api/docs"
	"quickbite/api/events"
	"quickbite/api/handlers"
	"quickbite/api/notify"
	"quickbite/api/orders"
	"quickbite/api/riders"
	"quickbite/api/server"
	"quickbite/api/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	rabbitConn, err := dialRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatal(err)
	}

	queue, err := dispatch.NewAMQPQueue(rabbitConn, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Fatal("Failed to declare dispatch queue:", err)
	}

	recorder, err := events.NewKafkaRecorder(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Fatal("Failed to create Kafka producer:", err)
	}
	defer recorder.Close()

	store := storage.NewRedis(rdb)
	hub := notify.NewHub()
	ledger := orders.NewLedger(store, cfg.Dispatch)
	directory := riders.NewDirectory(store)
	coordinator := dispatch.NewCoordinator(
		ledger, directory, store, hub, queue,
		server.MetricsRecorder{Next: recorder},
		cfg.Dispatch,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := coordinator.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("dispatch consumer stopped: %v", err)
		}
	}()
	go coordinator.WatchOffers(ctx, cfg.Dispatch.OfferTimeout/4)

	h := handlers.New(coordinator, ledger, directory, store, hub, cfg.JWT.SecretKey)
	app := server.New(cfg, h, coordinator, hub)

	log.Printf("Server starting on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}

// dialRabbitMQ retries the connection a few times; the broker usually
// comes up after the service in compose environments.
func dialRabbitMQ(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		log.Printf("Attempting to connect to RabbitMQ (attempt %d/5)...", i+1)
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		if i < 4 {
			log.Printf("Failed to connect to RabbitMQ: %v. Retrying in 5 seconds...", err)
			time.Sleep(5 * time.Second)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after 5 attempts: %w", err)
}
