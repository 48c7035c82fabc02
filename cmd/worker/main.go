package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/ris/internal/backend"
	"github.com/OFFIS-RIT/ris/internal/config"
	"github.com/OFFIS-RIT/ris/internal/queue"
	"github.com/OFFIS-RIT/ris/internal/storage"
	"github.com/OFFIS-RIT/ris/internal/util"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/logger/console"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		JSON:  util.GetEnv("LOG_FORMAT") == "json",
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load(util.GetEnv("RIS_CONFIG"))
	if err != nil {
		logger.Fatal("Failed to load config", "err", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", "err", err)
	}

	// Init s3 client
	var s3Client *s3.Client
	if storage.S3Configured() {
		s3Client, err = storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
	}
	resolver := storage.NewResolver(s3Client)

	backends, err := backend.Open(ctx, cfg, resolver)
	if err != nil {
		logger.Fatal("Failed to open backends", "err", err)
	}
	defer backends.Close(context.Background())

	repo, err := backend.LoadRules(ctx, resolver, cfg.RulesFile)
	if err != nil {
		logger.Fatal("Failed to load rules", "err", err)
	}
	engine, err := backend.NewEngine(ctx, cfg.Run, backends, repo)
	if err != nil {
		logger.Fatal("Failed to create scoring engine", "err", err)
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.ScoreQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	// one message at a time, the engine parallelizes within a message
	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.ScoreQueue,
		fmt.Sprintf("%s_consumer", queue.ScoreQueue),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.ScoreQueue, "err", err)
	}

	logger.Info("[Worker] Listening for messages", "queue", queue.ScoreQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Worker] Message channel closed", "queue", queue.ScoreQueue)
				return
			}
			startTime := time.Now()
			logger.Info("[Worker] Received message", "queue", queue.ScoreQueue)

			processingErr := queue.ProcessScoreMessage(ctx, engine, ch, string(msg.Body))
			if processingErr != nil {
				logger.Error("[Worker] Error processing message", "queue", queue.ScoreQueue, "err", processingErr)
				handleProcessingError(ch, msg, queue.ScoreQueue, processingErr)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("[Worker] Failed to ack message", "err", err)
				}
				logger.Info("[Worker] Message processed successfully", "queue", queue.ScoreQueue)
			}

			processingDuration := time.Since(startTime)
			hours := int(processingDuration.Hours())
			minutes := int(processingDuration.Minutes()) % 60
			seconds := int(processingDuration.Seconds()) % 60
			logger.Info(
				"[Worker] Processing time",
				"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
			)
		}
	}
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string, processingErr error) {
	headers := msg.Headers
	// malformed messages skip the retry loop
	if errors.Is(processingErr, queue.ErrInvalidMessage) {
		headers = queue.ExhaustRetries(headers)
	}

	target, err := queue.Requeue(ch, msg.Body, headers, queueName)
	if err != nil {
		logger.Error("[Worker] Failed to requeue message", "target", target, "err", err)
		msg.Nack(false, true)
		return
	}
	logger.Info("[Worker] Requeued message", "target", target, "retries", queue.RetryCount(headers))
	msg.Ack(false)
}
