package main

import (
	"os"
	"os/signal"
	"syscall"

	"VoiceBridge/internal/config"
	"VoiceBridge/pkg/log"
	"VoiceBridge/pkg/redis"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	redisServer := redis.New()

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithRedisServer(redisServer),
		config.WithMiddleware(),
		config.WithRealtimeDialer(),
		config.WithEmbedder(),
		config.WithVectorIndex(),
		config.WithToolAPI(),
		config.WithTranscriber(),
		config.WithGeminiClient(),
		config.WithS3Client(),
		config.WithSanitizer(),
		config.WithMetrics(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()
	server.WarmCaches()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")
}
