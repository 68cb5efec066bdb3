package config

import (
	"fmt"
	"os"

	"VoiceBridge/database/postgres"
	assistantHandler "VoiceBridge/internal/api/assistant/handler"
	assistantRepository "VoiceBridge/internal/api/assistant/repository"
	assistantService "VoiceBridge/internal/api/assistant/service"
	bridgeHandler "VoiceBridge/internal/api/bridge/handler"
	bridgeRepository "VoiceBridge/internal/api/bridge/repository"
	bridgeService "VoiceBridge/internal/api/bridge/service"
	knowledgeHandler "VoiceBridge/internal/api/knowledge/handler"
	knowledgeRepository "VoiceBridge/internal/api/knowledge/repository"
	knowledgeService "VoiceBridge/internal/api/knowledge/service"
	"VoiceBridge/internal/middleware"
	"VoiceBridge/pkg/audio"
	"VoiceBridge/pkg/gemini"
	"VoiceBridge/pkg/metrics"
	openaiPkg "VoiceBridge/pkg/openai"
	"VoiceBridge/pkg/realtime"
	"VoiceBridge/pkg/redis"
	"VoiceBridge/pkg/s3"
	"VoiceBridge/pkg/sanitize"
	"VoiceBridge/pkg/toolapi"
	"VoiceBridge/pkg/utils"
	"VoiceBridge/pkg/vectorindex"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis

	realtimeDialer realtime.IDialer
	embedder       openaiPkg.IEmbedder
	vectorIndex    vectorindex.IVectorIndex
	toolAPI        toolapi.IToolAPI
	transcriber    audio.ITranscriber
	geminiClient   gemini.IGemini
	s3Client       s3.ItfS3
	sanitizer      *sanitize.Pipeline
	metricsState   *metrics.State

	assistantSvc assistantService.IAssistantService
	knowledgeSvc knowledgeService.IKnowledgeService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithRealtimeDialer() ServerOption {
	return func(s *Server) error {
		s.realtimeDialer = realtime.NewDialer()
		return nil
	}
}

func WithEmbedder() ServerOption {
	return func(s *Server) error {
		s.embedder = openaiPkg.NewEmbedder()
		return nil
	}
}

func WithVectorIndex() ServerOption {
	return func(s *Server) error {
		s.vectorIndex = vectorindex.New()
		return nil
	}
}

func WithToolAPI() ServerOption {
	return func(s *Server) error {
		s.toolAPI = toolapi.New()
		return nil
	}
}

func WithTranscriber() ServerOption {
	return func(s *Server) error {
		s.transcriber = audio.NewTranscriptionService()
		return nil
	}
}

// WithGeminiClient is best-effort: a missing API key only disables call
// summaries, it never stops the server.
func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Warnf("Gemini client unavailable, summaries disabled: %v", err)
			}
			return nil
		}
		s.geminiClient = client
		return nil
	}
}

// WithS3Client is best-effort: without credentials the audio archive is
// disabled.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Warnf("S3 client unavailable, audio archive disabled: %v", err)
			}
			return nil
		}
		s.s3Client = client
		return nil
	}
}

func WithSanitizer() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before sanitizer")
		}
		s.sanitizer = sanitize.NewPipeline(s.log)
		return nil
	}
}

func WithMetrics() ServerOption {
	return func(s *Server) error {
		s.metricsState = metrics.New()
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Assistant domain
	assistantRepo := assistantRepository.New(s.db, s.log)
	s.assistantSvc = assistantService.New(s.log, assistantRepo, s.redisServer, s.sanitizer)
	assistantHandlers := assistantHandler.New(s.log, s.validator, s.middleware, s.assistantSvc)

	// Knowledge domain
	knowledgeRepo := knowledgeRepository.New(s.db, s.log)
	s.knowledgeSvc = knowledgeService.New(s.log, knowledgeRepo, s.embedder, s.vectorIndex, s.metricsState)
	knowledgeHandlers := knowledgeHandler.New(s.log, s.validator, s.middleware, s.knowledgeSvc)

	// Bridge domain
	bridgeRepo := bridgeRepository.New(s.db, s.log)
	bridgeServices := bridgeService.New(
		s.log,
		bridgeRepo,
		s.assistantSvc,
		s.knowledgeSvc,
		s.sanitizer,
		s.realtimeDialer,
		s.toolAPI,
		s.utils,
		s.metricsState,
		s.geminiClient,
		s.s3Client,
		s.transcriber,
	)
	bridgeHandlers := bridgeHandler.New(s.log, s.validator, s.middleware, bridgeServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, assistantHandlers, knowledgeHandlers, bridgeHandlers)
}

// WarmCaches loads the knowledge snapshot and sanitization rules once at
// startup. Failures log and continue; both sets are hot-reloadable later.
func (s *Server) WarmCaches() {
	ctx := context.Background()

	if _, err := s.knowledgeSvc.Reload(ctx); err != nil {
		s.log.Warnf("Initial knowledge snapshot load failed: %v", err)
	}
	if _, err := s.assistantSvc.ReloadSanitizationRules(ctx); err != nil {
		s.log.Warnf("Initial sanitization rule load failed: %v", err)
	}
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
