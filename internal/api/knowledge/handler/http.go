package knowledgeHandler

import (
	knowledgeService "VoiceBridge/internal/api/knowledge/service"
	"VoiceBridge/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type KnowledgeHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	knowledgeService knowledgeService.IKnowledgeService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ks knowledgeService.IKnowledgeService,
) *KnowledgeHandler {
	return &KnowledgeHandler{
		log:              log,
		validator:        validate,
		middleware:       middleware,
		knowledgeService: ks,
	}
}

func (h *KnowledgeHandler) Start(srv fiber.Router) {
	knowledge := srv.Group("/knowledge")

	knowledge.Use(h.middleware.NewTokenMiddleware)

	knowledge.Post("/search", h.Search)
	knowledge.Post("/reload", h.Reload)
}
