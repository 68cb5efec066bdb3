package assistantHandler

import (
	assistantService "VoiceBridge/internal/api/assistant/service"
	"VoiceBridge/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AssistantHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	assistantService assistantService.IAssistantService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	as assistantService.IAssistantService,
) *AssistantHandler {
	return &AssistantHandler{
		log:              log,
		validator:        validate,
		middleware:       middleware,
		assistantService: as,
	}
}

func (h *AssistantHandler) Start(srv fiber.Router) {
	assistant := srv.Group("/assistant")

	assistant.Use(h.middleware.NewTokenMiddleware)

	assistant.Get("/", h.ListAssistants)
	assistant.Get("/:assistant_id", h.GetAssistant)
	assistant.Get("/:assistant_id/instructions", h.GetInstructions)
	assistant.Get("/:assistant_id/tools", h.GetToolCatalog)

	assistant.Post("/tools/reload", h.ReloadToolCatalog)
	assistant.Post("/sanitization/reload", h.ReloadSanitizationRules)
}
