package bridgeHandler

import (
	bridgeService "VoiceBridge/internal/api/bridge/service"
	"VoiceBridge/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type BridgeHandler struct {
	log           *logrus.Logger
	validator     *validator.Validate
	middleware    middleware.Middleware
	bridgeService bridgeService.IBridgeService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	bs bridgeService.IBridgeService,
) *BridgeHandler {
	return &BridgeHandler{
		log:           log,
		validator:     validate,
		middleware:    middleware,
		bridgeService: bs,
	}
}

func (h *BridgeHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	bridge := srv.Group("/bridge")

	bridge.Use("/ws", h.middleware.NewTokenMiddleware, wsMiddleware)
	bridge.Get("/ws", websocket.New(h.HandleSession))

	bridge.Get("/metrics", h.GetMetrics)

	conversations := bridge.Group("/conversations")
	conversations.Use(h.middleware.NewTokenMiddleware)
	conversations.Get("/:conversation_id", h.GetConversation)
	conversations.Get("/:conversation_id/messages", h.GetConversationMessages)
}
