package bridgeHandler

import (
	"errors"
	"strconv"
	"time"

	bridgeService "VoiceBridge/internal/api/bridge/service"
	"VoiceBridge/internal/entity"
	contextPkg "VoiceBridge/pkg/context"
	"VoiceBridge/pkg/handlerUtil"
	jwtPkg "VoiceBridge/pkg/jwt"
	"VoiceBridge/pkg/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

// HandleSession runs inside the upgraded WebSocket connection. Auth and the
// request id were resolved by the HTTP middleware before the upgrade; they
// travel through the connection locals.
func (h *BridgeHandler) HandleSession(c *websocket.Conn) {
	requestID, _ := c.Locals("X-Request-ID").(string)
	if requestID == "" {
		requestID = "unknown"
	}

	user, ok := c.Locals("user").(entity.UserLoginData)
	if !ok {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
		}).Warn("WebSocket session without user context, closing")
		c.Close()
		return
	}

	params := bridgeService.SessionParams{
		AssistantID:    c.Query("assistant_id"),
		ConversationID: c.Query("conversation_id"),
		Scope:          c.Query("scope"),
	}

	h.log.WithFields(log.Fields{
		"request_id":   requestID,
		"user_id":      user.ID,
		"assistant_id": params.AssistantID,
	}).Info("Bridge WebSocket client connected")
	defer h.log.WithFields(log.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
	}).Info("Bridge WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		return c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	h.bridgeService.HandleConnection(c, user, params, requestID)
}

func (h *BridgeHandler) GetMetrics(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(h.bridgeService.MetricsSnapshot())
}

func (h *BridgeHandler) GetConversation(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	userData, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	conversationID := ctx.Params("conversation_id")
	if conversationID == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("conversation_id is required"), ctx.Path())
	}

	conv, err := h.bridgeService.GetConversation(c, conversationID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_conversation")
	}

	if conv.UserID != userData.ID {
		return errHandler.HandleUnauthorized(ctx, requestID, "Conversation does not belong to user")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, conv)
	}
}

func (h *BridgeHandler) GetConversationMessages(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	userData, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	conversationID := ctx.Params("conversation_id")
	if conversationID == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("conversation_id is required"), ctx.Path())
	}

	conv, err := h.bridgeService.GetConversation(c, conversationID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_conversation_messages")
	}
	if conv.UserID != userData.ID {
		return errHandler.HandleUnauthorized(ctx, requestID, "Conversation does not belong to user")
	}

	limit, err := strconv.Atoi(ctx.Query("limit", "200"))
	if err != nil || limit < 1 || limit > 1000 {
		limit = 200
	}

	messages, err := h.bridgeService.GetConversationMessages(c, conversationID, limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_conversation_messages")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
			"conversation_id": conversationID,
			"messages":        messages,
			"limit":           limit,
		})
	}
}
