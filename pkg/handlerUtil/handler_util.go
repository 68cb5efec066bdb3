package handlerUtil

import (
	"errors"

	"VoiceBridge/internal/api/assistant"
	"VoiceBridge/internal/api/bridge"
	"VoiceBridge/internal/api/knowledge"
	"VoiceBridge/pkg/log"
	"VoiceBridge/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	// Bridge domain errors
	if errors.Is(err, bridge.ErrConversationNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Conversation not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Conversation not found",
			"code":  "CONVERSATION_NOT_FOUND",
		})
	}

	if errors.Is(err, bridge.ErrToolCallNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Tool call not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tool call not found",
			"code":  "TOOL_CALL_NOT_FOUND",
		})
	}

	if errors.Is(err, bridge.ErrToolCallCompleted) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Tool call already completed")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Tool call already completed",
			"code":  "TOOL_CALL_COMPLETED",
		})
	}

	if errors.Is(err, bridge.ErrUpstreamUnavailable) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Upstream realtime service unavailable")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Realtime service unavailable",
			"code":  "UPSTREAM_UNAVAILABLE",
		})
	}

	// Assistant domain errors
	if errors.Is(err, assistant.ErrAssistantNotFound) || errors.Is(err, assistant.ErrNoActiveAssistant) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Assistant not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Assistant not found",
			"code":  "ASSISTANT_NOT_FOUND",
		})
	}

	if errors.Is(err, assistant.ErrToolNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Tool definition not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tool definition not found",
			"code":  "TOOL_NOT_FOUND",
		})
	}

	// Knowledge domain errors
	if errors.Is(err, knowledge.ErrEmbeddingUnavailable) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Embedding service unavailable")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Embedding service unavailable",
			"code":  "EMBEDDING_UNAVAILABLE",
		})
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An unexpected error occurred",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
		"code":  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
