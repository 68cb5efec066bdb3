package assistantHandler

import (
	"time"

	"VoiceBridge/internal/api/assistant"
	contextPkg "VoiceBridge/pkg/context"
	"VoiceBridge/pkg/handlerUtil"
	"VoiceBridge/pkg/log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *AssistantHandler) ListAssistants(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	assistants, err := h.assistantService.GetAllAssistants(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_assistants")
	}

	resp := make([]assistant.AssistantResponse, 0, len(assistants))
	for _, a := range assistants {
		resp = append(resp, assistant.AssistantResponse{
			ID:           a.ID,
			Name:         a.Name,
			Voice:        a.Voice,
			PlaybackRate: a.PlaybackRate,
			IsActive:     a.IsActive,
		})
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
			"assistants": resp,
		})
	}
}

func (h *AssistantHandler) GetAssistant(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	a, err := h.assistantService.GetAssistant(c, ctx.Params("assistant_id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_assistant")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, assistant.AssistantResponse{
			ID:           a.ID,
			Name:         a.Name,
			Voice:        a.Voice,
			PlaybackRate: a.PlaybackRate,
			IsActive:     a.IsActive,
		})
	}
}

func (h *AssistantHandler) GetInstructions(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	assistantID := ctx.Params("assistant_id")
	composed, err := h.assistantService.ComposeInstructions(c, assistantID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_instructions")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, assistant.InstructionsResponse{
			AssistantID:  assistantID,
			Instructions: composed,
		})
	}
}

func (h *AssistantHandler) GetToolCatalog(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	assistantID := ctx.Params("assistant_id")
	tools, err := h.assistantService.GetToolCatalog(c, assistantID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_tool_catalog")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, assistant.CatalogResponse{
			AssistantID: assistantID,
			Tools:       tools,
		})
	}
}

func (h *AssistantHandler) ReloadToolCatalog(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing tool catalog reload request")

	if err := h.assistantService.InvalidateCatalog(c); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "reload_tool_catalog")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, assistant.ReloadResponse{
			Reloaded: true,
		})
	}
}

func (h *AssistantHandler) ReloadSanitizationRules(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing sanitization rule reload request")

	count, err := h.assistantService.ReloadSanitizationRules(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "reload_sanitization_rules")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, assistant.ReloadResponse{
			Reloaded:  true,
			RuleCount: count,
		})
	}
}
