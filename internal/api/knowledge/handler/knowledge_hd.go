package knowledgeHandler

import (
	"time"

	"VoiceBridge/internal/api/knowledge"
	contextPkg "VoiceBridge/pkg/context"
	"VoiceBridge/pkg/handlerUtil"
	"VoiceBridge/pkg/log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *KnowledgeHandler) Search(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 15*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing knowledge search request")

	var req knowledge.SearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	results, err := h.knowledgeService.Search(c, req.Query, req.Scope, req.TopK)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "knowledge_search")
	}

	resp := knowledge.SearchResponse{
		Results:      make([]knowledge.SearchResult, 0, len(results)),
		ContextBlock: h.knowledgeService.Retrieve(c, req.Query, req.Scope),
	}
	for _, r := range results {
		resp.Results = append(resp.Results, knowledge.SearchResult{
			ID:    r.ID,
			Score: r.Score,
			Text:  r.Text,
		})
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
	}
}

func (h *KnowledgeHandler) Reload(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing knowledge reload request")

	count, err := h.knowledgeService.Reload(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "knowledge_reload")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, knowledge.ReloadResponse{
			ItemCount: count,
		})
	}
}
