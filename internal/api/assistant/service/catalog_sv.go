package assistantService

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"VoiceBridge/internal/entity"
	contextPkg "VoiceBridge/pkg/context"
	"VoiceBridge/pkg/instructions"
	redisPkg "VoiceBridge/pkg/redis"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	catalogCacheTTL    = 60 * time.Second
	catalogCachePrefix = "toolcatalog:"
)

// ComposeInstructions renders the global blocks plus the assistant's own
// blocks into the system prompt sent upstream on session start.
func (s *assistantSvc) ComposeInstructions(ctx context.Context, assistantID string) (string, error) {
	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		return "", err
	}

	blocks, err := repoClient.Instructions.GetBlocksForAssistant(ctx, assistantID)
	if err != nil {
		return "", err
	}

	composable := make([]instructions.Block, 0, len(blocks))
	for _, block := range blocks {
		composable = append(composable, instructions.Block{
			Key:   block.Key,
			Lines: block.Lines,
		})
	}

	return instructions.Compose(composable), nil
}

// GetToolCatalog returns the active tool definitions for an assistant,
// cached for a short window so reconnect storms do not hammer the table.
func (s *assistantSvc) GetToolCatalog(ctx context.Context, assistantID string) ([]entity.ToolDefinition, error) {
	requestID := contextPkg.GetRequestID(ctx)
	cacheKey := fmt.Sprintf("%s%s", catalogCachePrefix, assistantID)

	cached, err := s.redis.GetJSON(ctx, cacheKey)
	if err == nil {
		var tools []entity.ToolDefinition
		if err := json.Unmarshal(cached, &tools); err == nil {
			return tools, nil
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"cache_key":  cacheKey,
		}).Warn("Dropping malformed tool catalog cache entry")
	} else if !errors.Is(err, redisPkg.ErrCacheMiss) {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Tool catalog cache read failed, falling back to database")
	}

	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}

	tools, err := repoClient.Tools.GetToolsForAssistant(ctx, assistantID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(tools); err == nil {
		if err := s.redis.SetJSON(ctx, cacheKey, payload, catalogCacheTTL); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Tool catalog cache write failed")
		}
	}

	return tools, nil
}

func (s *assistantSvc) ResolveTool(catalog []entity.ToolDefinition, name string) (entity.ToolDefinition, bool) {
	for _, tool := range catalog {
		if tool.Name == name {
			return tool, true
		}
	}
	return entity.ToolDefinition{}, false
}

func (s *assistantSvc) InvalidateCatalog(ctx context.Context) error {
	return s.redis.Delete(ctx, catalogCachePrefix+"*")
}

// ReloadSanitizationRules reloads the active rule set from the database and
// swaps it into the shared pipeline. Returns the number of compiled rules.
func (s *assistantSvc) ReloadSanitizationRules(ctx context.Context) (int, error) {
	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		return 0, err
	}

	rules, err := repoClient.Rules.GetActiveRules(ctx)
	if err != nil {
		return 0, err
	}

	s.sanitizer.Swap(rules)

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"rule_count": s.sanitizer.RuleCount(),
	}).Info("Sanitization rule set reloaded")

	return s.sanitizer.RuleCount(), nil
}
