package assistantService

import (
	"VoiceBridge/internal/api/assistant"
	assistantRepository "VoiceBridge/internal/api/assistant/repository"
	"VoiceBridge/internal/entity"
	redisPkg "VoiceBridge/pkg/redis"
	"VoiceBridge/pkg/sanitize"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IAssistantService interface {
	GetAssistant(ctx context.Context, id string) (entity.Assistant, error)
	GetAllAssistants(ctx context.Context) ([]entity.Assistant, error)
	ComposeInstructions(ctx context.Context, assistantID string) (string, error)
	GetToolCatalog(ctx context.Context, assistantID string) ([]entity.ToolDefinition, error)
	ResolveTool(catalog []entity.ToolDefinition, name string) (entity.ToolDefinition, bool)
	InvalidateCatalog(ctx context.Context) error
	ReloadSanitizationRules(ctx context.Context) (int, error)
	Sanitizer() *sanitize.Pipeline
}

type assistantSvc struct {
	log       *logrus.Logger
	repo      assistantRepository.Repository
	redis     redisPkg.IRedis
	sanitizer *sanitize.Pipeline
}

func New(log *logrus.Logger, repo assistantRepository.Repository, redis redisPkg.IRedis, sanitizer *sanitize.Pipeline) IAssistantService {
	return &assistantSvc{
		log:       log,
		repo:      repo,
		redis:     redis,
		sanitizer: sanitizer,
	}
}

func (s *assistantSvc) Sanitizer() *sanitize.Pipeline {
	return s.sanitizer
}

// GetAssistant resolves an assistant by id, or the default active one when
// the id is empty.
func (s *assistantSvc) GetAssistant(ctx context.Context, id string) (entity.Assistant, error) {
	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		return entity.Assistant{}, err
	}

	if id == "" {
		return repoClient.Assistants.GetDefaultAssistant(ctx)
	}

	a, err := repoClient.Assistants.GetAssistantByID(ctx, id)
	if err != nil {
		return entity.Assistant{}, err
	}
	if !a.IsActive {
		return entity.Assistant{}, assistant.ErrAssistantNotFound
	}

	return a, nil
}

func (s *assistantSvc) GetAllAssistants(ctx context.Context) ([]entity.Assistant, error) {
	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}

	return repoClient.Assistants.GetAllAssistants(ctx)
}
