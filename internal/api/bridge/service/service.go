package bridgeService

import (
	"os"
	"strconv"

	assistantService "VoiceBridge/internal/api/assistant/service"
	bridgeRepository "VoiceBridge/internal/api/bridge/repository"
	knowledgeService "VoiceBridge/internal/api/knowledge/service"
	"VoiceBridge/internal/entity"
	audioPkg "VoiceBridge/pkg/audio"
	"VoiceBridge/pkg/gemini"
	"VoiceBridge/pkg/metrics"
	"VoiceBridge/pkg/realtime"
	s3Pkg "VoiceBridge/pkg/s3"
	"VoiceBridge/pkg/sanitize"
	"VoiceBridge/pkg/toolapi"
	"VoiceBridge/pkg/utils"
	"VoiceBridge/pkg/vad"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// SessionParams carries the per-connection options the client supplies on
// the WebSocket upgrade.
type SessionParams struct {
	AssistantID    string
	ConversationID string
	Scope          string
}

type IBridgeService interface {
	HandleConnection(client *websocket.Conn, user entity.UserLoginData, params SessionParams, requestID string)
	GetConversation(ctx context.Context, id string) (entity.Conversation, error)
	GetConversationMessages(ctx context.Context, id string, limit int) ([]entity.ConversationMessage, error)
	MetricsSnapshot() metrics.Snapshot
}

type bridgeService struct {
	log              *logrus.Logger
	repo             bridgeRepository.Repository
	assistantService assistantService.IAssistantService
	knowledgeService knowledgeService.IKnowledgeService
	sanitizer        *sanitize.Pipeline
	dialer           realtime.IDialer
	toolAPI          toolapi.IToolAPI
	utils            utils.IUtils
	metrics          *metrics.State

	// Optional integrations; a nil client disables the feature.
	gemini      gemini.IGemini
	s3          s3Pkg.ItfS3
	transcriber audioPkg.ITranscriber

	vadCfg         vad.Config
	turnDetection  *realtime.TurnDetection
	archiveEnabled bool
}

func New(
	log *logrus.Logger,
	repo bridgeRepository.Repository,
	as assistantService.IAssistantService,
	ks knowledgeService.IKnowledgeService,
	sanitizer *sanitize.Pipeline,
	dialer realtime.IDialer,
	toolAPI toolapi.IToolAPI,
	utilsInstance utils.IUtils,
	metricsState *metrics.State,
	geminiClient gemini.IGemini,
	s3Client s3Pkg.ItfS3,
	transcriber audioPkg.ITranscriber,
) IBridgeService {
	archiveEnabled := false
	if v := os.Getenv("AUDIO_ARCHIVE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			archiveEnabled = b
		}
	}

	return &bridgeService{
		log:              log,
		repo:             repo,
		assistantService: as,
		knowledgeService: ks,
		sanitizer:        sanitizer,
		dialer:           dialer,
		toolAPI:          toolAPI,
		utils:            utilsInstance,
		metrics:          metricsState,
		gemini:           geminiClient,
		s3:               s3Client,
		transcriber:      transcriber,
		vadCfg:           vad.ConfigFromEnv(),
		turnDetection:    realtime.TurnDetectionFromEnv(),
		archiveEnabled:   archiveEnabled,
	}
}

func (s *bridgeService) MetricsSnapshot() metrics.Snapshot {
	return s.metrics.Snapshot()
}

func (s *bridgeService) GetConversation(ctx context.Context, id string) (entity.Conversation, error) {
	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		return entity.Conversation{}, err
	}

	return repoClient.Conversations.GetConversationByID(ctx, id)
}

func (s *bridgeService) GetConversationMessages(ctx context.Context, id string, limit int) ([]entity.ConversationMessage, error) {
	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}

	if _, err := repoClient.Conversations.GetConversationByID(ctx, id); err != nil {
		return nil, err
	}

	return repoClient.Messages.GetMessagesByConversationID(ctx, id, limit)
}
