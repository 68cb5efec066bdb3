package bridgeService

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"VoiceBridge/internal/api/bridge"
	"VoiceBridge/internal/entity"
	audioPkg "VoiceBridge/pkg/audio"
	contextPkg "VoiceBridge/pkg/context"
	"VoiceBridge/pkg/realtime"
	"VoiceBridge/pkg/vad"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// session is the per-connection state of one bridged call. A session owns
// exactly two sockets: the browser client and the upstream speech model.
// Client writes are serialized by writeMu; response/tool bookkeeping is
// guarded by stateMu.
type session struct {
	svc       *bridgeService
	requestID string
	user      entity.UserLoginData

	client   *websocket.Conn
	upstream realtime.IConn
	gate     *vad.Gate

	assistant      entity.Assistant
	catalog        []entity.ToolDefinition
	conversationID string
	scope          string

	writeMu sync.Mutex

	stateMu          sync.Mutex
	activeResponseID string
	dropResponseID   string
	pending          map[string]*pendingCall
	completed        map[string]struct{}
	textBuf          strings.Builder
	audioTurn        []byte
	transcript       []string

	closeOnce sync.Once
	done      chan struct{}
}

// pendingCall accumulates streamed function-call arguments until the done
// event arrives.
type pendingCall struct {
	callID string
	itemID string
	name   string
	args   strings.Builder
}

func (s *bridgeService) HandleConnection(client *websocket.Conn, user entity.UserLoginData, params SessionParams, requestID string) {
	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()

	ctx := contextPkg.WithRequestID(context.Background(), requestID)

	sess := &session{
		svc:            s,
		requestID:      requestID,
		user:           user,
		client:         client,
		gate:           vad.NewGate(s.vadCfg, s.log),
		conversationID: params.ConversationID,
		scope:          params.Scope,
		pending:        make(map[string]*pendingCall),
		completed:      make(map[string]struct{}),
		done:           make(chan struct{}),
	}

	assistant, err := s.assistantService.GetAssistant(ctx, params.AssistantID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"assistant_id": params.AssistantID,
			"error":        err.Error(),
		}).Warn("Assistant resolution failed, closing session")
		sess.writeError("Assistant not found")
		return
	}
	sess.assistant = assistant

	instructions, err := s.assistantService.ComposeInstructions(ctx, assistant.ID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Instruction composition failed, continuing with empty instructions")
		instructions = ""
	}

	catalog, err := s.assistantService.GetToolCatalog(ctx, assistant.ID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Tool catalog load failed, continuing without tools")
		catalog = nil
	}
	sess.catalog = catalog

	upstream, err := s.dialer.Dial()
	if err != nil {
		s.metrics.UpstreamError()
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Upstream dial failed")
		sess.writeError(bridge.ErrUpstreamUnavailable.Error())
		return
	}
	sess.upstream = upstream

	if err := upstream.UpdateSession(realtime.SessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      instructions,
		Voice:             assistant.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		TurnDetection:     s.turnDetection,
		Tools:             toolSchemas(catalog),
		ToolChoice:        "auto",
	}); err != nil {
		s.metrics.UpstreamError()
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Initial session.update failed")
		sess.teardown()
		return
	}

	sess.writeJSON(bridge.EventEnvelope{Type: "session.ready"})

	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"user_id":      user.ID,
		"assistant_id": assistant.ID,
		"tool_count":   len(catalog),
	}).Info("Bridge session established")

	go sess.runUpstreamLoop()
	sess.runClientLoop(ctx)
	sess.teardown()
}

func (s *session) runClientLoop(ctx context.Context) {
	for {
		messageType, payload, err := s.client.ReadMessage()
		if err != nil {
			s.svc.log.WithFields(logrus.Fields{
				"request_id": s.requestID,
				"error":      err.Error(),
			}).Debug("Client socket closed")
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var msg bridge.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.svc.log.WithFields(logrus.Fields{
				"request_id": s.requestID,
				"error":      err.Error(),
			}).Warn("Dropping malformed client message")
			continue
		}

		switch msg.Type {
		case bridge.ClientMsgUserMessage:
			s.handleUserMessage(ctx, msg)
		case bridge.ClientMsgAudioStart:
			s.handleAudioStart()
		case bridge.ClientMsgAudioChunk:
			s.handleAudioChunk(msg)
		case bridge.ClientMsgAudioStop:
			s.handleAudioStop(ctx)
		case bridge.ClientMsgResponseCancel:
			s.handleCancel(msg)
		default:
			s.svc.log.WithFields(logrus.Fields{
				"request_id": s.requestID,
				"type":       msg.Type,
			}).Debug("Ignoring unknown client message type")
		}
	}
}

// handleUserMessage forwards a typed message upstream with retrieved
// knowledge context attached. Persistence failures never block the turn.
func (s *session) handleUserMessage(ctx context.Context, msg bridge.ClientMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	scope := msg.Scope
	if scope == "" {
		scope = s.scope
	}

	s.ensureConversation(ctx, msg.ConversationID)
	s.persistMessage(entity.MessageRoleUser, text, "")
	s.appendTranscript("user: " + text)

	upstreamText := text
	if block := s.svc.knowledgeService.Retrieve(ctx, text, scope); block != "" {
		upstreamText = text + "\n\nRelevant knowledge:\n" + block
	}

	if err := s.upstream.CreateUserMessage(upstreamText); err != nil {
		s.upstreamWriteFailed(err)
		return
	}
	if err := s.upstream.CreateResponse(); err != nil {
		s.upstreamWriteFailed(err)
	}
}

func (s *session) handleAudioStart() {
	s.stateMu.Lock()
	s.audioTurn = s.audioTurn[:0]
	s.stateMu.Unlock()

	if err := s.upstream.ClearAudio(); err != nil {
		s.upstreamWriteFailed(err)
	}
}

// handleAudioChunk gates one audio chunk. Forwarded chunks also accumulate
// locally for the archive and transcription path.
func (s *session) handleAudioChunk(msg bridge.ClientMessage) {
	if msg.Audio == "" {
		return
	}

	pcm, err := s.svc.utils.DecodeBase64(msg.Audio)
	if err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"error":      err.Error(),
		}).Warn("Dropping audio chunk with invalid base64")
		return
	}

	if !s.gate.ShouldForward(pcm) {
		s.svc.metrics.FrameDropped()
		return
	}

	s.stateMu.Lock()
	s.audioTurn = append(s.audioTurn, pcm...)
	s.stateMu.Unlock()

	if err := s.upstream.AppendAudio(msg.Audio); err != nil {
		s.upstreamWriteFailed(err)
		return
	}
	s.svc.metrics.FrameForwarded()
}

func (s *session) handleAudioStop(ctx context.Context) {
	s.stateMu.Lock()
	turn := make([]byte, len(s.audioTurn))
	copy(turn, s.audioTurn)
	s.audioTurn = s.audioTurn[:0]
	s.stateMu.Unlock()

	if err := s.upstream.CommitAudio(); err != nil {
		s.upstreamWriteFailed(err)
		return
	}
	if err := s.upstream.CreateResponse(); err != nil {
		s.upstreamWriteFailed(err)
		return
	}

	if len(turn) == 0 {
		return
	}

	s.ensureConversation(ctx, "")

	go s.archiveTurn(turn)
	go s.transcribeTurn(turn)
}

// handleCancel marks the targeted response as dropped so late deltas are
// suppressed, then asks upstream to stop generating.
func (s *session) handleCancel(msg bridge.ClientMessage) {
	s.stateMu.Lock()
	responseID := msg.ResponseID
	if responseID == "" {
		responseID = s.activeResponseID
	}
	if responseID != "" {
		s.dropResponseID = responseID
	}
	s.stateMu.Unlock()

	if responseID == "" {
		return
	}

	s.svc.metrics.Cancellation()

	if err := s.upstream.CancelResponse(responseID); err != nil {
		s.upstreamWriteFailed(err)
	}
}

// ensureConversation lazily creates the conversation row. A failed create
// leaves the session running without persistence.
func (s *session) ensureConversation(ctx context.Context, requestedID string) {
	s.stateMu.Lock()
	if requestedID != "" && s.conversationID == "" {
		s.conversationID = requestedID
	}
	existing := s.conversationID
	s.stateMu.Unlock()

	repoClient, err := s.svc.repo.NewClient(false)
	if err != nil {
		return
	}

	if existing != "" {
		if _, err := repoClient.Conversations.GetConversationByID(ctx, existing); err == nil {
			return
		}
	}

	id := existing
	if id == "" {
		id, err = s.svc.utils.NewULIDFromTimestamp(time.Now())
		if err != nil {
			return
		}
	}

	now := time.Now()
	conv := entity.Conversation{
		ID:           id,
		UserID:       s.user.ID,
		AssistantID:  s.assistant.ID,
		Title:        "Voice session " + now.Format("2006-01-02 15:04"),
		LastActivity: now,
		CreatedAt:    now,
	}

	if err := repoClient.Conversations.CreateConversation(ctx, conv); err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"error":      err.Error(),
		}).Warn("Conversation create failed, session continues unpersisted")
		return
	}

	s.stateMu.Lock()
	s.conversationID = id
	s.stateMu.Unlock()
}

// persistMessage appends one message row in the background.
func (s *session) persistMessage(role, content, toolCallID string) {
	s.stateMu.Lock()
	conversationID := s.conversationID
	s.stateMu.Unlock()

	if conversationID == "" || content == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), s.requestID), 10*time.Second)
		defer cancel()

		repoClient, err := s.svc.repo.NewClient(false)
		if err != nil {
			return
		}

		id, err := s.svc.utils.NewULIDFromTimestamp(time.Now())
		if err != nil {
			return
		}

		msg := entity.ConversationMessage{
			ID:             id,
			ConversationID: conversationID,
			Role:           role,
			Content:        content,
			ToolCallID:     toolCallID,
			CreatedAt:      time.Now(),
		}

		if err := repoClient.Messages.AppendMessage(ctx, msg); err != nil {
			return
		}
		_ = repoClient.Conversations.TouchConversation(ctx, conversationID)
	}()
}

func (s *session) appendTranscript(line string) {
	s.stateMu.Lock()
	s.transcript = append(s.transcript, line)
	s.stateMu.Unlock()
}

// archiveTurn uploads the finished input turn as a WAV object.
func (s *session) archiveTurn(pcm []byte) {
	if s.svc.s3 == nil || !s.svc.archiveEnabled {
		return
	}

	s.stateMu.Lock()
	conversationID := s.conversationID
	s.stateMu.Unlock()
	if conversationID == "" {
		return
	}

	id, err := s.svc.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return
	}

	key := "conversations/" + conversationID + "/" + id + ".wav"
	wav := audioPkg.WrapPCM16(pcm, s.svc.vadCfg.SampleRate)

	if _, err := s.svc.s3.UploadBytes(key, wav); err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"key":        key,
			"error":      err.Error(),
		}).Warn("Audio archive upload failed")
	}
}

// transcribeTurn persists the spoken user turn as text so voice input shows
// up in the conversation history and the closing summary.
func (s *session) transcribeTurn(pcm []byte) {
	if s.svc.transcriber == nil {
		return
	}

	ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), s.requestID), 60*time.Second)
	defer cancel()

	text, err := s.svc.transcriber.TranscribePCM16(ctx, pcm, s.svc.vadCfg.SampleRate)
	if err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"error":      err.Error(),
		}).Warn("Turn transcription failed")
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.appendTranscript("user: " + text)
	s.persistMessage(entity.MessageRoleUser, text, "")
}

func (s *session) upstreamWriteFailed(err error) {
	s.svc.metrics.UpstreamError()
	s.svc.log.WithFields(logrus.Fields{
		"request_id": s.requestID,
		"error":      err.Error(),
	}).Error("Upstream write failed")
	s.writeError(bridge.ErrUpstreamUnavailable.Error())
}

func (s *session) teardown() {
	s.closeOnce.Do(func() {
		close(s.done)

		if s.upstream != nil {
			s.upstream.Close()
		}
		s.client.Close()

		s.stateMu.Lock()
		conversationID := s.conversationID
		transcript := make([]string, len(s.transcript))
		copy(transcript, s.transcript)
		s.stateMu.Unlock()

		s.svc.log.WithFields(logrus.Fields{
			"request_id":      s.requestID,
			"conversation_id": conversationID,
			"turns":           len(transcript),
		}).Info("Bridge session closed")

		if s.svc.gemini != nil && conversationID != "" && len(transcript) > 0 {
			go s.summarizeConversation(conversationID, transcript)
		}
	})
}

func (s *session) summarizeConversation(conversationID string, transcript []string) {
	ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), s.requestID), 60*time.Second)
	defer cancel()

	summary, err := s.svc.gemini.SummarizeTranscript(ctx, transcript)
	if err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id":      s.requestID,
			"conversation_id": conversationID,
			"error":           err.Error(),
		}).Warn("Conversation summary failed")
		return
	}

	repoClient, err := s.svc.repo.NewClient(false)
	if err != nil {
		return
	}

	if err := repoClient.Conversations.UpdateSummary(ctx, conversationID, summary); err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id":      s.requestID,
			"conversation_id": conversationID,
			"error":           err.Error(),
		}).Warn("Conversation summary persist failed")
	}
}

// writeJSON serializes one text frame to the client.
func (s *session) writeJSON(v interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.client.WriteJSON(v); err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"error":      err.Error(),
		}).Debug("Client write failed")
	}
}

func (s *session) writeBinary(payload []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.client.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"error":      err.Error(),
		}).Debug("Client binary write failed")
	}
}

func (s *session) writeError(message string) {
	s.writeJSON(bridge.EventEnvelope{Type: "error", Message: message})
}

func toolSchemas(catalog []entity.ToolDefinition) []realtime.ToolSchema {
	schemas := make([]realtime.ToolSchema, 0, len(catalog))
	for _, tool := range catalog {
		params := tool.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		schemas = append(schemas, realtime.ToolSchema{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}
	return schemas
}
