package bridgeService

import (
	"strings"

	"VoiceBridge/internal/api/bridge"
	"VoiceBridge/internal/entity"
	"VoiceBridge/pkg/realtime"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// runUpstreamLoop reads upstream events until the socket dies and dispatches
// them one at a time. Tool routing is the only work that leaves this
// goroutine.
func (s *session) runUpstreamLoop() {
	defer s.teardown()

	for {
		event, err := s.upstream.ReadEvent()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.svc.log.WithFields(logrus.Fields{
					"request_id": s.requestID,
					"error":      err.Error(),
				}).Debug("Upstream socket closed")
			}
			return
		}

		s.dispatchUpstreamEvent(event)
	}
}

func (s *session) dispatchUpstreamEvent(event *realtime.ServerEvent) {
	switch event.Type {
	case realtime.EventResponseCreated:
		s.onResponseCreated(event)
	case realtime.EventTextDelta:
		s.onTextDelta(event)
	case realtime.EventTextDone:
		s.onTextDone(event)
	case realtime.EventAudioDelta:
		s.onAudioDelta(event)
	case realtime.EventFunctionCallDelta:
		s.onFunctionCallDelta(event)
	case realtime.EventFunctionCallDone:
		s.onFunctionCallDone(event)
	case realtime.EventResponseDone:
		s.onResponseDone(event)
	case realtime.EventInputCommitted:
		s.writeJSON(bridge.EventEnvelope{Type: event.Type})
	case realtime.EventError:
		s.onUpstreamError(event)
	case realtime.EventSessionCreated, realtime.EventSessionUpdated, realtime.EventAudioDone:
		// Bookkeeping events the client does not need.
	default:
		// Unknown event types pass through untouched so newer upstream
		// features reach the client without a bridge release.
		s.writeRaw(event.Raw)
	}
}

func (s *session) onResponseCreated(event *realtime.ServerEvent) {
	responseID := event.ResponseID
	if responseID == "" && event.Response != nil {
		responseID = event.Response.ID
	}

	s.stateMu.Lock()
	s.activeResponseID = responseID
	if s.dropResponseID != "" && s.dropResponseID != responseID {
		s.dropResponseID = ""
	}
	s.textBuf.Reset()
	s.stateMu.Unlock()

	s.writeJSON(bridge.EventEnvelope{Type: event.Type, ResponseID: responseID})
}

func (s *session) onTextDelta(event *realtime.ServerEvent) {
	if s.isDropped(event.ResponseID) {
		return
	}

	sanitized := s.svc.sanitizer.Apply(event.Delta)

	s.stateMu.Lock()
	s.textBuf.WriteString(event.Delta)
	s.stateMu.Unlock()

	s.writeJSON(bridge.EventEnvelope{
		Type:       event.Type,
		ResponseID: event.ResponseID,
		Delta:      sanitized,
	})
}

// onTextDone sanitizes the full aggregate once more so a secret split across
// delta boundaries still cannot reach the final text.
func (s *session) onTextDone(event *realtime.ServerEvent) {
	if s.isDropped(event.ResponseID) {
		return
	}

	text := event.Text
	if text == "" {
		s.stateMu.Lock()
		text = s.textBuf.String()
		s.stateMu.Unlock()
	}

	final := s.svc.sanitizer.Apply(text)

	s.writeJSON(bridge.EventEnvelope{
		Type:       event.Type,
		ResponseID: event.ResponseID,
		Text:       final,
	})

	if strings.TrimSpace(final) != "" {
		s.appendTranscript("assistant: " + final)
		s.persistMessage(entity.MessageRoleAssistant, final, "")
	}
}

// onAudioDelta forwards model audio as raw binary frames; base64 stays on
// the upstream leg only.
func (s *session) onAudioDelta(event *realtime.ServerEvent) {
	if s.isDropped(event.ResponseID) {
		return
	}
	if event.Delta == "" {
		return
	}

	pcm, err := s.svc.utils.DecodeBase64(event.Delta)
	if err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"error":      err.Error(),
		}).Warn("Dropping upstream audio delta with invalid base64")
		return
	}

	s.writeBinary(pcm)
}

func (s *session) onFunctionCallDelta(event *realtime.ServerEvent) {
	if event.CallID == "" {
		return
	}

	s.stateMu.Lock()
	call, ok := s.pending[event.CallID]
	if !ok {
		call = &pendingCall{
			callID: event.CallID,
			itemID: event.ItemID,
			name:   event.Name,
		}
		s.pending[event.CallID] = call
	}
	if call.name == "" && event.Name != "" {
		call.name = event.Name
	}
	call.args.WriteString(event.Delta)
	s.stateMu.Unlock()
}

func (s *session) onFunctionCallDone(event *realtime.ServerEvent) {
	if event.CallID == "" {
		return
	}

	call, args, ok := s.claimCall(event)
	if !ok {
		return
	}

	go s.routeToolCall(call.callID, call.name, args)
}

// claimCall resolves a done event into at most one dispatch per call id.
// The completed set absorbs repeated done events; ids never seen as deltas
// are reconstructed from the event itself.
func (s *session) claimCall(event *realtime.ServerEvent) (*pendingCall, string, bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if _, seen := s.completed[event.CallID]; seen {
		return nil, "", false
	}
	s.completed[event.CallID] = struct{}{}

	call, ok := s.pending[event.CallID]
	if ok {
		delete(s.pending, event.CallID)
	} else {
		call = &pendingCall{
			callID: event.CallID,
			itemID: event.ItemID,
			name:   event.Name,
		}
	}
	if call.name == "" {
		call.name = event.Name
	}

	args := event.Arguments
	if args == "" {
		args = call.args.String()
	}

	return call, args, true
}

func (s *session) onResponseDone(event *realtime.ServerEvent) {
	responseID := event.ResponseID
	if responseID == "" && event.Response != nil {
		responseID = event.Response.ID
	}

	s.stateMu.Lock()
	if s.activeResponseID == responseID {
		s.activeResponseID = ""
	}
	dropped := s.dropResponseID != "" && s.dropResponseID == responseID
	if dropped {
		s.dropResponseID = ""
	}
	s.stateMu.Unlock()

	if dropped {
		return
	}

	s.writeJSON(bridge.EventEnvelope{Type: event.Type, ResponseID: responseID})
}

// onUpstreamError suppresses known-benign codes and forwards the rest.
func (s *session) onUpstreamError(event *realtime.ServerEvent) {
	if event.Error != nil && event.Error.Code == realtime.ErrCodeEmptyCommit {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"code":       event.Error.Code,
		}).Debug("Suppressing benign upstream error")
		return
	}

	s.svc.metrics.UpstreamError()

	message := "upstream error"
	if event.Error != nil && event.Error.Message != "" {
		message = event.Error.Message
	}

	s.svc.log.WithFields(logrus.Fields{
		"request_id": s.requestID,
		"message":    message,
	}).Warn("Upstream error forwarded to client")

	s.writeJSON(bridge.EventEnvelope{Type: "error", Message: message})
}

// isDropped reports whether deltas for this response were cancelled. Only
// the exact cancelled id is suppressed; newer responses flow normally.
func (s *session) isDropped(responseID string) bool {
	if responseID == "" {
		return false
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.dropResponseID == responseID
}

func (s *session) writeRaw(payload []byte) {
	if len(payload) == 0 {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.client.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"error":      err.Error(),
		}).Debug("Client raw write failed")
	}
}
