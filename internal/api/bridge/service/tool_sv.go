package bridgeService

import (
	"encoding/json"
	"fmt"
	"time"

	"VoiceBridge/internal/api/bridge"
	"VoiceBridge/internal/entity"
	contextPkg "VoiceBridge/pkg/context"
	"VoiceBridge/pkg/realtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const toolCallTimeout = 30 * time.Second

// routeToolCall executes one model-initiated tool call end to end:
// dispatched → succeeded|failed. Whatever happens, a function_call_output
// goes back upstream followed by response.create, so the model is never left
// waiting on a dead call.
func (s *session) routeToolCall(callID, name, rawArgs string) {
	start := time.Now()
	s.svc.metrics.ToolCall()

	ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), s.requestID), toolCallTimeout)
	defer cancel()

	args, argsJSON := parseToolArgs(s, name, rawArgs)

	s.recordToolStart(ctx, callID, name, argsJSON)
	s.writeJSON(bridge.ToolLogMessage{
		Type:      "tool.log",
		Name:      name,
		Status:    "started",
		Args:      argsJSON,
		Timestamp: time.Now(),
	})

	output, callErr := s.executeTool(ctx, name, args)

	status := entity.ToolCallSucceeded
	errMsg := ""
	if callErr != nil {
		status = entity.ToolCallFailed
		errMsg = callErr.Error()
		output = fmt.Sprintf(`{"error":%q}`, errMsg)
		s.svc.metrics.ToolFailure()
	}

	elapsed := time.Since(start).Milliseconds()
	s.svc.metrics.ToolLatency(elapsed)

	s.svc.log.WithFields(logrus.Fields{
		"request_id": s.requestID,
		"tool":       name,
		"call_id":    callID,
		"status":     string(status),
		"latency_ms": elapsed,
	}).Info("Tool call completed")

	s.writeJSON(bridge.ToolLogMessage{
		Type:      "tool.log",
		Name:      name,
		Status:    string(status),
		Message:   errMsg,
		Timestamp: time.Now(),
	})
	go s.recordToolCompletion(callID, name, status, output, errMsg)

	if err := s.upstream.CreateFunctionOutput(callID, output); err != nil {
		s.upstreamWriteFailed(err)
		return
	}
	if err := s.upstream.CreateResponse(); err != nil {
		s.upstreamWriteFailed(err)
	}
}

// executeTool dispatches on the tool definition kind. Unknown names produce
// a structured error output the model can recover from.
func (s *session) executeTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	tool, ok := s.svc.assistantService.ResolveTool(s.catalog, name)
	if !ok {
		return "", fmt.Errorf("Unknown tool: %s", name)
	}

	switch {
	case tool.Kind == entity.ToolKindSession:
		return s.executeSessionTool(tool, args)
	case tool.Route != nil:
		result, err := s.svc.toolAPI.Call(ctx, tool.Route.Method, tool.Route.Path, args)
		if err != nil {
			return "", err
		}
		return string(result), nil
	default:
		if tool.SimulatedJSON != "" {
			return tool.SimulatedJSON, nil
		}
		return `{}`, nil
	}
}

// executeSessionTool acts on the session itself: a ui.command to the client
// and, when the tool maps an argument onto the upstream session config, a
// session.update patch.
func (s *session) executeSessionTool(tool entity.ToolDefinition, args map[string]interface{}) (string, error) {
	command := tool.UICommand
	if command == "" {
		command = tool.Name
	}

	s.writeJSON(bridge.UICommandMessage{
		Type:      "ui.command",
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})

	if tool.SessionParam != "" {
		if value, ok := args[tool.SessionParam]; ok {
			if err := s.patchSession(tool.SessionParam, value); err != nil {
				return "", err
			}
		}
	}

	return `{"ok":true}`, nil
}

func (s *session) patchSession(param string, value interface{}) error {
	switch param {
	case "voice":
		voice, ok := value.(string)
		if !ok || voice == "" {
			return fmt.Errorf("invalid voice value")
		}
		return s.upstream.UpdateSession(realtime.SessionConfig{Voice: voice})
	default:
		// Parameters without an upstream mapping only act on the client.
		return nil
	}
}

// parseToolArgs parses leniently: malformed argument JSON degrades to an
// empty object instead of failing the call.
func parseToolArgs(s *session, name, rawArgs string) (map[string]interface{}, string) {
	if rawArgs == "" {
		return map[string]interface{}{}, "{}"
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"tool":       name,
			"error":      err.Error(),
		}).Warn("Malformed tool arguments, using empty object")
		return map[string]interface{}{}, "{}"
	}

	return args, rawArgs
}

// recordToolStart persists the started record when a conversation exists.
// Sessions without persistence just skip the audit trail.
func (s *session) recordToolStart(ctx context.Context, callID, name, argsJSON string) {
	s.stateMu.Lock()
	conversationID := s.conversationID
	s.stateMu.Unlock()

	if conversationID == "" {
		return
	}

	repoClient, err := s.svc.repo.NewClient(false)
	if err != nil {
		return
	}

	record := entity.ToolCallRecord{
		ID:             callID,
		ConversationID: conversationID,
		Name:           name,
		Status:         entity.ToolCallStarted,
		InputJSON:      argsJSON,
		CreatedAt:      time.Now(),
	}

	if err := repoClient.ToolCalls.CreateToolCall(ctx, record); err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"call_id":    callID,
			"error":      err.Error(),
		}).Warn("Tool call record create failed")
	}
}

// recordToolCompletion moves the record to its terminal status and links a
// system message into the conversation.
func (s *session) recordToolCompletion(callID, name string, status entity.ToolCallStatus, resultJSON, errMsg string) {
	s.stateMu.Lock()
	conversationID := s.conversationID
	s.stateMu.Unlock()

	if conversationID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), s.requestID), 10*time.Second)
	defer cancel()

	repoClient, err := s.svc.repo.NewClient(false)
	if err != nil {
		return
	}

	if err := repoClient.ToolCalls.CompleteToolCall(ctx, callID, status, resultJSON, errMsg); err != nil {
		s.svc.log.WithFields(logrus.Fields{
			"request_id": s.requestID,
			"call_id":    callID,
			"error":      err.Error(),
		}).Warn("Tool call record completion failed")
		return
	}

	content := fmt.Sprintf("tool %s %s", name, string(status))
	s.persistMessage(entity.MessageRoleSystem, content, callID)
}
