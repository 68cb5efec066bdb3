package bridgeService

import (
	"net/http"
	"net/http/httptest"
	"testing"

	assistantService "VoiceBridge/internal/api/assistant/service"
	"VoiceBridge/internal/api/bridge"
	"VoiceBridge/internal/entity"
	"VoiceBridge/pkg/metrics"
	"VoiceBridge/pkg/realtime"
	"VoiceBridge/pkg/toolapi"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

// fakeUpstream records outbound calls to the speech model connection.
type fakeUpstream struct {
	cancelled []string
	outputs   map[string]string
	responses int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{outputs: make(map[string]string)}
}

func (f *fakeUpstream) ReadEvent() (*realtime.ServerEvent, error)      { return nil, nil }
func (f *fakeUpstream) UpdateSession(cfg realtime.SessionConfig) error { return nil }
func (f *fakeUpstream) AppendAudio(base64PCM string) error             { return nil }
func (f *fakeUpstream) CommitAudio() error                             { return nil }
func (f *fakeUpstream) ClearAudio() error                              { return nil }
func (f *fakeUpstream) CreateUserMessage(text string) error            { return nil }
func (f *fakeUpstream) CreateResponse() error                          { f.responses++; return nil }
func (f *fakeUpstream) Close()                                         {}

func (f *fakeUpstream) CreateFunctionOutput(callID, output string) error {
	f.outputs[callID] = output
	return nil
}

func (f *fakeUpstream) CancelResponse(responseID string) error {
	f.cancelled = append(f.cancelled, responseID)
	return nil
}

func newTestSession(t *testing.T) (*session, *fakeUpstream) {
	t.Helper()

	upstream := newFakeUpstream()
	svc := &bridgeService{
		log:              logrus.New(),
		metrics:          metrics.New(),
		assistantService: assistantService.New(logrus.New(), nil, nil, nil),
	}

	return &session{
		svc:       svc,
		requestID: "test",
		upstream:  upstream,
		pending:   make(map[string]*pendingCall),
		completed: make(map[string]struct{}),
		done:      make(chan struct{}),
	}, upstream
}

func TestPendingCallAccumulatesArguments(t *testing.T) {
	sess, _ := newTestSession(t)

	sess.onFunctionCallDelta(&realtime.ServerEvent{
		Type:   realtime.EventFunctionCallDelta,
		CallID: "call-1",
		Name:   "lookup_booking",
		Delta:  `{"a":1`,
	})
	sess.onFunctionCallDelta(&realtime.ServerEvent{
		Type:   realtime.EventFunctionCallDelta,
		CallID: "call-1",
		Delta:  `}`,
	})

	require.Contains(t, sess.pending, "call-1")
	call := sess.pending["call-1"]
	assert.Equal(t, "lookup_booking", call.name)
	assert.Equal(t, `{"a":1}`, call.args.String())
}

func TestPendingCallsAreIndependent(t *testing.T) {
	sess, _ := newTestSession(t)

	sess.onFunctionCallDelta(&realtime.ServerEvent{CallID: "call-1", Name: "a", Delta: `{"x":`})
	sess.onFunctionCallDelta(&realtime.ServerEvent{CallID: "call-2", Name: "b", Delta: `{"y":`})

	assert.Len(t, sess.pending, 2)
	assert.Equal(t, `{"x":`, sess.pending["call-1"].args.String())
	assert.Equal(t, `{"y":`, sess.pending["call-2"].args.String())
}

func TestClaimCallDispatchesEachCallIDOnce(t *testing.T) {
	sess, _ := newTestSession(t)

	done := &realtime.ServerEvent{
		Type:   realtime.EventFunctionCallDone,
		CallID: "call-dup",
		Name:   "teleport",
	}

	call, args, ok := sess.claimCall(done)
	require.True(t, ok)
	assert.Equal(t, "call-dup", call.callID)
	assert.Equal(t, "teleport", call.name)
	assert.Equal(t, "", args)

	// A replayed done event for the same call id must not dispatch again.
	_, _, ok = sess.claimCall(done)
	assert.False(t, ok)
}

func TestClaimCallUsesAccumulatedArguments(t *testing.T) {
	sess, _ := newTestSession(t)

	sess.onFunctionCallDelta(&realtime.ServerEvent{CallID: "call-1", Name: "lookup_booking", Delta: `{"a":1`})
	sess.onFunctionCallDelta(&realtime.ServerEvent{CallID: "call-1", Delta: `}`})

	call, args, ok := sess.claimCall(&realtime.ServerEvent{
		Type:   realtime.EventFunctionCallDone,
		CallID: "call-1",
	})

	require.True(t, ok)
	assert.Equal(t, "lookup_booking", call.name)
	assert.Equal(t, `{"a":1}`, args)
	assert.Empty(t, sess.pending)
}

func TestClaimCallInlineArgumentsWin(t *testing.T) {
	sess, _ := newTestSession(t)

	sess.onFunctionCallDelta(&realtime.ServerEvent{CallID: "call-1", Name: "lookup_booking", Delta: `{"partial":`})

	_, args, ok := sess.claimCall(&realtime.ServerEvent{
		Type:      realtime.EventFunctionCallDone,
		CallID:    "call-1",
		Arguments: `{"locator":"ABC123"}`,
	})

	require.True(t, ok)
	assert.Equal(t, `{"locator":"ABC123"}`, args)
}

func TestIsDroppedMatchesOnlyCancelledResponse(t *testing.T) {
	sess, _ := newTestSession(t)

	sess.stateMu.Lock()
	sess.dropResponseID = "resp-1"
	sess.stateMu.Unlock()

	assert.True(t, sess.isDropped("resp-1"))
	assert.False(t, sess.isDropped("resp-2"))
	assert.False(t, sess.isDropped(""))
}

func TestHandleCancelTargetsActiveResponse(t *testing.T) {
	sess, upstream := newTestSession(t)

	sess.stateMu.Lock()
	sess.activeResponseID = "resp-1"
	sess.stateMu.Unlock()

	sess.handleCancel(bridge.ClientMessage{Type: bridge.ClientMsgResponseCancel})

	assert.Equal(t, []string{"resp-1"}, upstream.cancelled)
	assert.True(t, sess.isDropped("resp-1"))
	assert.Equal(t, int64(1), sess.svc.metrics.Snapshot().Cancellations)
}

func TestHandleCancelExplicitResponseID(t *testing.T) {
	sess, upstream := newTestSession(t)

	sess.stateMu.Lock()
	sess.activeResponseID = "resp-2"
	sess.stateMu.Unlock()

	sess.handleCancel(bridge.ClientMessage{
		Type:       bridge.ClientMsgResponseCancel,
		ResponseID: "resp-1",
	})

	assert.Equal(t, []string{"resp-1"}, upstream.cancelled)
	assert.True(t, sess.isDropped("resp-1"))
	assert.False(t, sess.isDropped("resp-2"))
}

func TestHandleCancelWithoutActiveResponseIsNoop(t *testing.T) {
	sess, upstream := newTestSession(t)

	sess.handleCancel(bridge.ClientMessage{Type: bridge.ClientMsgResponseCancel})

	assert.Empty(t, upstream.cancelled)
	assert.Equal(t, int64(0), sess.svc.metrics.Snapshot().Cancellations)
}

func TestResponseDoneClearsDropFlag(t *testing.T) {
	sess, _ := newTestSession(t)

	sess.stateMu.Lock()
	sess.activeResponseID = "resp-1"
	sess.dropResponseID = "resp-1"
	sess.stateMu.Unlock()

	sess.onResponseDone(&realtime.ServerEvent{
		Type:       realtime.EventResponseDone,
		ResponseID: "resp-1",
	})

	assert.False(t, sess.isDropped("resp-1"))

	sess.stateMu.Lock()
	active := sess.activeResponseID
	sess.stateMu.Unlock()
	assert.Equal(t, "", active)
}

func TestExecuteToolUnknownName(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.catalog = []entity.ToolDefinition{{Name: "lookup_booking"}}

	_, err := sess.executeTool(context.Background(), "teleport", map[string]interface{}{})

	require.Error(t, err)
	assert.Equal(t, "Unknown tool: teleport", err.Error())
}

func TestExecuteToolSimulatedResponse(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.catalog = []entity.ToolDefinition{{
		Name:          "check_weather",
		Kind:          entity.ToolKindBusiness,
		SimulatedJSON: `{"weather":"sunny"}`,
	}}

	output, err := sess.executeTool(context.Background(), "check_weather", map[string]interface{}{})

	require.NoError(t, err)
	assert.JSONEq(t, `{"weather":"sunny"}`, output)
}

func TestExecuteToolSimulatedDefaultsToEmptyObject(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.catalog = []entity.ToolDefinition{{
		Name: "noop",
		Kind: entity.ToolKindBusiness,
	}}

	output, err := sess.executeTool(context.Background(), "noop", nil)

	require.NoError(t, err)
	assert.Equal(t, `{}`, output)
}

func TestExecuteToolBusinessRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/ABC123", r.URL.Path)
		w.Write([]byte(`{"status":"confirmed"}`))
	}))
	t.Cleanup(server.Close)

	t.Setenv("TOOL_API_BASE_URL", server.URL)

	sess, _ := newTestSession(t)
	sess.svc.toolAPI = toolapi.New()
	sess.catalog = []entity.ToolDefinition{{
		Name:  "lookup_booking",
		Kind:  entity.ToolKindBusiness,
		Route: &entity.ToolRoute{Method: "GET", Path: "/bookings/:locator"},
	}}

	output, err := sess.executeTool(context.Background(), "lookup_booking", map[string]interface{}{
		"locator": "ABC123",
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"confirmed"}`, output)
}

func TestParseToolArgsLenient(t *testing.T) {
	sess, _ := newTestSession(t)

	args, raw := parseToolArgs(sess, "x", `{"a":1}`)
	assert.Equal(t, map[string]interface{}{"a": float64(1)}, args)
	assert.Equal(t, `{"a":1}`, raw)

	args, raw = parseToolArgs(sess, "x", `{broken`)
	assert.Empty(t, args)
	assert.Equal(t, "{}", raw)

	args, raw = parseToolArgs(sess, "x", "")
	assert.Empty(t, args)
	assert.Equal(t, "{}", raw)
}

func TestPatchSessionVoice(t *testing.T) {
	sess, _ := newTestSession(t)

	assert.NoError(t, sess.patchSession("voice", "alloy"))
	assert.Error(t, sess.patchSession("voice", 42))
	assert.NoError(t, sess.patchSession("playback_rate", 1.5))
}

func TestToolSchemasDefaultParameters(t *testing.T) {
	schemas := toolSchemas([]entity.ToolDefinition{
		{Name: "a", Description: "first"},
		{Name: "b", Parameters: []byte(`{"type":"object","properties":{"q":{"type":"string"}}}`)},
	})

	require.Len(t, schemas, 2)
	assert.Equal(t, "function", schemas[0].Type)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(schemas[0].Parameters))
	assert.JSONEq(t, `{"type":"object","properties":{"q":{"type":"string"}}}`, string(schemas[1].Parameters))
}
