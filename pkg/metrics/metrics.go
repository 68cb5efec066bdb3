package metrics

import "sync/atomic"

// State holds process-local counters for the bridge. Counters are never
// reset; callers take periodic snapshots.
type State struct {
	sessionsOpened   atomic.Int64
	sessionsClosed   atomic.Int64
	toolCalls        atomic.Int64
	toolFailures     atomic.Int64
	toolLatencyMs    atomic.Int64
	framesForwarded  atomic.Int64
	framesDropped    atomic.Int64
	cancellations    atomic.Int64
	upstreamErrors   atomic.Int64
	retrievalQueries atomic.Int64
}

type Snapshot struct {
	SessionsOpened   int64 `json:"sessions_opened"`
	SessionsClosed   int64 `json:"sessions_closed"`
	ToolCalls        int64 `json:"tool_calls"`
	ToolFailures     int64 `json:"tool_failures"`
	ToolLatencyMs    int64 `json:"tool_latency_ms_total"`
	FramesForwarded  int64 `json:"audio_chunks_forwarded"`
	FramesDropped    int64 `json:"audio_chunks_dropped"`
	Cancellations    int64 `json:"cancellations"`
	UpstreamErrors   int64 `json:"upstream_errors"`
	RetrievalQueries int64 `json:"retrieval_queries"`
}

func New() *State {
	return &State{}
}

func (s *State) SessionOpened()      { s.sessionsOpened.Add(1) }
func (s *State) SessionClosed()      { s.sessionsClosed.Add(1) }
func (s *State) ToolCall()           { s.toolCalls.Add(1) }
func (s *State) ToolFailure()        { s.toolFailures.Add(1) }
func (s *State) ToolLatency(ms int64) { s.toolLatencyMs.Add(ms) }
func (s *State) FrameForwarded()     { s.framesForwarded.Add(1) }
func (s *State) FrameDropped()       { s.framesDropped.Add(1) }
func (s *State) Cancellation()       { s.cancellations.Add(1) }
func (s *State) UpstreamError()      { s.upstreamErrors.Add(1) }
func (s *State) RetrievalQuery()     { s.retrievalQueries.Add(1) }

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		SessionsOpened:   s.sessionsOpened.Load(),
		SessionsClosed:   s.sessionsClosed.Load(),
		ToolCalls:        s.toolCalls.Load(),
		ToolFailures:     s.toolFailures.Load(),
		ToolLatencyMs:    s.toolLatencyMs.Load(),
		FramesForwarded:  s.framesForwarded.Load(),
		FramesDropped:    s.framesDropped.Load(),
		Cancellations:    s.cancellations.Load(),
		UpstreamErrors:   s.upstreamErrors.Load(),
		RetrievalQueries: s.retrievalQueries.Load(),
	}
}
