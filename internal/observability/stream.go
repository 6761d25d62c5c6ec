package observability

import (
	"sync"
	"time"
)

// StreamSummary is the per-stream metrics bundle delivered with the terminal event.
type StreamSummary struct {
	AgentType    string `json:"agent_type"`
	Mode         string `json:"mode"`
	ChunksSent   int    `json:"chunks_sent"`
	TotalChars   int    `json:"total_chars"`
	FirstTokenMS int64  `json:"first_token_ms"`
	DurationMS   int64  `json:"duration_ms"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type,omitempty"`
}

// StreamSession tracks one streamed response. It works with a nil *Metrics,
// in which case only the summary is computed.
type StreamSession struct {
	m         *Metrics
	agentType string
	mode      string
	now       func() time.Time

	mu         sync.Mutex
	started    time.Time
	firstToken time.Time
	chunks     int
	chars      int
	done       bool
	summary    StreamSummary
}

func (m *Metrics) StartStream(agentType, mode string) *StreamSession {
	return m.startStream(agentType, mode, time.Now)
}

func (m *Metrics) startStream(agentType, mode string, now func() time.Time) *StreamSession {
	s := &StreamSession{m: m, agentType: agentType, mode: mode, now: now, started: now()}
	if m != nil {
		m.streamsStarted.Inc(agentType, mode)
		m.streamsActive.Inc()
	}
	return s
}

// Chunk records a delivered chunk and reports whether it was the first one.
func (s *StreamSession) Chunk(content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	s.chunks++
	s.chars += len([]rune(content))
	if !s.firstToken.IsZero() {
		return false
	}
	s.firstToken = s.now()
	if s.m != nil {
		s.m.streamFirstToken.Observe(s.firstToken.Sub(s.started).Seconds(), s.mode)
	}
	return true
}

func (s *StreamSession) FirstTokenLatency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstToken.IsZero() {
		return 0
	}
	return s.firstToken.Sub(s.started)
}

func (s *StreamSession) ChunksSent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// Complete closes the session successfully. Later calls return the first summary.
func (s *StreamSession) Complete() StreamSummary {
	return s.finish("complete", "")
}

// Fail closes the session with errorType. Later calls return the first summary.
func (s *StreamSession) Fail(errorType string) StreamSummary {
	if errorType == "" {
		errorType = "unexpected_error"
	}
	return s.finish("error", errorType)
}

func (s *StreamSession) finish(status, errorType string) StreamSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.summary
	}
	s.done = true
	end := s.now()
	s.summary = StreamSummary{
		AgentType:  s.agentType,
		Mode:       s.mode,
		ChunksSent: s.chunks,
		TotalChars: s.chars,
		DurationMS: end.Sub(s.started).Milliseconds(),
		Status:     status,
		ErrorType:  errorType,
	}
	if !s.firstToken.IsZero() {
		s.summary.FirstTokenMS = s.firstToken.Sub(s.started).Milliseconds()
	}
	if s.m != nil {
		s.m.streamsActive.Dec()
		s.m.streamDuration.Observe(end.Sub(s.started).Seconds(), s.mode, status)
		s.m.streamChunks.Observe(float64(s.chunks), s.mode)
		if status == "complete" {
			s.m.streamsCompleted.Inc(s.agentType, s.mode)
		} else {
			s.m.streamErrors.Inc(errorType, s.mode)
		}
	}
	return s.summary
}
