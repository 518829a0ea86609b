package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/BaSui01/recruitflow/types"
)

// =============================================================================
// 📡 进度帧
// =============================================================================

// Status is the state carried by a progress frame.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Step names, in pipeline order. StepError labels the failure frame.
const (
	StepProcessingPDF     = "processing-pdf"
	StepResearching       = "researching-perplexity"
	StepExtractingQueries = "extracting-queries"
	StepSearching         = "searching-linkedin"
	StepEnriching         = "enriching-emails"
	StepStoring           = "storing-data"
	StepComplete          = "complete"
	StepError             = "error"
)

// Steps lists the stage names in execution order.
var Steps = []string{
	StepProcessingPDF,
	StepResearching,
	StepExtractingQueries,
	StepSearching,
	StepEnriching,
	StepStoring,
	StepComplete,
}

// Frame is one progress update.
type Frame struct {
	Step      string `json:"step"`
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Final is the terminal frame of a run.
type Final struct {
	Success    bool
	CampaignID string
	Candidates []types.Profile
	Error      string
}

// MarshalJSON writes {type:"final",...}. A successful run always carries a
// candidates array, possibly empty; a failed one carries error instead.
func (f Final) MarshalJSON() ([]byte, error) {
	if f.Success {
		candidates := f.Candidates
		if candidates == nil {
			candidates = []types.Profile{}
		}
		return json.Marshal(struct {
			Type       string          `json:"type"`
			Success    bool            `json:"success"`
			CampaignID string          `json:"campaignId,omitempty"`
			Candidates []types.Profile `json:"candidates"`
		}{"final", true, f.CampaignID, candidates})
	}
	return json.Marshal(struct {
		Type    string `json:"type"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}{"final", false, f.Error})
}

// Emitter receives the frames of one run. Implementations must keep frames in
// the order they were emitted and ignore anything after Finish.
type Emitter interface {
	Emit(Frame)
	Finish(Final)
}

// Event is one item read from a Stream: either a progress frame or the final frame.
type Event struct {
	Frame *Frame
	Final *Final
}

// MarshalJSON encodes whichever of the two frames is set.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Final != nil {
		return json.Marshal(*e.Final)
	}
	return json.Marshal(e.Frame)
}

// =============================================================================
// 🔁 单写者 FIFO 流
// =============================================================================

// Stream is an unbounded FIFO Emitter. The producer never blocks, so a slow
// or departed consumer cannot stall a run.
type Stream struct {
	mu       sync.Mutex
	queue    []Event
	finished bool
	notify   chan struct{}
	now      func() time.Time
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{notify: make(chan struct{}, 1), now: time.Now}
}

// Emit queues a progress frame, stamping it when Timestamp is unset.
func (s *Stream) Emit(f Frame) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	if f.Timestamp == 0 {
		f.Timestamp = s.now().UnixMilli()
	}
	s.queue = append(s.queue, Event{Frame: &f})
	s.mu.Unlock()
	s.signal()
}

// Finish queues the terminal frame and closes the stream to further frames.
func (s *Stream) Finish(f Final) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.queue = append(s.queue, Event{Final: &f})
	s.mu.Unlock()
	s.signal()
}

func (s *Stream) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available. It returns false once the final
// frame has been read or ctx is done.
func (s *Stream) Next(ctx context.Context) (Event, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, true
		}
		done := s.finished
		s.mu.Unlock()
		if done {
			return Event{}, false
		}

		select {
		case <-ctx.Done():
			return Event{}, false
		case <-s.notify:
		}
	}
}
