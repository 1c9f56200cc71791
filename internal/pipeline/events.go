package pipeline

// EventType classifies progress events.
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventRunFinished  EventType = "run_finished"
	EventStageStarted EventType = "stage_started"
	EventStageSkipped EventType = "stage_skipped"
	EventStageDone    EventType = "stage_done"
	EventStageFailed  EventType = "stage_failed"
	EventDegraded     EventType = "degraded_mode"
	EventJobDone      EventType = "job_done"
	EventJobFailed    EventType = "job_failed"
)

// Event is one progress notification. Events are advisory; consumers that
// fall behind lose events rather than stalling the pipeline.
type Event struct {
	Type     EventType
	RunID    string
	Stage    string
	JobIndex int
	Message  string
}

// Publisher receives pipeline progress events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// ChannelPublisher fans events into a buffered channel with non-blocking
// sends.
type ChannelPublisher struct {
	ch chan Event
}

// NewChannelPublisher allocates a publisher with the given buffer size.
func NewChannelPublisher(buffer int) *ChannelPublisher {
	if buffer < 1 {
		buffer = 64
	}
	return &ChannelPublisher{ch: make(chan Event, buffer)}
}

// Publish sends the event unless the buffer is full.
func (p *ChannelPublisher) Publish(event Event) {
	select {
	case p.ch <- event:
	default:
	}
}

// Events exposes the receive side of the channel.
func (p *ChannelPublisher) Events() <-chan Event {
	return p.ch
}

// Close closes the channel once no more events will be published.
func (p *ChannelPublisher) Close() {
	close(p.ch)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
