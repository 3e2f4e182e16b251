package status

import (
	"log/slog"
	"sync"
)

// LogPublisher publishes events as structured log lines. It never returns
// an error — logging is assumed infallible — and is the default Publisher
// used when no real-time transport is wired up.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a Publisher that writes each event to logger (or
// the default slog logger, if nil).
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(event Event) error {
	attrs := []any{
		"job_id", event.JobID,
		"tenant_id", event.TenantID,
		"status", event.Status,
		"message", event.Message,
	}
	if event.AgentName != nil {
		attrs = append(attrs, "agent_name", *event.AgentName)
	}
	p.logger.Info("status event", attrs...)
	return nil
}

// ChannelPublisher fans events out to subscribers through buffered Go
// channels, one per job id, without any transport or persistence concerns
// of its own — those belong to whatever sits on the other end of Subscribe.
// A full channel buffer drops the event rather than blocking the
// orchestrator, consistent with "delivery is best-effort".
type ChannelPublisher struct {
	mu       sync.Mutex
	channels map[string]chan Event
	buffer   int
}

// NewChannelPublisher creates a publisher with the given per-job channel
// buffer size.
func NewChannelPublisher(buffer int) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 32
	}
	return &ChannelPublisher{
		channels: make(map[string]chan Event),
		buffer:   buffer,
	}
}

// Subscribe returns a channel of events for jobID. The channel is created
// lazily and is never closed by Publish; callers should stop reading once
// they no longer need it. Unsubscribe removes and closes it.
func (p *ChannelPublisher) Subscribe(jobID string) <-chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.channels[jobID]
	if !ok {
		ch = make(chan Event, p.buffer)
		p.channels[jobID] = ch
	}
	return ch
}

// Unsubscribe closes and removes the channel for jobID, if any.
func (p *ChannelPublisher) Unsubscribe(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch, ok := p.channels[jobID]; ok {
		delete(p.channels, jobID)
		close(ch)
	}
}

// Publish implements Publisher. Best-effort: if the subscriber's buffer is
// full, the event is dropped rather than blocking the caller.
func (p *ChannelPublisher) Publish(event Event) error {
	p.mu.Lock()
	ch, ok := p.channels[event.JobID]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case ch <- event:
	default:
		slog.Warn("status event dropped, subscriber buffer full", "job_id", event.JobID)
	}
	return nil
}
