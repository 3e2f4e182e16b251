package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelPublisher_DeliversToSubscriber(t *testing.T) {
	p := NewChannelPublisher(4)
	ch := p.Subscribe("job-1")

	err := p.Publish(Event{JobID: "job-1", Status: TagInvoking, Timestamp: time.Now()})
	require.NoError(t, err)

	select {
	case evt := <-ch:
		assert.Equal(t, TagInvoking, evt.Status)
	case <-time.After(time.Second):
		t.Fatal("expected event on subscribed channel")
	}
}

func TestChannelPublisher_DropsWhenNoSubscriber(t *testing.T) {
	p := NewChannelPublisher(4)
	err := p.Publish(Event{JobID: "no-one-listening", Status: TagComplete})
	require.NoError(t, err)
}

func TestChannelPublisher_DropsWhenBufferFull(t *testing.T) {
	p := NewChannelPublisher(1)
	p.Subscribe("job-1")

	require.NoError(t, p.Publish(Event{JobID: "job-1", Status: "one"}))
	// Buffer capacity is 1; this second publish must not block.
	done := make(chan struct{})
	go func() {
		_ = p.Publish(Event{JobID: "job-1", Status: "two"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked instead of dropping")
	}
}

func TestChannelPublisher_Unsubscribe(t *testing.T) {
	p := NewChannelPublisher(4)
	ch := p.Subscribe("job-1")
	p.Unsubscribe("job-1")

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after Unsubscribe")
}

func TestLogPublisher_NeverErrors(t *testing.T) {
	p := NewLogPublisher(nil)
	name := "agentA"
	err := p.Publish(Event{JobID: "j1", AgentName: &name, Status: TagComplete})
	require.NoError(t, err)
}
