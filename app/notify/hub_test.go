package notify

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubTopicDelivery(t *testing.T) {
	h := NewHub(16, nil, zerolog.Nop())
	defer h.Close()

	statusCh, cancel := h.Subscribe(TopicStatus, 4)
	defer cancel()
	otherCh, cancelOther := h.Subscribe(TopicProgress, 4)
	defer cancelOther()

	h.Publish(Event{Topic: TopicStatus, CommandID: 7, Payload: "x"})

	ev := waitFor(t, statusCh)
	if ev.Topic != TopicStatus || ev.CommandID != 7 {
		t.Errorf("event = %+v", ev)
	}
	select {
	case ev := <-otherCh:
		t.Errorf("progress subscriber got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCommandChannelGetsAllTopics(t *testing.T) {
	h := NewHub(16, nil, zerolog.Nop())
	defer h.Close()

	cmdCh, cancel := h.SubscribeCommand(42, 8)
	defer cancel()

	h.Publish(Event{Topic: TopicStatus, CommandID: 42, Payload: "a"})
	h.Publish(Event{Topic: TopicJudgment, CommandID: 42, Payload: "b"})
	h.Publish(Event{Topic: TopicJudgment, CommandID: 99, Payload: "c"})

	first := waitFor(t, cmdCh)
	second := waitFor(t, cmdCh)
	if first.Topic != TopicStatus || second.Topic != TopicJudgment {
		t.Errorf("events = %+v, %+v", first, second)
	}
	select {
	case ev := <-cmdCh:
		t.Errorf("got event for another command: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(4, nil, zerolog.Nop())
	defer h.Close()

	// subscriber with a single-slot buffer that is never drained
	_, cancel := h.Subscribe(TopicStatus, 1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(Event{Topic: TopicStatus, Payload: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(16, nil, zerolog.Nop())
	defer h.Close()

	ch, cancel := h.Subscribe(TopicStatus, 4)
	h.Publish(Event{Topic: TopicStatus, Payload: "first"})
	waitFor(t, ch)

	cancel()
	h.Publish(Event{Topic: TopicStatus, Payload: "second"})
	select {
	case ev := <-ch:
		t.Errorf("got event after unsubscribe: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
