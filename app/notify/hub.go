package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisChannelPrefix = "satguard:"

// Hub fans lifecycle and judgment events out to in-process subscribers
// and mirrors them to redis pub/sub for external observers. Delivery is
// best-effort: publishing never blocks the judgment path, and a
// subscriber that falls behind loses events rather than backpressuring
// the producer.
type Hub struct {
	mu        sync.RWMutex
	byTopic   map[string][]chan Event
	byCommand map[uint][]chan Event

	queue   chan Event
	done    chan struct{}
	closed  sync.Once
	dropped atomic.Int64

	rdb *redis.Client // optional mirror
	log zerolog.Logger
}

func NewHub(queueSize int, rdb *redis.Client, log zerolog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	h := &Hub{
		byTopic:   make(map[string][]chan Event),
		byCommand: make(map[uint][]chan Event),
		queue:     make(chan Event, queueSize),
		done:      make(chan struct{}),
		rdb:       rdb,
		log:       log,
	}
	go h.dispatch()
	return h
}

// Publish enqueues an event for fan-out. When the internal queue is full
// the event is dropped and counted.
func (h *Hub) Publish(ev Event) {
	select {
	case h.queue <- ev:
	default:
		n := h.dropped.Add(1)
		h.log.Warn().Str("topic", ev.Topic).Int64("dropped", n).Msg("notify queue full, event dropped")
	}
}

// Subscribe registers a channel for one topic. The returned cancel func
// must be called when the observer goes away.
func (h *Hub) Subscribe(topic string, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(buffer, 1))
	h.mu.Lock()
	h.byTopic[topic] = append(h.byTopic[topic], ch)
	h.mu.Unlock()
	return ch, func() { h.unsubscribeTopic(topic, ch) }
}

// SubscribeCommand registers a channel receiving every event for one
// command, regardless of topic.
func (h *Hub) SubscribeCommand(commandID uint, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(buffer, 1))
	h.mu.Lock()
	h.byCommand[commandID] = append(h.byCommand[commandID], ch)
	h.mu.Unlock()
	return ch, func() { h.unsubscribeCommand(commandID, ch) }
}

func (h *Hub) Dropped() int64 { return h.dropped.Load() }

func (h *Hub) Close() {
	h.closed.Do(func() { close(h.done) })
}

func (h *Hub) dispatch() {
	for {
		select {
		case <-h.done:
			return
		case ev := <-h.queue:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	h.mu.RLock()
	topicSubs := h.byTopic[ev.Topic]
	var cmdSubs []chan Event
	if ev.CommandID != 0 {
		cmdSubs = h.byCommand[ev.CommandID]
	}
	h.mu.RUnlock()

	for _, ch := range topicSubs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
	for _, ch := range cmdSubs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}

	if h.rdb != nil {
		h.mirror(ev)
	}
}

func (h *Hub) mirror(ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("topic", ev.Topic).Msg("event marshal failed")
		return
	}
	ctx := context.Background()
	if err := h.rdb.Publish(ctx, redisChannelPrefix+ev.Topic, body).Err(); err != nil {
		h.log.Warn().Err(err).Str("topic", ev.Topic).Msg("redis mirror publish failed")
		return
	}
	if ev.CommandID != 0 {
		channel := fmt.Sprintf("%scommand:%d", redisChannelPrefix, ev.CommandID)
		if err := h.rdb.Publish(ctx, channel, body).Err(); err != nil {
			h.log.Warn().Err(err).Str("channel", channel).Msg("redis mirror publish failed")
		}
	}
}

func (h *Hub) unsubscribeTopic(topic string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.byTopic[topic]
	for i, c := range subs {
		if c == ch {
			h.byTopic[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

func (h *Hub) unsubscribeCommand(commandID uint, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.byCommand[commandID]
	for i, c := range subs {
		if c == ch {
			h.byCommand[commandID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}
