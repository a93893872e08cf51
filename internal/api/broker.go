package api

import (
	"sync"

	"uavpath/internal/model"
)

type EventBroker interface {
	Subscribe(topic string) chan model.RunEvent
	Unsubscribe(topic string, ch chan model.RunEvent)
	Publish(topic string, evt model.RunEvent)
}

// Broker is the in-memory EventBroker. Slow subscribers drop events.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan model.RunEvent]struct{} // topic -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan model.RunEvent]struct{}{}}
}

func (b *Broker) Subscribe(topic string) chan model.RunEvent {
	ch := make(chan model.RunEvent, 8)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[chan model.RunEvent]struct{}{}
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan model.RunEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[topic]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, topic)
	}
	close(ch)
}

func (b *Broker) Publish(topic string, evt model.RunEvent) {
	b.mu.Lock()
	m := b.subs[topic]
	for ch := range m {
		select { case ch <- evt: default: }
	}
	b.mu.Unlock()
}
