package changebus

import "sync"

// Bus fans out Items published under a topic to every live Subscription
// on that topic. One Bus is owned per Thing by its ExposedThing, the
// same one-registry-per-owner shape as the teacher's
// `ThingStore{tdMap, tdMapMutex}` but keyed by topic instead of Thing id.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{topics: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a new Subscription on topic. name is the
// property/event name the topic refers to, echoed back on the
// Subscription for convenience; it is not used for routing. queueSize
// is the bounded buffer depth; pass 0 for DefaultQueueSize.
func (b *Bus) Subscribe(topic, name string, queueSize int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.topics[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.topics[topic] = set
	}

	var sub *Subscription
	sub = newSubscription(topic, name, queueSize, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.topics[topic]; ok {
			delete(s, sub)
			if len(s) == 0 {
				delete(b.topics, topic)
			}
		}
	})
	set[sub] = struct{}{}
	return sub
}

// Publish delivers value to every live Subscription on topic. It never
// blocks: each Subscription's own bounded queue absorbs it, dropping the
// oldest entry on overflow (spec §5).
func (b *Bus) Publish(topic, name string, value interface{}) {
	b.mu.RLock()
	subs := b.topics[topic]
	targets := make([]*Subscription, 0, len(subs))
	for s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	item := Item{Topic: topic, Name: name, Value: value}
	for _, s := range targets {
		s.push(item)
	}
}

// SubscriberCount returns the number of live subscriptions on topic,
// chiefly for tests and diagnostics.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close disposes every live subscription across all topics. Called when
// the owning Thing is destroyed, so no subscriber is left reading from a
// channel that will never receive again.
func (b *Bus) Close() {
	b.mu.RLock()
	all := make([]*Subscription, 0)
	for _, set := range b.topics {
		for s := range set {
			all = append(all, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range all {
		s.Dispose()
	}
}
