// Package changebus implements the observable change bus that sits
// between an ExposedThing and its subscribers: Thing Description
// changes, Property changes and Events all flow through it as
// hot-published Items, fanned out to per-subscriber bounded queues.
package changebus

// Item is one published value together with the topic it was published
// under and, for property/event topics, the interaction name.
type Item struct {
	Topic string
	Name  string
	Value interface{}
}

// Topic naming (spec §4.2): one well-known topic for Thing Description
// changes, and one dynamically-named topic per property/event.
const (
	TopicTDChange = "td_change"

	propertyPrefix = "property:"
	eventPrefix    = "event:"
)

// PropertyTopic returns the topic name for a Property's changes.
func PropertyTopic(name string) string { return propertyPrefix + name }

// EventTopic returns the topic name for an Event's emissions.
func EventTopic(name string) string { return eventPrefix + name }
