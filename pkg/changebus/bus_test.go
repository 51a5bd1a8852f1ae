package changebus_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/wot-servient/pkg/changebus"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	logrus.Infof("--- TestPublishDeliversToSubscriber ---")
	bus := changebus.New()
	sub := bus.Subscribe(changebus.EventTopic("overheated"), "overheated", 0)
	defer sub.Dispose()

	bus.Publish(changebus.EventTopic("overheated"), "overheated", 42.0)

	select {
	case item := <-sub.C():
		assert.Equal(t, 42.0, item.Value)
		assert.Equal(t, "overheated", item.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for item")
	}
}

func TestPublishDoesNotCrossTopics(t *testing.T) {
	logrus.Infof("--- TestPublishDoesNotCrossTopics ---")
	bus := changebus.New()
	sub := bus.Subscribe(changebus.PropertyTopic("on"), "on", 0)
	defer sub.Dispose()

	bus.Publish(changebus.PropertyTopic("level"), "level", 10)

	select {
	case item := <-sub.C():
		t.Fatalf("unexpected item on unrelated topic: %+v", item)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOverflowDropsOldestAndSetsLost(t *testing.T) {
	logrus.Infof("--- TestOverflowDropsOldestAndSetsLost ---")
	bus := changebus.New()
	sub := bus.Subscribe(changebus.PropertyTopic("level"), "level", 2)
	defer sub.Dispose()

	bus.Publish(changebus.PropertyTopic("level"), "level", 1)
	bus.Publish(changebus.PropertyTopic("level"), "level", 2)
	bus.Publish(changebus.PropertyTopic("level"), "level", 3)

	assert.True(t, sub.Lost())
	assert.False(t, sub.Lost(), "Lost() should clear after being read")

	first := <-sub.C()
	second := <-sub.C()
	assert.Equal(t, 2, first.Value)
	assert.Equal(t, 3, second.Value)
}

func TestDisposeIsIdempotentAndClosesChannel(t *testing.T) {
	logrus.Infof("--- TestDisposeIsIdempotentAndClosesChannel ---")
	bus := changebus.New()
	sub := bus.Subscribe(changebus.TopicTDChange, "", 0)

	sub.Dispose()
	sub.Dispose() // must not panic

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.Equal(t, 0, bus.SubscriberCount(changebus.TopicTDChange))
}

func TestCloseDisposesAllSubscribers(t *testing.T) {
	logrus.Infof("--- TestCloseDisposesAllSubscribers ---")
	bus := changebus.New()
	s1 := bus.Subscribe(changebus.PropertyTopic("on"), "on", 0)
	s2 := bus.Subscribe(changebus.EventTopic("overheated"), "overheated", 0)
	require.Equal(t, 1, bus.SubscriberCount(changebus.PropertyTopic("on")))

	bus.Close()

	_, ok1 := <-s1.C()
	_, ok2 := <-s2.C()
	assert.False(t, ok1)
	assert.False(t, ok2)

	// Publishing after Close must not panic even though subscribers are gone.
	bus.Publish(changebus.PropertyTopic("on"), "on", true)
}
