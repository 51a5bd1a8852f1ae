package consumedthing_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/wot-servient/pkg/consumedthing"
	"github.com/wostzone/wot-servient/pkg/wot"
)

const testConsumedThingID = "https://example.com/things/lamp-1"

func createTestConsumedThing(t *testing.T) *consumedthing.ConsumedThing {
	th, err := wot.NewThing(testConsumedThingID, "Test Lamp", "")
	require.NoError(t, err)
	require.NoError(t, th.AddInteraction(wot.NewProperty("on", nil, true, true, false)))
	require.NoError(t, th.AddInteraction(wot.NewAction("toggle", nil, nil, nil)))
	require.NoError(t, th.AddInteraction(wot.NewEvent("overheated", nil)))
	return consumedthing.NewConsumedThing(th)
}

func TestNewConsumedThing(t *testing.T) {
	logrus.Infof("--- TestNewConsumedThing ---")
	cThing := createTestConsumedThing(t)
	require.NotNil(t, cThing)
	assert.Equal(t, testConsumedThingID, cThing.ThingDescription().ID())
}

func TestHandleEventUpdatesPropertyCache(t *testing.T) {
	logrus.Infof("--- TestHandleEventUpdatesPropertyCache ---")
	cThing := createTestConsumedThing(t)

	raw, _ := json.Marshal(true)
	cThing.HandleEvent("on", raw)

	out, err := cThing.ReadProperty("on")
	require.NoError(t, err)
	assert.Equal(t, true, out.Value)
}

func TestObservePropertyNotifiesHandler(t *testing.T) {
	logrus.Infof("--- TestObservePropertyNotifiesHandler ---")
	cThing := createTestConsumedThing(t)

	var gotName string
	var gotValue interface{}
	err := cThing.ObserveProperty("on", func(name string, data *wot.InteractionOutput) {
		gotName = name
		gotValue = data.Value
	})
	require.NoError(t, err)

	raw, _ := json.Marshal(true)
	cThing.HandleEvent("on", raw)

	assert.Equal(t, "on", gotName)
	assert.Equal(t, true, gotValue)
}

func TestObservePropertyRejectsSecondSubscription(t *testing.T) {
	logrus.Infof("--- TestObservePropertyRejectsSecondSubscription ---")
	cThing := createTestConsumedThing(t)

	noop := func(name string, data *wot.InteractionOutput) {}
	require.NoError(t, cThing.ObserveProperty("on", noop))
	err := cThing.ObserveProperty("on", noop)
	assert.Error(t, err)
}

func TestUnobservePropertyAllowsResubscribe(t *testing.T) {
	logrus.Infof("--- TestUnobservePropertyAllowsResubscribe ---")
	cThing := createTestConsumedThing(t)

	noop := func(name string, data *wot.InteractionOutput) {}
	require.NoError(t, cThing.ObserveProperty("on", noop))
	cThing.UnobserveProperty("on")
	assert.NoError(t, cThing.ObserveProperty("on", noop))
}

func TestSubscribeEventNotifiesHandler(t *testing.T) {
	logrus.Infof("--- TestSubscribeEventNotifiesHandler ---")
	cThing := createTestConsumedThing(t)

	var gotValue interface{}
	err := cThing.SubscribeEvent("overheated", func(name string, data *wot.InteractionOutput) {
		gotValue = data.Value
	})
	require.NoError(t, err)

	raw, _ := json.Marshal(101.5)
	cThing.HandleEvent("overheated", raw)

	assert.Equal(t, 101.5, gotValue)
}

func TestInvokeActionUsesHook(t *testing.T) {
	logrus.Infof("--- TestInvokeActionUsesHook ---")
	cThing := createTestConsumedThing(t)
	cThing.InvokeActionHook = func(ctx context.Context, name string, params interface{}) (interface{}, error) {
		return "ok", nil
	}

	out, err := cThing.InvokeAction(context.Background(), "toggle", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestInvokeActionWithoutHookFails(t *testing.T) {
	logrus.Infof("--- TestInvokeActionWithoutHookFails ---")
	cThing := createTestConsumedThing(t)
	_, err := cThing.InvokeAction(context.Background(), "toggle", nil)
	assert.Error(t, err)
}

func TestWritePropertyUsesHook(t *testing.T) {
	logrus.Infof("--- TestWritePropertyUsesHook ---")
	cThing := createTestConsumedThing(t)

	var gotValue interface{}
	cThing.WritePropertyHook = func(ctx context.Context, name string, value interface{}) error {
		gotValue = value
		return nil
	}

	require.NoError(t, cThing.WriteProperty(context.Background(), "on", true))
	assert.Equal(t, true, gotValue)
}

func TestStopClearsSubscriptions(t *testing.T) {
	logrus.Infof("--- TestStopClearsSubscriptions ---")
	cThing := createTestConsumedThing(t)
	noop := func(name string, data *wot.InteractionOutput) {}
	require.NoError(t, cThing.ObserveProperty("on", noop))
	require.NoError(t, cThing.SubscribeEvent("overheated", noop))

	cThing.Stop()

	// Re-subscribing after Stop must succeed since the old entries are gone.
	require.NoError(t, cThing.ObserveProperty("on", noop))
	require.NoError(t, cThing.SubscribeEvent("overheated", noop))
}
