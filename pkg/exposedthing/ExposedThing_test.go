package exposedthing_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/wot-servient/pkg/exposedthing"
	"github.com/wostzone/wot-servient/pkg/wot"
)

const testThingID = "https://example.com/things/lamp-1"

func createTestExposedThing(t *testing.T) *exposedthing.ExposedThing {
	th, err := wot.NewThing(testThingID, "Test Lamp", "")
	require.NoError(t, err)
	et := exposedthing.NewExposedThing(th)

	require.NoError(t, et.AddInteraction(wot.NewProperty("on", nil, true, true, false)))
	require.NoError(t, et.AddInteraction(wot.NewProperty("fixed", nil, false, false, "factory")))
	require.NoError(t, et.AddInteraction(wot.NewAction("toggle", nil, nil, nil)))
	require.NoError(t, et.AddInteraction(wot.NewEvent("overheated", nil)))
	return et
}

func TestNewExposedThing(t *testing.T) {
	logrus.Infof("--- TestNewExposedThing ---")
	et := createTestExposedThing(t)
	require.NotNil(t, et)
	assert.Equal(t, testThingID, et.ThingDescription().ID())
	et.Destroy()
}

func TestWriteAndReadProperty(t *testing.T) {
	logrus.Infof("--- TestWriteAndReadProperty ---")
	et := createTestExposedThing(t)
	defer et.Destroy()

	require.NoError(t, et.WriteProperty("on", true, false))
	out, err := et.ReadProperty("on")
	require.NoError(t, err)
	assert.Equal(t, true, out.Value)
}

func TestExternalWriteRejectedOnNonWritableProperty(t *testing.T) {
	logrus.Infof("--- TestExternalWriteRejectedOnNonWritableProperty ---")
	et := createTestExposedThing(t)
	defer et.Destroy()

	err := et.WriteProperty("fixed", "hacked", true)
	assert.ErrorIs(t, err, wot.ErrNotWritable)

	// Internal writes bypass the writable check.
	err = et.WriteProperty("fixed", "updated", false)
	assert.NoError(t, err)
}

func TestObservePropertyReceivesWrittenValue(t *testing.T) {
	logrus.Infof("--- TestObservePropertyReceivesWrittenValue ---")
	et := createTestExposedThing(t)
	defer et.Destroy()

	sub, err := et.ObserveProperty("on")
	require.NoError(t, err)
	defer sub.Dispose()

	require.NoError(t, et.WriteProperty("on", true, false))

	select {
	case item := <-sub.C():
		assert.Equal(t, true, item.Value)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for property change")
	}
}

func TestObserveNonObservablePropertyFails(t *testing.T) {
	logrus.Infof("--- TestObserveNonObservablePropertyFails ---")
	et := createTestExposedThing(t)
	defer et.Destroy()

	_, err := et.ObserveProperty("fixed")
	assert.ErrorIs(t, err, wot.ErrNotObservable)
}

func TestEmitEventDeliversToSubscriber(t *testing.T) {
	logrus.Infof("--- TestEmitEventDeliversToSubscriber ---")
	et := createTestExposedThing(t)
	defer et.Destroy()

	sub, err := et.SubscribeEvent("overheated")
	require.NoError(t, err)
	defer sub.Dispose()

	require.NoError(t, et.EmitEvent("overheated", 99.5))

	select {
	case item := <-sub.C():
		assert.Equal(t, 99.5, item.Value)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEmitEventUnknownNameFails(t *testing.T) {
	logrus.Infof("--- TestEmitEventUnknownNameFails ---")
	et := createTestExposedThing(t)
	defer et.Destroy()

	err := et.EmitEvent("nosuch", nil)
	assert.ErrorIs(t, err, wot.ErrNotFound)
}

func TestInvokeActionRunsBoundHandler(t *testing.T) {
	logrus.Infof("--- TestInvokeActionRunsBoundHandler ---")
	et := createTestExposedThing(t)
	defer et.Destroy()

	require.NoError(t, et.SetActionHandler("toggle", func(ctx context.Context, params interface{}) (interface{}, error) {
		return "toggled", nil
	}))

	out, err := et.InvokeAction(context.Background(), "toggle", nil)
	require.NoError(t, err)
	assert.Equal(t, "toggled", out)
}

func TestInvokeActionNoHandlerFails(t *testing.T) {
	logrus.Infof("--- TestInvokeActionNoHandlerFails ---")
	et := createTestExposedThing(t)
	defer et.Destroy()

	_, err := et.InvokeAction(context.Background(), "toggle", nil)
	assert.ErrorIs(t, err, wot.ErrNoHandler)
}

func TestInvokeActionRespectsContextCancellation(t *testing.T) {
	logrus.Infof("--- TestInvokeActionRespectsContextCancellation ---")
	et := createTestExposedThing(t)
	defer et.Destroy()

	blocked := make(chan struct{})
	require.NoError(t, et.SetActionHandler("toggle", func(ctx context.Context, params interface{}) (interface{}, error) {
		<-blocked
		return nil, nil
	}))
	defer close(blocked)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := et.InvokeAction(ctx, "toggle", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAddInteractionEmitsTDChange(t *testing.T) {
	logrus.Infof("--- TestAddInteractionEmitsTDChange ---")
	th, err := wot.NewThing(testThingID, "", "")
	require.NoError(t, err)
	et := exposedthing.NewExposedThing(th)
	defer et.Destroy()

	sub := et.SubscribeTDChange()
	defer sub.Dispose()

	require.NoError(t, et.AddInteraction(wot.NewProperty("level", nil, true, true, 0)))

	select {
	case item := <-sub.C():
		ev, ok := item.Value.(wot.TDChangeEvent)
		require.True(t, ok, "expected a wot.TDChangeEvent, got %T", item.Value)
		assert.Equal(t, wot.KindProperty, ev.TDChangeType)
		assert.Equal(t, wot.TDChangeAdd, ev.Method)
		assert.Equal(t, "level", ev.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for td_change")
	}
}
