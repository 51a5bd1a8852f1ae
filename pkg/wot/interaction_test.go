package wot_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/wostzone/wot-servient/pkg/wot"
)

func TestPropertySetValueReturnsStoredValue(t *testing.T) {
	logrus.Infof("--- TestPropertySetValueReturnsStoredValue ---")
	ia := wot.NewProperty("level", nil, true, true, 0)
	assert.Equal(t, 0, ia.Value())

	got := ia.SetValue(42)
	assert.Equal(t, 42, got)
	assert.Equal(t, 42, ia.Value())
}

func TestActionHandlerRoundTrip(t *testing.T) {
	logrus.Infof("--- TestActionHandlerRoundTrip ---")
	ia := wot.NewAction("toggle", nil, nil, nil)
	assert.Nil(t, ia.Handler())

	ia.SetHandler(func(ctx context.Context, params interface{}) (interface{}, error) {
		return "toggled", nil
	})
	require := ia.Handler()
	out, err := require(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, "toggled", out)
}

func TestRemoveFormIsIdempotent(t *testing.T) {
	logrus.Infof("--- TestRemoveFormIsIdempotent ---")
	ia := wot.NewEvent("overheated", nil)
	_ = ia.AddForm(wot.Form{Href: "events/overheated", MediaType: "application/json"})

	ia.RemoveForm("events/overheated", "application/json")
	assert.Empty(t, ia.Forms())

	// Removing again must not panic.
	ia.RemoveForm("events/overheated", "application/json")
}
