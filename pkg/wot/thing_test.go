package wot_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/wot-servient/pkg/wot"
)

const testThingID = "https://example.com/things/lamp-1"

func createTestThing(t *testing.T) *wot.Thing {
	th, err := wot.NewThing(testThingID, "Test Lamp", "https://example.com/things/lamp-1/")
	require.NoError(t, err)
	return th
}

func TestNewThingRejectsInvalidID(t *testing.T) {
	logrus.Infof("--- TestNewThingRejectsInvalidID ---")
	_, err := wot.NewThing("not-an-iri", "", "")
	assert.ErrorIs(t, err, wot.ErrInvalidID)

	_, err = wot.NewThing("", "", "")
	assert.ErrorIs(t, err, wot.ErrInvalidID)
}

func TestAddInteractionRejectsDuplicateSlug(t *testing.T) {
	logrus.Infof("--- TestAddInteractionRejectsDuplicateSlug ---")
	th := createTestThing(t)

	require.NoError(t, th.AddInteraction(wot.NewProperty("on_off", nil, true, true, false)))
	err := th.AddInteraction(wot.NewProperty("On-Off", nil, true, true, false))
	assert.ErrorIs(t, err, wot.ErrDuplicateName)
}

func TestAddInteractionRejectsInvalidName(t *testing.T) {
	logrus.Infof("--- TestAddInteractionRejectsInvalidName ---")
	th := createTestThing(t)
	err := th.AddInteraction(wot.NewProperty("bad name!", nil, true, true, nil))
	assert.ErrorIs(t, err, wot.ErrInvalidID)
}

func TestFindInteractionNotFound(t *testing.T) {
	logrus.Infof("--- TestFindInteractionNotFound ---")
	th := createTestThing(t)
	_, err := th.FindInteraction("missing")
	assert.ErrorIs(t, err, wot.ErrNotFound)
}

func TestFindInteractionMatchesSlugForm(t *testing.T) {
	logrus.Infof("--- TestFindInteractionMatchesSlugForm ---")
	th := createTestThing(t)
	require.NoError(t, th.AddInteraction(wot.NewProperty("On_Off", nil, true, true, false)))

	ia, err := th.FindInteraction("on-off")
	require.NoError(t, err)
	assert.Equal(t, "On_Off", ia.Name())
}

func TestRemoveInteraction(t *testing.T) {
	logrus.Infof("--- TestRemoveInteraction ---")
	th := createTestThing(t)
	require.NoError(t, th.AddInteraction(wot.NewProperty("level", nil, true, false, 0)))

	th.RemoveInteraction("level")
	_, err := th.FindInteraction("level")
	assert.ErrorIs(t, err, wot.ErrNotFound)

	// Re-adding after removal must succeed — slug bookkeeping should be cleared too.
	require.NoError(t, th.AddInteraction(wot.NewProperty("level", nil, true, false, 0)))
}

func TestInteractionsOfKindPreservesOrder(t *testing.T) {
	logrus.Infof("--- TestInteractionsOfKindPreservesOrder ---")
	th := createTestThing(t)
	require.NoError(t, th.AddInteraction(wot.NewProperty("b", nil, false, false, nil)))
	require.NoError(t, th.AddInteraction(wot.NewProperty("a", nil, false, false, nil)))
	require.NoError(t, th.AddInteraction(wot.NewAction("toggle", nil, nil, nil)))

	props := th.InteractionsOfKind(wot.KindProperty)
	require.Len(t, props, 2)
	assert.Equal(t, "b", props[0].Name())
	assert.Equal(t, "a", props[1].Name())
}

func TestResolveFormURI(t *testing.T) {
	logrus.Infof("--- TestResolveFormURI ---")
	th := createTestThing(t)
	assert.Equal(t, "https://example.com/things/lamp-1/properties/on", th.ResolveFormURI("properties/on"))
	assert.Equal(t, "wss://other.example.com/ws", th.ResolveFormURI("wss://other.example.com/ws"))
}

func TestAddFormRejectsDuplicate(t *testing.T) {
	logrus.Infof("--- TestAddFormRejectsDuplicate ---")
	ia := wot.NewProperty("on", nil, true, true, false)
	require.NoError(t, ia.AddForm(wot.Form{Href: "properties/on", MediaType: "application/json"}))
	err := ia.AddForm(wot.Form{Href: "properties/on", MediaType: "application/json"})
	assert.ErrorIs(t, err, wot.ErrDuplicateForm)

	// Same href, different media type is a distinct form.
	require.NoError(t, ia.AddForm(wot.Form{Href: "properties/on", MediaType: "application/cbor"}))
	assert.Len(t, ia.Forms(), 2)
}
