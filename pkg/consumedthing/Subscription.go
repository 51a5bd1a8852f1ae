// Package consumedthing with Subscription definitions for consumed thing users
package consumedthing

import "github.com/wostzone/wot-servient/pkg/wot"

const (
	SubscriptionTypeEvent    = "event"
	SubscriptionTypeProperty = "property"
)

// Subscription describes a local observer of a remote property's change
// notifications or a remote event's emissions. Only one Subscription per
// name is allowed at a time (I: a second ObserveProperty/SubscribeEvent
// for the same name fails rather than replacing the first), matching
// the teacher's single-subscriber-per-name Subscription.
type Subscription struct {
	SubType     string
	Name        string
	interaction *wot.Interaction
	Handler     func(name string, data *wot.InteractionOutput)
}
