package wot

import (
	"fmt"
	"net/url"
	"sync"
)

// Thing is the in-process model of a single Web of Thing: an identity, an
// optional base URI that relative Forms resolve against, and its
// Properties/Actions/Events keyed by name. All mutation goes through the
// methods below, which hold thingMutex for the duration — grounded on the
// teacher's ThingTD, whose updateMutex sync.RWMutex serializes every
// Add/Update accessor the same way.
type Thing struct {
	id    string
	title string
	base  string

	thingMutex sync.RWMutex
	order      []string
	byName     map[string]*Interaction
	bySlug     map[string]string
}

// NewThing validates id as a syntactically valid IRI with a scheme (I1)
// and returns an empty Thing.
func NewThing(id, title, base string) (*Thing, error) {
	if !isValidThingID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return &Thing{
		id:     id,
		title:  title,
		base:   base,
		byName: make(map[string]*Interaction),
		bySlug: make(map[string]string),
	}, nil
}

// isValidThingID reports whether id contains no raw whitespace and
// parses as an absolute IRI with a non-empty scheme; net/url.Parse
// itself rejects malformed percent-escapes. net/url.Parse accepts far
// more than RFC 3987 IRIs, but no IRI-specific validator is used (there
// is none among the example deps).
func isValidThingID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return false
		}
	}
	u, err := url.Parse(id)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Scheme != ""
}

func (t *Thing) ID() string    { return t.id }
func (t *Thing) Title() string { return t.title }
func (t *Thing) Base() string  { return t.base }

// AddInteraction registers ia under its own name, rejecting both an
// invalid name and a name whose slug collides with an existing one (I2).
func (t *Thing) AddInteraction(ia *Interaction) error {
	name := ia.Name()
	if !isValidInteractionName(name) {
		return fmt.Errorf("%w: interaction name %q", ErrInvalidID, name)
	}
	slug := slugify(name)

	t.thingMutex.Lock()
	defer t.thingMutex.Unlock()
	if existing, ok := t.bySlug[slug]; ok {
		return fmt.Errorf("%w: %q collides with existing %q", ErrDuplicateName, name, existing)
	}
	t.byName[name] = ia
	t.bySlug[slug] = name
	t.order = append(t.order, name)
	return nil
}

// RemoveInteraction deregisters the interaction named name, if present.
func (t *Thing) RemoveInteraction(name string) {
	t.thingMutex.Lock()
	defer t.thingMutex.Unlock()
	if _, ok := t.byName[name]; !ok {
		return
	}
	delete(t.byName, name)
	delete(t.bySlug, slugify(name))
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// FindInteraction looks up an interaction by its stored name, falling
// back to a slug-form match (I2: slugs are unique, so at most one
// interaction's slug can equal slugify(name)) when no interaction is
// stored under name verbatim. ErrNotFound is returned rather than a bare
// nil so callers can errors.Is it straight through to the wire error
// taxonomy.
func (t *Thing) FindInteraction(name string) (*Interaction, error) {
	t.thingMutex.RLock()
	defer t.thingMutex.RUnlock()
	if ia, ok := t.byName[name]; ok {
		return ia, nil
	}
	if stored, ok := t.bySlug[slugify(name)]; ok {
		return t.byName[stored], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Interactions returns all registered interactions in registration order.
func (t *Thing) Interactions() []*Interaction {
	t.thingMutex.RLock()
	defer t.thingMutex.RUnlock()
	out := make([]*Interaction, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byName[name])
	}
	return out
}

// InteractionsOfKind filters Interactions by Kind, preserving order.
func (t *Thing) InteractionsOfKind(kind Kind) []*Interaction {
	all := t.Interactions()
	out := make([]*Interaction, 0, len(all))
	for _, ia := range all {
		if ia.Kind() == kind {
			out = append(out, ia)
		}
	}
	return out
}

// ResolveFormURI resolves href against the Thing's base, returning href
// unchanged if it is already absolute or base is empty.
func (t *Thing) ResolveFormURI(href string) string {
	u, err := url.Parse(href)
	if err == nil && u.IsAbs() {
		return href
	}
	if t.base == "" {
		return href
	}
	base, err := url.Parse(t.base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
