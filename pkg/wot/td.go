package wot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// tdContextHTTP and tdContextHTTPS are the two @context URLs that
// FromDescription recognizes; ToDescription emits tdContextHTTPS.
// validateContext matches each of them by prefix over either the http://
// or the https:// scheme (the scheme leniency of wotpy/td/jsonld/thing.py
// _validate_context).
const (
	tdContextHTTP  = "http://www.w3.org/ns/td"
	tdContextHTTPS = "https://www.w3.org/2019/wot/td/v1"
)

// Interaction @type vocabulary terms (spec §6: "@type containing exactly
// one of Property|Action|Event"), matching wotpy's InteractionTypes.
const (
	typeProperty = "Property"
	typeAction   = "Action"
	typeEvent    = "Event"
)

var kindToType = map[Kind]string{
	KindProperty: typeProperty,
	KindAction:   typeAction,
	KindEvent:    typeEvent,
}

var typeToKind = map[string]Kind{
	typeProperty: KindProperty,
	typeAction:   KindAction,
	typeEvent:    KindEvent,
}

// linkDoc is the wire shape of one entry in an interaction's `link[]`
// array (spec §6: "objects {href, mediaType, rel?}").
type linkDoc struct {
	Href      string `json:"href"`
	MediaType string `json:"mediaType,omitempty"`
	Rel       string `json:"rel,omitempty"`
}

// interactionDoc is the flat wire shape of one Property/Action/Event
// entry in the TD's `interaction[]` array (spec §6), matching
// original_source/wotpy/td/jsonld/interaction.py's JsonLDInteraction
// field set: @type discriminates the kind instead of a map key.
type interactionDoc struct {
	Type       []string               `json:"@type"`
	Name       string                 `json:"name"`
	OutputData map[string]interface{} `json:"outputData,omitempty"`
	InputData  map[string]interface{} `json:"inputData,omitempty"`
	Writable   bool                   `json:"writable,omitempty"`
	Observable bool                   `json:"observable,omitempty"`
	Link       []linkDoc              `json:"link,omitempty"`
}

// kind picks the one InteractionTypes-recognized entry out of Type, the
// same way JsonLDInteraction.interaction_type scans @type for a known
// vocabulary term.
func (d interactionDoc) kind() (Kind, error) {
	for _, t := range d.Type {
		if k, ok := typeToKind[t]; ok {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: interaction %q has no recognized @type", ErrInvalidID, d.Name)
}

// tdDocument is the top-level Thing Description wire shape (spec §6):
// `@context`, `name`, optional `base`, optional `@type`, and a flat
// `interaction[]` array — matching
// original_source/wotpy/td/jsonld/thing.py's JsonLDThingDescription.
// `ID` is additive: spec §6's external wire fields don't name it, but
// the Thing model (spec §3) requires an id and nothing forbids carrying
// it alongside `name`, so it round-trips the identity a remote client
// constructed the TD URL from.
type tdDocument struct {
	Context     interface{}      `json:"@context"`
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name"`
	Base        string           `json:"base,omitempty"`
	Type        interface{}      `json:"@type,omitempty"`
	Interaction []interactionDoc `json:"interaction"`
}

// ToDescription renders t as a Thing Description document (spec §6).
func (t *Thing) ToDescription() ([]byte, error) {
	doc := tdDocument{
		Context:     []string{tdContextHTTPS},
		ID:          t.id,
		Name:        t.title,
		Base:        t.base,
		Interaction: make([]interactionDoc, 0, len(t.Interactions())),
	}
	for _, ia := range t.Interactions() {
		links := make([]linkDoc, 0, len(ia.Forms()))
		for _, f := range ia.Forms() {
			links = append(links, linkDoc{Href: f.Href, MediaType: f.MediaType, Rel: f.Rel})
		}
		id := interactionDoc{
			Type: []string{kindToType[ia.Kind()]},
			Name: ia.Name(),
			Link: links,
		}
		switch ia.Kind() {
		case KindProperty:
			id.OutputData = ia.DataSchema()
			id.Writable = ia.Writable()
			id.Observable = ia.Observable()
		case KindAction:
			id.InputData = ia.InputSchema()
			id.OutputData = ia.OutputSchema()
		case KindEvent:
			id.OutputData = ia.EventSchema()
		}
		doc.Interaction = append(doc.Interaction, id)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FromDescription parses a Thing Description document, round-tripping
// with ToDescription (spec P1). It accepts either @context spelling and
// treats `form` as an alias array key for `link` per interaction entry,
// mirroring wotpy's JsonLDInteraction.link leniency (spec §6: "link[]
// (alias form[] — accept either)").
func FromDescription(data []byte) (*Thing, error) {
	normalized, err := aliasFormToLink(data)
	if err != nil {
		return nil, err
	}
	var doc tdDocument
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("parsing thing description: %w", err)
	}
	if err := validateContext(doc.Context); err != nil {
		return nil, err
	}

	t, err := NewThing(doc.ID, doc.Name, doc.Base)
	if err != nil {
		return nil, err
	}

	for _, entry := range doc.Interaction {
		kind, err := entry.kind()
		if err != nil {
			return nil, err
		}

		var ia *Interaction
		switch kind {
		case KindProperty:
			ia = NewProperty(entry.Name, entry.OutputData, entry.Writable, entry.Observable, nil)
		case KindAction:
			ia = NewAction(entry.Name, entry.InputData, entry.OutputData, nil)
		case KindEvent:
			ia = NewEvent(entry.Name, entry.OutputData)
		}
		if err := bindLinks(ia, entry.Link); err != nil {
			return nil, err
		}
		if err := t.AddInteraction(ia); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func bindLinks(ia *Interaction, links []linkDoc) error {
	for _, l := range links {
		if err := ia.AddForm(Form{Href: l.Href, MediaType: l.MediaType, Rel: l.Rel}); err != nil {
			return err
		}
	}
	return nil
}

// validateContext accepts @context as either a bare string or an array
// of strings (wotpy's own test fixtures use `["https://www.w3.org/..."]`
// rather than a bare string) and requires at least one entry to start
// with one of the two accepted context URLs, over http or https.
func validateContext(context interface{}) error {
	for _, c := range contextEntries(context) {
		for _, want := range []string{tdContextHTTP, tdContextHTTPS} {
			rest := want[strings.Index(want, "://"):]
			if strings.HasPrefix(c, "http"+rest) || strings.HasPrefix(c, "https"+rest) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: unrecognized @context %v", ErrInvalidID, context)
}

func contextEntries(context interface{}) []string {
	switch v := context.(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// aliasFormToLink rewrites a "form" key to "link" on every element of
// the top-level "interaction" array, for TD documents produced by a
// client that followed the alias spelling rather than "link" (spec §6).
// Left untouched if "link" is already present on that entry.
func aliasFormToLink(data []byte) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing thing description: %w", err)
	}
	interactionRaw, ok := raw["interaction"]
	if !ok {
		return data, nil
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(interactionRaw, &entries); err != nil {
		return data, nil
	}

	changed := false
	for i, entry := range entries {
		form, hasForm := entry["form"]
		if !hasForm {
			continue
		}
		if _, hasLink := entry["link"]; !hasLink {
			entry["link"] = form
			changed = true
		}
		delete(entry, "form")
		entries[i] = entry
	}
	if !changed {
		return data, nil
	}

	b, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	raw["interaction"] = b
	return json.Marshal(raw)
}
