package wot

// Form describes one way to reach an Interaction: a protocol binding, the
// URI (possibly relative to the owning Thing's base), and the media type
// of the payload. Forms are unique within an Interaction by (Href,
// MediaType) (I3). Grounded on original_source wotpy/td/jsonld/form.py,
// whose href/mediaType/rel properties are kept verbatim; `Protocol` is
// an added in-memory label for the wire binding (ws, wss, coap). It is
// not serialized, FromDescription does not set it, and the WS client's
// form selection goes by the resolved href's scheme, not by this field.
type Form struct {
	Protocol  string `json:"-"`
	Href      string `json:"href"`
	MediaType string `json:"mediaType,omitempty"`
	Rel       string `json:"rel,omitempty"`
}

func formKey(href, mediaType string) string {
	return href + "\x00" + mediaType
}
