package wot

import (
	"regexp"
	"strings"
)

// interactionNamePattern is the allowed character set for interaction
// names (spec §3): [A-Za-z0-9_-]+.
var interactionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var slugCollapse = regexp.MustCompile(`-+`)
var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// slugify normalizes a name for duplicate detection (I2): lowercased,
// any run of non-alphanumeric characters becomes a single hyphen, and
// leading/trailing hyphens are trimmed. Two names that differ only in
// case or in underscore-vs-hyphen separators slugify to the same value.
func slugify(name string) string {
	lower := strings.ToLower(name)
	dashed := slugInvalid.ReplaceAllString(lower, "-")
	collapsed := slugCollapse.ReplaceAllString(dashed, "-")
	return strings.Trim(collapsed, "-")
}

func isValidInteractionName(name string) bool {
	return name != "" && interactionNamePattern.MatchString(name)
}

// Slug exposes the same normalization used for interaction-name
// collision detection (I2) for callers outside this package that need a
// stable path segment derived from a Thing id — e.g. the WS server's
// `ws://host:port/<thing-path>` URL layout.
func Slug(name string) string {
	return slugify(name)
}
