package wsclient

import (
	"net/url"

	"github.com/wostzone/wot-servient/pkg/wot"
)

// pickForm chooses the Form used to reach ia, preferring wss over ws
// (spec §4.6's "pick_form"). Grounded on
// original_source/wotpy/protocols/ws/client.py's `_pick_form`, which
// scans the candidate Forms twice (wss first, then ws) rather than
// sorting them, since there are normally at most a couple of Forms per
// Interaction.
func pickForm(th *wot.Thing, ia *wot.Interaction) (string, error) {
	forms := ia.Forms()
	if resolved, ok := pickScheme(th, forms, "wss"); ok {
		return resolved, nil
	}
	if resolved, ok := pickScheme(th, forms, "ws"); ok {
		return resolved, nil
	}
	return "", wot.ErrNoForm
}

func pickScheme(th *wot.Thing, forms []wot.Form, scheme string) (string, bool) {
	for _, f := range forms {
		resolved := th.ResolveFormURI(f.Href)
		u, err := url.Parse(resolved)
		if err != nil {
			continue
		}
		if u.Scheme == scheme {
			return resolved, true
		}
	}
	return "", false
}

// pickBaseForm derives the on_td_change subscription URL from the
// Thing's base URI, the same way wotpy's on_td_change has no per-
// interaction Form to pick from and instead rewrites the base's scheme.
func pickBaseForm(th *wot.Thing) (string, error) {
	base := th.Base()
	if base == "" {
		return "", wot.ErrNoForm
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", wot.ErrNoForm
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", wot.ErrNoForm
	}
	return u.String(), nil
}
