package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wostzone/wot-servient/pkg/wot"
)

// LoadThingsFromFolder reads every *.json Thing Description in dir and
// decodes each with wot.FromDescription, the servient's static catalogue
// of Things to expose at startup (spec's "static catalogue", as opposed
// to runtime discovery, which is out of scope). A missing dir is not an
// error: a servient may start with no Things exposed and have them added
// later by a collaborator. Grounded on thane's talents.Loader.Load, whose
// ReadDir-then-sort-then-decode shape this mirrors.
func LoadThingsFromFolder(dir string) ([]*wot.Thing, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read things dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	things := make([]*wot.Thing, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return nil, fmt.Errorf("read thing description %s: %w", f, err)
		}
		th, err := wot.FromDescription(data)
		if err != nil {
			return nil, fmt.Errorf("parse thing description %s: %w", f, err)
		}
		things = append(things, th)
	}
	return things, nil
}
