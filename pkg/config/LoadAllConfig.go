package config

import (
	"flag"

	"github.com/sirupsen/logrus"
)

// LoadAllConfig is a helper that determines the servient's configuration
// from the commandline and its YAML config file in one call:
//  1. parse -c configFile and -a homeFolder from args (nil to skip)
//  2. build defaults rooted at homeFolder
//  3. load configFile on top of the defaults, if present
//
// Adapted from the teacher's LoadAllConfig.go: same flag-then-file
// shape, with the client-config second pass dropped (this repository has
// no per-client config file — the servient is the only consumer of its
// own config).
func LoadAllConfig(args []string, homeFolder string) (*Config, error) {
	configFile := ""

	if args != nil {
		fs := flag.NewFlagSet("servient", flag.ContinueOnError)
		fs.StringVar(&configFile, "c", configFile, "Configuration file")
		fs.StringVar(&homeFolder, "a", homeFolder, "Application home folder")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	cfg := New(homeFolder)
	if err := cfg.Load(configFile); err != nil {
		logrus.Errorf("config: failed to load '%s': %s", configFile, err)
		return cfg, err
	}
	return cfg, nil
}
