// Command servient runs a standalone Web of Thing servient: it loads its
// configuration and static Thing catalogue, exposes each Thing over the
// WS and CoAP protocol bindings, and serves until interrupted.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/wot-servient/pkg/config"
	"github.com/wostzone/wot-servient/pkg/logging"
	"github.com/wostzone/wot-servient/pkg/servient"
)

// thingsFolderName is the subdirectory of ConfigFolder holding the
// static catalogue of Thing Description JSON documents to expose at
// startup.
const thingsFolderName = "things"

func main() {
	cfg, err := config.LoadAllConfig(os.Args[1:], "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "servient: config error: %s\n", err)
		os.Exit(1)
	}

	if err := logging.SetLogging(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "servient: logging error: %s\n", err)
		os.Exit(1)
	}

	things, err := config.LoadThingsFromFolder(path.Join(cfg.ConfigFolder, thingsFolderName))
	if err != nil {
		logrus.Errorf("servient: failed to load thing catalogue: %s", err)
		os.Exit(1)
	}

	sv := servient.New(servient.Config{
		WSAddr:         cfg.WSAddr,
		CoAPAddr:       cfg.CoAPAddr,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	for _, th := range things {
		sv.Expose(th)
	}
	logrus.Infof("servient: exposing %d thing(s), ws=%s coap=%s", len(things), cfg.WSAddr, cfg.CoAPAddr)

	configFile := path.Join(cfg.ConfigFolder, config.DefaultConfigName)
	if watcher, err := config.WatchConfigFile(configFile, func() error {
		reloaded := config.New(cfg.HomeFolder)
		if err := reloaded.Load(configFile); err != nil {
			return err
		}
		return logging.SetLogging(reloaded.LogLevel, reloaded.LogFile)
	}); err != nil {
		logrus.Warnf("servient: config file watch disabled: %s", err)
	} else {
		defer watcher.Close()
	}

	sv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logrus.Info("servient: shutdown signal received")

	if err := sv.Shutdown(); err != nil {
		logrus.Errorf("servient: shutdown error: %s", err)
		os.Exit(1)
	}
	logrus.Info("servient: stopped")
}
