// Package config holds the servient's process configuration: protocol
// bind addresses, CORS origins, and logging, loaded from a YAML file
// with commandline overrides. Adapted from the teacher's
// pkg/config/HubConfig.go — same flag-then-YAML-file loading shape and
// {placeholder} substitution, with the Hub/MQTT/certificate fields
// replaced by the WS/CoAP servient's own.
package config

import (
	"os"
	"path"

	"github.com/sirupsen/logrus"
)

// DefaultConfigName is the configuration file name looked for in
// ConfigFolder when none is given explicitly.
const DefaultConfigName = "servient.yaml"

// DefaultConfigFolder is the location of config files relative to the
// application's home folder.
const DefaultConfigFolder = "./config"

// DefaultLogFolder is the location of log files relative to the home folder.
const DefaultLogFolder = "./log"

// DefaultWSAddr and DefaultCoAPAddr are the bind addresses used when the
// config file doesn't set one.
const (
	DefaultWSAddr   = ":8443"
	DefaultCoAPAddr = ":5683"
)

// Config is the servient's process-wide configuration.
type Config struct {
	// WSAddr is the bind address for the WS protocol server, e.g. ":8443".
	// Empty disables the WS binding.
	WSAddr string `yaml:"wsAddr,omitempty"`

	// CoAPAddr is the bind address for the CoAP protocol server, e.g. ":5683".
	// Empty disables the CoAP binding.
	CoAPAddr string `yaml:"coapAddr,omitempty"`

	// AllowedOrigins lists the CORS origins accepted by the WS server's
	// HTTP upgrade handshake. "*" allows any origin.
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`

	// LogLevel is one of "error", "warn", "info", "debug". Default "info".
	LogLevel string `yaml:"logLevel,omitempty"`

	// Files and folders. New derives the folders from the home folder;
	// Load makes LogFile absolute under LogFolder when a config file is read.
	LogFolder    string `yaml:"logFolder,omitempty"`
	LogFile      string `yaml:"logFile,omitempty"`
	HomeFolder   string `yaml:"homeFolder,omitempty"`
	ConfigFolder string `yaml:"configFolder,omitempty"`
}

// New returns a Config with defaults filled in. homeFolder "" defaults
// to the parent of the folder holding the running binary, the same convention as the
// teacher's CreateHubConfig.
func New(homeFolder string) *Config {
	if homeFolder == "" {
		appBin, _ := os.Executable()
		homeFolder = path.Dir(path.Dir(appBin))
	} else if !path.IsAbs(homeFolder) {
		cwd, _ := os.Getwd()
		homeFolder = path.Join(cwd, homeFolder)
	}
	return &Config{
		WSAddr:       DefaultWSAddr,
		CoAPAddr:     DefaultCoAPAddr,
		LogLevel:     "info",
		HomeFolder:   homeFolder,
		ConfigFolder: path.Join(homeFolder, DefaultConfigFolder),
		LogFolder:    path.Join(homeFolder, DefaultLogFolder),
	}
}

// Load reads configFile on top of the receiver's defaults. configFile
// may be relative to ConfigFolder or absolute; "" uses DefaultConfigName
// under ConfigFolder. Missing file is not an error: the defaults stand.
//
// The following placeholders are substituted in the file before parsing:
//
//	{homeFolder}   the application's home folder
//	{configFolder} the configuration folder
//	{logFolder}    the logging folder
func (c *Config) Load(configFile string) error {
	if configFile == "" {
		configFile = path.Join(c.ConfigFolder, DefaultConfigName)
	} else if !path.IsAbs(configFile) {
		configFile = path.Join(c.ConfigFolder, configFile)
	}

	substitute := map[string]string{
		"{homeFolder}":   c.HomeFolder,
		"{configFolder}": c.ConfigFolder,
		"{logFolder}":    c.LogFolder,
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		logrus.Infof("config: '%s' not found, using defaults", configFile)
		return nil
	}

	logrus.Infof("config: loading '%s'", configFile)
	if err := LoadYamlConfig(configFile, c, substitute); err != nil {
		return err
	}

	if c.LogFile == "" {
		c.LogFile = path.Join(c.LogFolder, "servient.log")
	} else if !path.IsAbs(c.LogFile) {
		c.LogFile = path.Join(c.LogFolder, c.LogFile)
	}
	return c.Validate()
}

// Validate reports whether ConfigFolder and LogFolder exist, creating
// LogFolder on demand (unlike the teacher's HubConfig.Validate, which
// only checks — a servient's log folder is ours to create, a config
// folder holding the file we just loaded is not).
func (c *Config) Validate() error {
	if c.ConfigFolder != "" {
		if _, err := os.Stat(c.ConfigFolder); os.IsNotExist(err) {
			logrus.Warnf("config: configuration folder '%s' does not exist", c.ConfigFolder)
		}
	}
	if c.LogFolder != "" {
		if err := os.MkdirAll(c.LogFolder, 0755); err != nil {
			return err
		}
	}
	return nil
}
