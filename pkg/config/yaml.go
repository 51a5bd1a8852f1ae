package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYamlConfig reads filename, substitutes each key in substitute for
// its value, and unmarshals the result into target. Grounded on the
// teacher's own `LoadYamlConfig` call pattern in LoadAllConfig.go/Load
// (substitute-then-unmarshal), reimplemented here since the teacher's
// version lives in a sibling module not carried into this repository.
func LoadYamlConfig(filename string, target interface{}, substitute map[string]string) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	text := string(raw)
	for placeholder, value := range substitute {
		text = strings.ReplaceAll(text, placeholder, value)
	}
	return yaml.Unmarshal([]byte(text), target)
}
