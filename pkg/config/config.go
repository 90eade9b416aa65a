package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML config file at the given path into conf.
//
// Unknown fields are rejected. If expandEnv is set, references to ${VAR}
// or $VAR in the file are replaced with the corresponding environment
// variable. A default can be given using form ${VAR:default}.
func Load(conf interface{}, path string, expandEnv bool) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %s: %w", path, err)
	}

	if expandEnv {
		buf = []byte(os.Expand(string(buf), func(name string) string {
			name, defaultValue, _ := strings.Cut(name, ":")
			if value, ok := os.LookupEnv(name); ok {
				return value
			}
			return defaultValue
		}))
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)

	if err := dec.Decode(conf); err != nil {
		return fmt.Errorf("parse config: %s: %w", path, err)
	}

	return nil
}
