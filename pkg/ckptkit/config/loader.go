package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	ckpterrors "github.com/randalmurphal/ckptkit/pkg/ckptkit/errors"
)

// FromFile loads checkpoint settings from a file, picking the parser
// by extension (.yaml, .yml, or .json). An unreadable file reports an
// *errors.IOError; an unrecognized extension an *errors.ConfigError.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ckpterrors.IOError{Op: "read", Path: path, Err: err}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, &ckpterrors.ConfigError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported extension %q, want .yaml, .yml, or .json", ext),
		}
	}
}

// FromYAML decodes YAML settings into a Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, &ckpterrors.ConfigError{
			Field:   "yaml",
			Message: err.Error(),
		}
	}
	return New(m), nil
}

// FromJSON decodes JSON settings into a Config.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, &ckpterrors.ConfigError{
			Field:   "json",
			Message: err.Error(),
		}
	}
	return New(m), nil
}
