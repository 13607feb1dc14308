package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Load reads the config file at path into the given config object.
// YAML and JSON files are supported, selected by file extension.
func Load(path string, config interface{}) error {
	if path == "" {
		return errors.New("please setup the config file path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "fail to open config file")
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}
