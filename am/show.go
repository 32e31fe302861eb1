package am

import (
	"encoding/json"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/longrun/errors"
)

// Output formats for Marshal
const (
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the formats Marshal understands
var Formats = []string{FormatTOML, FormatJSON, FormatYAML}

// Marshal renders cfg in the given format
func Marshal(cfg *Config, format string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatTOML, "":
		data, err = toml.Marshal(cfg)
	case FormatJSON:
		data, err = json.MarshalIndent(cfg, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		data, err = yaml.Marshal(cfg)
	default:
		return nil, errors.WithHintf(
			errors.Newf("unknown config format %q", format),
			"use one of %v", Formats)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal config as %s", format)
	}
	return data, nil
}
