package loader

import (
	"bytes"
	"errors"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

func decodeJSON(path string, data []byte) (*Config, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Path: path, Message: "invalid JSON"}
	}

	records, err := toRecords(path, gjson.ParseBytes(data).Value())
	if err != nil {
		return nil, err
	}
	return &Config{Records: records}, nil
}

func decodeJSON5(path string, data []byte) (*Config, error) {
	var doc any
	if err := json5.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	records, err := toRecords(path, doc)
	if err != nil {
		return nil, err
	}
	return &Config{Records: records}, nil
}

// decodeTOML reads an array of tables named button (or buttons):
//
//	[[button]]
//	icon = "gear"
//	callback = "settings-view:open"
func decodeTOML(path string, data []byte) (*Config, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		perr := &ParseError{Path: path, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return nil, perr
	}

	var list any
	for _, key := range []string{"button", "buttons"} {
		if v, ok := doc[key]; ok {
			list = v
			break
		}
	}
	if list == nil && len(doc) > 0 {
		return nil, &ParseError{Path: path, Message: "expected a [[button]] array"}
	}

	// go-toml decodes arrays of tables as []map[string]any.
	if tables, ok := list.([]map[string]any); ok {
		items := make([]any, len(tables))
		for i, t := range tables {
			items[i] = t
		}
		list = items
	}

	records, err := toRecords(path, list)
	if err != nil {
		return nil, err
	}
	return &Config{Records: records}, nil
}

func decodeYAML(path string, data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Config{}, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	records, err := toRecords(path, doc)
	if err != nil {
		return nil, err
	}
	return &Config{Records: records}, nil
}
