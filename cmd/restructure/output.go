package main

import (
	"encoding/json"
	"io"

	"github.com/restructure/restructure/domain"
	"gopkg.in/yaml.v3"
)

// writeDump marshals v as YAML (the default) or JSON, depending on format.
func writeDump(w io.Writer, v interface{}, format string) error {
	switch format {
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return domain.NewUnsupportedFormatError(format)
	}
}
