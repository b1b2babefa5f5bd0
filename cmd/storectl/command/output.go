package command

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"mangatrack/internal/records"
)

func (a *app) print(w io.Writer, v any) error {
	if a.output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// parseFields turns repeated --field name=value flags into a field map.
func parseFields(kind records.Kind, flags []string) (map[string]string, error) {
	fields := make(map[string]string, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q: want name=value", f)
		}
		if !kind.HasField(name) {
			return nil, fmt.Errorf("%w: %s has no field %q (fields: %s)",
				records.ErrInvalidKey, kind, name, strings.Join(kind.FieldNames(), ", "))
		}
		if _, dup := fields[name]; dup {
			return nil, fmt.Errorf("--field %s given more than once", name)
		}
		fields[name] = value
	}
	return fields, nil
}
