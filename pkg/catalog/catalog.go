// pkg/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const catalogSchema = `{
	"type": "object",
	"required": ["version", "templates"],
	"properties": {
		"version":     {"type": "string"},
		"lastUpdated": {"type": "string"},
		"templates": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "type", "body"],
				"properties": {
					"name":        {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"type":        {"enum": ["email", "sms"]},
					"subject":     {"type": "string"},
					"body":        {"type": "string", "minLength": 1},
					"htmlBody":    {"type": "string"},
					"active":      {"type": "boolean"}
				}
			}
		}
	}
}`

// LoadCatalog reads and validates a template catalog file.
func LoadCatalog(path string) (*TemplateCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validate(data); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	var cat TemplateCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	names := make(map[string]bool, len(cat.Templates))
	for _, tpl := range cat.Templates {
		if names[tpl.Name] {
			return nil, fmt.Errorf("catalog %s: duplicate template name %q", path, tpl.Name)
		}
		names[tpl.Name] = true
	}
	return &cat, nil
}

func validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema validation: %s", strings.Join(msgs, "; "))
	}
	return nil
}
