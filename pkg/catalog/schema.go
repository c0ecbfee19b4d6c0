// pkg/catalog/schema.go
package catalog

// TemplateCatalog is a versioned file of notification templates, used to
// seed or sync the templates table across environments.
type TemplateCatalog struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Templates   []TemplateEntry `json:"templates"`
}

type TemplateEntry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"` // email or sms
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body"`
	HTMLBody    string `json:"htmlBody,omitempty"`
	Active      bool   `json:"active"`
}
