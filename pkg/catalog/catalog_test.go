package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `{
		"version": "1.0.0",
		"templates": [
			{
				"name": "welcome",
				"type": "email",
				"subject": "Welcome to {{ site_name }}",
				"body": "Hi {{ first_name }}",
				"active": true
			},
			{
				"name": "otp-sms",
				"type": "sms",
				"body": "Your code is {{ code }}",
				"active": true
			}
		]
	}`)

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cat.Version)
	require.Len(t, cat.Templates, 2)
	assert.Equal(t, "welcome", cat.Templates[0].Name)
	assert.Equal(t, "sms", cat.Templates[1].Type)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing body", `{"version": "1", "templates": [{"name": "x", "type": "email"}]}`},
		{"bad type", `{"version": "1", "templates": [{"name": "x", "type": "fax", "body": "y"}]}`},
		{"missing version", `{"templates": []}`},
		{"duplicate names", `{"version": "1", "templates": [
			{"name": "x", "type": "email", "body": "a"},
			{"name": "x", "type": "sms", "body": "b"}
		]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(writeCatalog(t, tt.content))
			assert.Error(t, err)
		})
	}
}
