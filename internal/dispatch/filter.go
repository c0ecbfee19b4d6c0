package dispatch

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"notification-engine/internal/common/errors"
)

// recipientFilterSchema constrains broadcast filters to the whitelisted user
// fields with primitive values. Validated before a broadcast is scheduled, so
// a typo fails the Start call instead of the fan-out an hour later.
const recipientFilterSchema = `{
	"type": "object",
	"properties": {
		"is_active": {"type": "boolean"},
		"role":      {"type": "string"},
		"username":  {"type": "string"},
		"email":     {"type": "string"}
	},
	"additionalProperties": false
}`

var filterSchema = gojsonschema.NewStringLoader(recipientFilterSchema)

// ValidateRecipientFilter checks a broadcast recipient filter against the
// schema. An empty filter is valid and matches every user.
func ValidateRecipientFilter(filter map[string]interface{}) error {
	if len(filter) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(filterSchema, gojsonschema.NewGoLoader(filter))
	if err != nil {
		return errors.NewInvalidFilterError(fmt.Sprintf("validate recipient filter: %v", err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return errors.NewInvalidFilterError(strings.Join(details, "; "))
	}
	return nil
}
