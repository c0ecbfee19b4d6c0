package dispatch

import "time"

// BuildContext assembles the template rendering context. Precedence, lowest
// first: ambient values, the user snapshot, then caller-supplied extra
// context. Everything in the result is a primitive or a map of primitives,
// safe to persist on the notification row.
func BuildContext(siteName string, userSnapshot, extra map[string]interface{}) map[string]interface{} {
	ctx := map[string]interface{}{
		"site_name": siteName,
		"year":      time.Now().Year(),
	}
	if userSnapshot != nil {
		ctx["user"] = userSnapshot
		// Common fields are promoted to the top level so templates can say
		// {{ first_name }} without reaching through {{ user.first_name }}.
		for _, key := range []string{"email", "username", "first_name", "last_name", "full_name"} {
			if v, ok := userSnapshot[key]; ok {
				ctx[key] = v
			}
		}
	}
	for k, v := range extra {
		ctx[k] = v
	}
	return ctx
}
