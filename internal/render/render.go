// Package render substitutes {{ variable }} placeholders in notification
// templates. Lookups support dotted paths into nested maps of primitive
// values. Missing variables render as empty so one stale placeholder cannot
// fail a whole broadcast; malformed syntax fails immediately.
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/models"
)

var placeholderName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Render substitutes placeholders in tmpl from ctx. Unknown variables become
// empty strings. An unclosed or invalid placeholder returns TEMPLATE_ERROR.
func Render(tmpl string, ctx map[string]interface{}) (string, error) {
	var b strings.Builder
	rest := tmpl

	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			b.WriteString(rest)
			return b.String(), nil
		}

		b.WriteString(rest[:start])
		rest = rest[start+2:]

		end := strings.Index(rest, "}}")
		if end == -1 {
			return "", errors.NewTemplateError("unclosed placeholder")
		}

		name := strings.TrimSpace(rest[:end])
		if strings.Contains(name, "{{") {
			return "", errors.NewTemplateError("nested placeholder delimiters")
		}
		if !placeholderName.MatchString(name) {
			return "", errors.NewTemplateError(fmt.Sprintf("invalid placeholder %q", name))
		}

		b.WriteString(lookup(ctx, name))
		rest = rest[end+2:]
	}
}

// Message is the rendered output of an email or SMS template.
type Message struct {
	Subject  string
	Body     string
	HTMLBody string
}

// RenderMessage renders a template for the given channel. SMS templates have
// no subject or HTML part.
func RenderMessage(tpl *models.NotificationTemplate, channel models.Channel, ctx map[string]interface{}) (*Message, error) {
	body, err := Render(tpl.Body, ctx)
	if err != nil {
		return nil, err
	}

	msg := &Message{Body: body}
	if channel != models.ChannelEmail {
		return msg, nil
	}

	if tpl.Subject != "" {
		if msg.Subject, err = Render(tpl.Subject, ctx); err != nil {
			return nil, err
		}
	}
	if tpl.HTMLBody != "" {
		if msg.HTMLBody, err = Render(tpl.HTMLBody, ctx); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func lookup(ctx map[string]interface{}, name string) string {
	parts := strings.Split(name, ".")
	var current interface{} = ctx

	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = m[part]
		if !ok {
			return ""
		}
	}

	return formatValue(current)
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		// JSON round-trips numbers as float64; keep whole values clean.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]interface{}:
		// Objects have no sensible inline rendering.
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
