package i18n

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/haidarlabs/qanuni-gateway/internal/language"
)

// RenderTemplate resolves key in the given locale and executes it as a text
// template with strict missing-key semantics, so a templated send with an
// incomplete variable set fails loudly instead of delivering "<no value>".
func RenderTemplate(key Key, loc language.Locale, vars map[string]string) (string, error) {
	body, ok := Lookup(key, loc)
	if !ok {
		return "", fmt.Errorf("i18n: unknown template key %q", key)
	}
	t, err := template.New(string(key)).Option("missingkey=error").Parse(body)
	if err != nil {
		return "", fmt.Errorf("i18n: parse %q: %w", key, err)
	}
	if vars == nil {
		vars = map[string]string{}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("i18n: execute %q: %w", key, err)
	}
	return buf.String(), nil
}

// TemplateKeyFor maps an externally supplied template name to a catalog key.
func TemplateKeyFor(name string) (Key, bool) {
	switch name {
	case "welcome":
		return KeyTemplateWelcome, true
	case "followup":
		return KeyTemplateFollowup, true
	}
	return "", false
}
