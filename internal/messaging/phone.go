package messaging

import (
	"regexp"
	"strings"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// NormalizeE164 ensures the value begins with + and only contains digits
// afterward, stripping any channel prefix such as "whatsapp:".
func NormalizeE164(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, ':'); idx >= 0 {
		value = value[idx+1:]
	}
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// ValidE164 reports whether value is a plausible E.164 address. Used by the
// dispatcher to short-circuit before any provider call.
func ValidE164(value string) bool {
	return e164Pattern.MatchString(value)
}

func sanitizePhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
