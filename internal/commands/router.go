package commands

import (
	"strings"

	"github.com/haidarlabs/qanuni-gateway/internal/i18n"
	"github.com/haidarlabs/qanuni-gateway/internal/session"
)

// command pairs the trigger tokens of one logical command, across every
// supported locale, with the reply it produces. Matching is locale-agnostic:
// an Arabic token fires for a session detected as English and vice versa;
// the reply is always rendered in the session's own locale.
type command struct {
	name     string
	replyKey i18n.Key
	tokens   []string
}

// Router maps normalized inbound text to a reply. Handlers are pure string
// producers; the analysis path never goes through here.
type Router struct {
	table []command
}

// NewRouter builds the command table. Order matters only for overlapping
// tokens; lookup is linear over the (small) command set.
func NewRouter() *Router {
	return &Router{table: []command{
		{
			name:     "greeting",
			replyKey: i18n.KeyGreeting,
			tokens:   []string{"hi", "hello", "start", "مرحبا", "اهلا", "السلام عليكم", "سلام", "ہیلو"},
		},
		{
			name:     "help",
			replyKey: i18n.KeyHelp,
			tokens:   []string{"help", "مساعدة", "مدد"},
		},
		{
			name:     "about",
			replyKey: i18n.KeyAbout,
			tokens:   []string{"about", "حول", "تعارف"},
		},
		{
			name:     "menu",
			replyKey: i18n.KeyMenu,
			tokens:   []string{"menu", "قائمة", "مینو"},
		},
	}}
}

// Route resolves text to a reply in the session's locale. Unmatched input
// falls back to the menu reply.
func (r *Router) Route(text string, sess *session.Session) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, cmd := range r.table {
		for _, token := range cmd.tokens {
			if matches(normalized, token) {
				return i18n.T(cmd.replyKey, sess.Locale)
			}
		}
	}
	return i18n.T(i18n.KeyMenu, sess.Locale)
}

// matches implements exact-or-prefix matching: "help" and "help me" match
// the "help" token, "helpme" does not.
func matches(normalized, token string) bool {
	return normalized == token || strings.HasPrefix(normalized, token+" ")
}
