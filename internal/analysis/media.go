package analysis

import "strings"

// Content types the analysis pipeline accepts. Anything else routes the
// event to the command path instead.
var analyzableTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// IsAnalyzable reports whether the declared content type names an analyzable
// document. Matching is case-insensitive and tolerates parameterized MIME
// strings such as "image/jpeg; charset=binary".
func IsAnalyzable(contentType string) bool {
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	_, ok := analyzableTypes[contentType]
	return ok
}
