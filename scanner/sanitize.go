package scanner

import "regexp"

// Best-effort mitigations applied by SanitizeInput. These strip the
// constructs the scanners flag most often; they do not guarantee the
// output is free of unsafe content.
var (
	scriptTag     = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	openScriptTag = regexp.MustCompile(`(?i)<script\b[^>]*>`)
	eventHandler  = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	javascriptURI = regexp.MustCompile(`(?i)javascript:`)
	dataHTMLURI   = regexp.MustCompile(`(?i)data:text/html`)
	protoToken    = regexp.MustCompile(`__proto__`)
	ctorPrototype = regexp.MustCompile(`constructor\s*\[\s*["']prototype["']\s*\]`)
)

// SanitizeInput applies best-effort mitigations to untrusted input.
// It is a mitigation layer, not a formal sanitizer: callers that need
// a guarantee must reject payloads the scanners mark unsafe instead.
func SanitizeInput(input string, contentType ContentType) string {
	out := input

	switch contentType {
	case ContentHTML:
		out = scriptTag.ReplaceAllString(out, "")
		out = openScriptTag.ReplaceAllString(out, "")
		out = eventHandler.ReplaceAllString(out, "")
		out = javascriptURI.ReplaceAllString(out, "")
		out = dataHTMLURI.ReplaceAllString(out, "")
	case ContentJSON, ContentJavaScript:
		out = protoToken.ReplaceAllString(out, "__blocked_proto__")
		out = ctorPrototype.ReplaceAllString(out, "__blocked_prototype__")
		out = javascriptURI.ReplaceAllString(out, "")
		out = dataHTMLURI.ReplaceAllString(out, "")
	default:
		out = javascriptURI.ReplaceAllString(out, "")
		out = dataHTMLURI.ReplaceAllString(out, "")
	}

	return out
}
