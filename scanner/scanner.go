package scanner

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Severity classifies a scanned payload. Values form a total order:
// safe < low < medium < high < critical.
type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeveritySafe:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the position of the severity in the total order.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Max returns the more severe of two severities.
func Max(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// ContentType identifies the language a payload is scanned as.
type ContentType string

const (
	ContentJavaScript ContentType = "javascript"
	ContentLua        ContentType = "lua"
	ContentJSON       ContentType = "json"
	ContentHTML       ContentType = "html"
)

// Issue is one matched rule in a scanned payload.
type Issue struct {
	Type     string   `json:"type"`
	Pattern  string   `json:"pattern"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line"`
}

// ScanResult is the outcome of scanning one payload. SanitizedCode is
// populated with the original text only when the payload is safe;
// unsafe payloads must not be persisted or executed without explicit
// override.
type ScanResult struct {
	ContentType   ContentType `json:"content_type"`
	Severity      Severity    `json:"severity"`
	Safe          bool        `json:"safe"`
	Issues        []Issue     `json:"issues,omitempty"`
	SanitizedCode string      `json:"sanitized_code,omitempty"`
}

type rule struct {
	re       *regexp.Regexp
	issue    string
	severity Severity
}

var javascriptRules = []rule{
	{regexp.MustCompile(`\beval\s*\(`), "code-injection", SeverityCritical},
	{regexp.MustCompile(`new\s+Function\s*\(`), "code-injection", SeverityCritical},
	{regexp.MustCompile(`\bFunction\s*\(\s*["'` + "`" + `]`), "code-injection", SeverityCritical},
	{regexp.MustCompile(`__proto__`), "prototype-pollution", SeverityCritical},
	{regexp.MustCompile(`constructor\s*\[\s*["']prototype["']\s*\]`), "prototype-pollution", SeverityHigh},
	{regexp.MustCompile(`\bsetTimeout\s*\(\s*["'` + "`" + `]`), "string-timer", SeverityHigh},
	{regexp.MustCompile(`\bsetInterval\s*\(\s*["'` + "`" + `]`), "string-timer", SeverityHigh},
	{regexp.MustCompile(`\bdocument\.write\s*\(`), "dom-injection", SeverityMedium},
	{regexp.MustCompile(`\.innerHTML\s*=`), "dom-injection", SeverityMedium},
	{regexp.MustCompile(`\bprocess\.env\b`), "environment-access", SeverityMedium},
	{regexp.MustCompile(`\brequire\s*\(\s*["'](child_process|fs|net)["']`), "module-access", SeverityHigh},
}

var luaRules = []rule{
	{regexp.MustCompile(`\bos\.execute\s*\(`), "command-execution", SeverityCritical},
	{regexp.MustCompile(`\bio\.popen\s*\(`), "command-execution", SeverityCritical},
	{regexp.MustCompile(`\bloadstring\s*\(`), "code-injection", SeverityHigh},
	{regexp.MustCompile(`\bload\s*\(\s*["']`), "code-injection", SeverityHigh},
	{regexp.MustCompile(`\bdofile\s*\(`), "file-access", SeverityMedium},
	{regexp.MustCompile(`\bio\.(open|lines)\s*\(`), "file-access", SeverityMedium},
	{regexp.MustCompile(`\bdebug\.`), "debug-access", SeverityMedium},
}

var jsonRules = []rule{
	{regexp.MustCompile(`"__proto__"`), "prototype-pollution", SeverityCritical},
	{regexp.MustCompile(`"constructor"\s*:\s*\{[^}]*"prototype"`), "prototype-pollution", SeverityHigh},
	{regexp.MustCompile(`"\$where"`), "query-injection", SeverityHigh},
	{regexp.MustCompile(`<script`), "embedded-markup", SeverityMedium},
}

var htmlRules = []rule{
	{regexp.MustCompile(`(?i)<script\b`), "script-injection", SeverityCritical},
	{regexp.MustCompile(`(?i)\son\w+\s*=`), "event-handler", SeverityHigh},
	{regexp.MustCompile(`(?i)javascript:`), "uri-injection", SeverityHigh},
	{regexp.MustCompile(`(?i)data:text/html`), "uri-injection", SeverityHigh},
	{regexp.MustCompile(`(?i)<iframe\b`), "frame-injection", SeverityMedium},
	{regexp.MustCompile(`(?i)<(object|embed)\b`), "plugin-injection", SeverityMedium},
}

// ScanJavaScript scans a JavaScript payload.
func ScanJavaScript(code string) ScanResult {
	return runRules(code, ContentJavaScript, javascriptRules)
}

// ScanLua scans a Lua payload.
func ScanLua(code string) ScanResult {
	return runRules(code, ContentLua, luaRules)
}

// ScanJSON scans a JSON payload.
func ScanJSON(code string) ScanResult {
	return runRules(code, ContentJSON, jsonRules)
}

// ScanHTML scans an HTML payload.
func ScanHTML(code string) ScanResult {
	return runRules(code, ContentHTML, htmlRules)
}

// Scan dispatches to the scanner for the given content type, sniffing
// the type when it is empty. Pass an explicit type whenever it is
// known: sniffing is ambiguous and can misclassify JSON whose string
// values contain Lua-like text.
func Scan(code string, contentType ContentType) ScanResult {
	if contentType == "" {
		contentType = DetectContentType(code)
	}
	switch contentType {
	case ContentLua:
		return ScanLua(code)
	case ContentJSON:
		return ScanJSON(code)
	case ContentHTML:
		return ScanHTML(code)
	default:
		return ScanJavaScript(code)
	}
}

var (
	luaShape = regexp.MustCompile(`(?s)\bfunction\b.*\bend\b`)
	htmlTag  = regexp.MustCompile(`<\s*[a-zA-Z!/]`)
)

// DetectContentType sniffs the payload type. JavaScript is the
// fallback because its rule set is the broadest.
func DetectContentType(code string) ContentType {
	trimmed := strings.TrimSpace(code)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v interface{}
		if json.Unmarshal([]byte(trimmed), &v) == nil {
			return ContentJSON
		}
	}
	if luaShape.MatchString(code) {
		return ContentLua
	}
	if htmlTag.MatchString(code) {
		return ContentHTML
	}
	return ContentJavaScript
}

func runRules(code string, contentType ContentType, rules []rule) ScanResult {
	result := ScanResult{
		ContentType: contentType,
		Severity:    SeveritySafe,
		Issues:      nil,
	}

	for _, r := range rules {
		loc := r.re.FindStringIndex(code)
		if loc == nil {
			continue
		}
		result.Issues = append(result.Issues, Issue{
			Type:     r.issue,
			Pattern:  r.re.String(),
			Severity: r.severity,
			Line:     lineOf(code, loc[0]),
		})
		result.Severity = Max(result.Severity, r.severity)
	}

	result.Safe = result.Severity.Rank() <= SeverityLow.Rank()
	if result.Safe {
		result.SanitizedCode = code
	}
	return result
}

// lineOf returns the 1-based line number of a byte offset.
func lineOf(code string, offset int) int {
	return strings.Count(code[:offset], "\n") + 1
}
