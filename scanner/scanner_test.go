package scanner_test

import (
	"strings"
	"testing"

	"github.com/bignyap/tenantstore/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanJavaScript_Eval(t *testing.T) {
	result := scanner.ScanJavaScript(`const result = eval("1+1")`)

	assert.Equal(t, scanner.SeverityCritical, result.Severity)
	assert.False(t, result.Safe)
	assert.Empty(t, result.SanitizedCode)

	require.NotEmpty(t, result.Issues)
	found := false
	for _, issue := range result.Issues {
		if strings.Contains(issue.Pattern, "eval") {
			found = true
			assert.Equal(t, 1, issue.Line)
		}
	}
	assert.True(t, found, "expected an issue whose pattern mentions eval")
}

func TestScanJavaScript_Safe(t *testing.T) {
	code := "const sum=(a,b)=>a+b"
	result := scanner.ScanJavaScript(code)

	assert.Equal(t, scanner.SeveritySafe, result.Severity)
	assert.True(t, result.Safe)
	assert.Equal(t, code, result.SanitizedCode)
	assert.Empty(t, result.Issues)
}

func TestScanJavaScript_LineNumbers(t *testing.T) {
	code := "const a = 1\nconst b = 2\neval(payload)"
	result := scanner.ScanJavaScript(code)

	require.NotEmpty(t, result.Issues)
	assert.Equal(t, 3, result.Issues[0].Line)
}

func TestScanJSON_PrototypePollution(t *testing.T) {
	result := scanner.ScanJSON(`{"__proto__":{"polluted":true}}`)

	assert.Equal(t, scanner.SeverityCritical, result.Severity)
	assert.False(t, result.Safe)
}

func TestScanHTML(t *testing.T) {
	unsafe := scanner.ScanHTML("<div><script>alert(1)</script></div>")
	assert.Equal(t, scanner.SeverityCritical, unsafe.Severity)

	safe := scanner.ScanHTML("<div><span>Safe</span></div>")
	assert.Equal(t, scanner.SeveritySafe, safe.Severity)
	assert.True(t, safe.Safe)
}

func TestScanHTML_EventHandler(t *testing.T) {
	result := scanner.ScanHTML(`<img src="x" onerror="alert(1)">`)
	assert.Equal(t, scanner.SeverityHigh, result.Severity)
	assert.False(t, result.Safe)
}

func TestScanLua(t *testing.T) {
	result := scanner.ScanLua(`os.execute("rm -rf /")`)
	assert.Equal(t, scanner.SeverityCritical, result.Severity)

	safe := scanner.ScanLua("local function add(a, b) return a + b end")
	assert.True(t, safe.Safe)
}

func TestSeverityOrder(t *testing.T) {
	ordered := []scanner.Severity{
		scanner.SeveritySafe,
		scanner.SeverityLow,
		scanner.SeverityMedium,
		scanner.SeverityHigh,
		scanner.SeverityCritical,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank())
		assert.Equal(t, ordered[i], scanner.Max(ordered[i-1], ordered[i]))
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, scanner.ContentJSON, scanner.DetectContentType(`{"a":1}`))
	assert.Equal(t, scanner.ContentLua, scanner.DetectContentType("function f() return 1 end"))
	assert.Equal(t, scanner.ContentHTML, scanner.DetectContentType("<div>hi</div>"))
	assert.Equal(t, scanner.ContentJavaScript, scanner.DetectContentType("const x = 1"))
}

func TestScan_Dispatch(t *testing.T) {
	// Explicit type wins over sniffing.
	result := scanner.Scan(`{"__proto__":{}}`, scanner.ContentJSON)
	assert.Equal(t, scanner.ContentJSON, result.ContentType)
	assert.Equal(t, scanner.SeverityCritical, result.Severity)

	// Sniffed HTML.
	result = scanner.Scan("<p onclick=go()>x</p>", "")
	assert.Equal(t, scanner.ContentHTML, result.ContentType)
	assert.False(t, result.Safe)
}

func TestSanitizeInput_HTML(t *testing.T) {
	out := scanner.SanitizeInput(`<div onclick="evil()"><script>alert(1)</script><a href="javascript:x()">go</a></div>`, scanner.ContentHTML)

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, strings.ToLower(out), "javascript:")
}

func TestSanitizeInput_ProtoTokens(t *testing.T) {
	out := scanner.SanitizeInput(`obj.__proto__ = x; constructor["prototype"].y = 1`, scanner.ContentJavaScript)

	assert.NotContains(t, out, "__proto__")
	assert.NotContains(t, out, `constructor["prototype"]`)
}
