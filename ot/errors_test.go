package ot

import "testing"

// TestErrorSeverity verifies the ErrorSeverity String() method.
func TestErrorSeverity(t *testing.T) {
	tests := []struct {
		severity ErrorSeverity
		expected string
	}{
		{SeverityCritical, "CRITICAL"},
		{SeverityMajor, "MAJOR"},
		{SeverityMinor, "MINOR"},
		{ErrorSeverity(999), "UNKNOWN"},
	}
	for _, tt := range tests {
		if result := tt.severity.String(); result != tt.expected {
			t.Errorf("ErrorSeverity(%d).String() = %q; want %q", tt.severity, result, tt.expected)
		}
	}
}

func TestFontErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      FontError
		expected string
	}{
		{
			name: "error with offset",
			err: FontError{
				Table: T("GSUB"), Section: "Decode", Issue: "unsupported GSUB header version 2.0",
				Severity: SeverityMajor, Offset: 1234,
			},
			expected: "[MAJOR] GSUB/Decode at offset 1234: unsupported GSUB header version 2.0",
		},
		{
			name: "error without offset",
			err: FontError{
				Table: T("cmap"), Section: "Missing", Issue: "missing required table",
				Severity: SeverityCritical,
			},
			expected: "[CRITICAL] cmap/Missing: missing required table",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.err.Error(); result != tt.expected {
				t.Errorf("FontError.Error() = %q; want %q", result, tt.expected)
			}
		})
	}
}

func TestFontWarningFormat(t *testing.T) {
	w := FontWarning{Table: T("post"), Issue: "3 glyph names for 4 glyphs"}
	if s := w.String(); s != "[WARNING] post: 3 glyph names for 4 glyphs" {
		t.Errorf("FontWarning.String() = %q", s)
	}
	w.Offset = 64
	if s := w.String(); s != "[WARNING] post at offset 64: 3 glyph names for 4 glyphs" {
		t.Errorf("FontWarning.String() = %q", s)
	}
}

func TestErrorCollector(t *testing.T) {
	ec := &errorCollector{}
	if ec.hasCriticalErrors() {
		t.Error("errorCollector should not have critical errors initially")
	}
	ec.addError(T("GSUB"), "Test", "Major issue", SeverityMajor, 100)
	ec.addWarning(T("post"), "Warning issue", 0)
	if ec.hasCriticalErrors() {
		t.Error("errorCollector should not have critical errors yet")
	}
	ec.addError(T("head"), "Size", "Critical issue", SeverityCritical, 0)
	if !ec.hasCriticalErrors() {
		t.Error("errorCollector should have critical errors after adding one")
	}
	font := &Font{parseErrors: ec.errors, parseWarnings: ec.warnings}
	if n := len(font.Errors()); n != 2 {
		t.Errorf("Font.Errors() should return 2 errors; got %d", n)
	}
	if n := len(font.Warnings()); n != 1 {
		t.Errorf("Font.Warnings() should return 1 warning; got %d", n)
	}
	if c := font.CriticalErrors(); len(c) != 1 || c[0].Table != T("head") {
		t.Errorf("Font.CriticalErrors() = %v", c)
	}
	empty := &Font{}
	if len(empty.Errors()) != 0 || len(empty.Warnings()) != 0 || len(empty.CriticalErrors()) != 0 {
		t.Error("empty font should not report errors")
	}
}
