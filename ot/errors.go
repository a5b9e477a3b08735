package ot

import (
	"errors"
	"fmt"
)

// ErrorSeverity represents the severity level of a font parsing error.
type ErrorSeverity int

const (
	// SeverityCritical indicates a severe error that makes the font unusable or unreliable.
	SeverityCritical ErrorSeverity = iota
	// SeverityMajor indicates a significant error; the table in question is kept
	// unchanged and will not be interpreted.
	SeverityMajor
	// SeverityMinor indicates a minor issue that can be safely ignored in most cases.
	SeverityMinor
)

// String returns a human-readable representation of the error severity.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityMajor:
		return "MAJOR"
	case SeverityMinor:
		return "MINOR"
	default:
		return "UNKNOWN"
	}
}

// FontError represents an error encountered during font parsing or encoding.
// Non-critical errors are accumulated during parsing and can be inspected after
// parsing completes; critical errors are returned by Parse.
type FontError struct {
	Table    Tag           // The OpenType table where the error occurred (e.g., "GSUB", "cmap")
	Section  string        // Specific section within the table (e.g., "LookupType6", "ScriptList")
	Issue    string        // Human-readable description of the issue
	Severity ErrorSeverity // Severity level of the error
	Offset   uint32        // Byte offset in the table where the error occurred (0 if unknown)
}

// Error implements the error interface.
func (e FontError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("[%s] %s/%s at offset %d: %s", e.Severity, e.Table, e.Section, e.Offset, e.Issue)
	}
	return fmt.Sprintf("[%s] %s/%s: %s", e.Severity, e.Table, e.Section, e.Issue)
}

// FontWarning represents a non-critical issue encountered during font parsing.
// Warnings indicate potential problems but do not prevent font usage.
type FontWarning struct {
	Table  Tag    // The OpenType table where the warning occurred
	Issue  string // Human-readable description of the warning
	Offset uint32 // Byte offset in the font file where the warning occurred (0 if unknown)
}

// String returns a human-readable representation of the warning.
func (w FontWarning) String() string {
	if w.Offset > 0 {
		return fmt.Sprintf("[WARNING] %s at offset %d: %s", w.Table, w.Offset, w.Issue)
	}
	return fmt.Sprintf("[WARNING] %s: %s", w.Table, w.Issue)
}

// ErrOffsetOverflow is returned by the encoder if a sub-table cannot be
// reached with a 16-bit offset.
var ErrOffsetOverflow = errors.New("offset overflow")

// ErrTooManyGlyphs flags an attempt to grow a font beyond 65535 glyphs.
var ErrTooManyGlyphs = errors.New("too many glyphs")

// errorCollector accumulates errors and warnings during font parsing.
// This is an internal helper used by the parser to collect issues as they are discovered.
type errorCollector struct {
	errors   []FontError
	warnings []FontWarning
}

// addError records a parsing error and returns it for convenience.
func (ec *errorCollector) addError(table Tag, section string, issue string, severity ErrorSeverity, offset uint32) FontError {
	e := FontError{
		Table:    table,
		Section:  section,
		Issue:    issue,
		Severity: severity,
		Offset:   offset,
	}
	ec.errors = append(ec.errors, e)
	return e
}

// addWarning records a parsing warning.
func (ec *errorCollector) addWarning(table Tag, issue string, offset uint32) {
	ec.warnings = append(ec.warnings, FontWarning{
		Table:  table,
		Issue:  issue,
		Offset: offset,
	})
}

// hasCriticalErrors returns true if any critical errors have been recorded.
func (ec *errorCollector) hasCriticalErrors() bool {
	for _, err := range ec.errors {
		if err.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// errFontFormat produces user level errors for font parsing.
func errFontFormat(message string) error {
	return fmt.Errorf("OpenType font format: %s", message)
}
