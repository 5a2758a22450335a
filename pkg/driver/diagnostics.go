package driver

import (
	"fmt"
	"strings"
)

// DiagnosticSeverity captures diagnostic levels.
type DiagnosticSeverity string

const (
	SeverityError   DiagnosticSeverity = "error"
	SeverityWarning DiagnosticSeverity = "warning"
)

// DiagnosticLocation references a source span for diagnostics.
type DiagnosticLocation struct {
	Path      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

// IsZero reports whether the location carries no information.
func (l DiagnosticLocation) IsZero() bool {
	return l == DiagnosticLocation{}
}

// DecodeDiagnostic reports a malformed template fixture.
type DecodeDiagnostic struct {
	Severity DiagnosticSeverity
	Message  string
	Location DiagnosticLocation
}

// DecodeError wraps a diagnostic for error handling.
type DecodeError struct {
	Diagnostic DecodeDiagnostic
}

func (e *DecodeError) Error() string {
	return DescribeDecodeDiagnostic(e.Diagnostic)
}

func newDecodeError(path string, line, column int, format string, args ...any) *DecodeError {
	return &DecodeError{Diagnostic: DecodeDiagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Location: DiagnosticLocation{Path: path, Line: line, Column: column},
	}}
}

// DescribeDecodeDiagnostic formats a decode diagnostic for CLI output.
func DescribeDecodeDiagnostic(diag DecodeDiagnostic) string {
	message := strings.TrimSpace(diag.Message)
	if strings.HasPrefix(message, "fixture:") {
		message = strings.TrimSpace(strings.TrimPrefix(message, "fixture:"))
	}
	location := FormatLocation(diag.Location)
	prefix := "fixture: "
	if diag.Severity == SeverityWarning {
		prefix = "warning: fixture: "
	}
	if location != "" {
		return fmt.Sprintf("%s%s %s", prefix, location, message)
	}
	return fmt.Sprintf("%s%s", prefix, message)
}

// FormatLocation renders path:line:col, degrading gracefully when parts are
// unknown.
func FormatLocation(loc DiagnosticLocation) string {
	path := strings.TrimSpace(loc.Path)
	line := loc.Line
	column := loc.Column
	switch {
	case path != "" && line > 0 && column > 0:
		return fmt.Sprintf("%s:%d:%d", path, line, column)
	case path != "" && line > 0:
		return fmt.Sprintf("%s:%d", path, line)
	case path != "":
		return path
	case line > 0 && column > 0:
		return fmt.Sprintf("line %d, column %d", line, column)
	case line > 0:
		return fmt.Sprintf("line %d", line)
	default:
		return ""
	}
}
