package interpreter

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/driver"
)

// StackFrame is one active instruction at the moment a render failed.
type StackFrame struct {
	Template    string
	Line        int
	Column      int
	Instruction string
}

// TemplateError is the single error a failed render returns. It wraps the
// first failure and records where it happened. The frame stack is only
// materialized when Stack is first called.
type TemplateError struct {
	Err      error
	Template string
	Location driver.DiagnosticLocation

	interp   *Interpreter
	snapshot []ast.Node
	once     sync.Once
	frames   []StackFrame
}

func (e *TemplateError) Error() string {
	if loc := driver.FormatLocation(e.Location); loc != "" {
		return loc + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *TemplateError) Unwrap() error { return e.Err }

// Stack returns the active frames, innermost first.
func (e *TemplateError) Stack() []StackFrame {
	e.once.Do(func() {
		for _, node := range e.snapshot {
			loc := e.interp.locationOf(node)
			e.frames = append(e.frames, StackFrame{
				Template:    loc.Path,
				Line:        loc.Line,
				Column:      loc.Column,
				Instruction: ast.DebugForm(node),
			})
		}
	})
	return e.frames
}

// DescribeTemplateError renders err for terminal output: the failure message
// with its location, followed by one note per calling frame.
func DescribeTemplateError(err error) string {
	if err == nil {
		return ""
	}
	var tmplErr *TemplateError
	if !errors.As(err, &tmplErr) {
		return "template: " + strings.TrimSpace(err.Error())
	}
	var b strings.Builder
	message := strings.TrimSpace(tmplErr.Err.Error())
	if loc := driver.FormatLocation(tmplErr.Location); loc != "" {
		fmt.Fprintf(&b, "template: %s %s", loc, message)
	} else {
		fmt.Fprintf(&b, "template: %s", message)
	}
	for idx, frame := range tmplErr.Stack() {
		loc := driver.FormatLocation(driver.DiagnosticLocation{Path: frame.Template, Line: frame.Line, Column: frame.Column})
		if idx == 0 && loc == driver.FormatLocation(tmplErr.Location) {
			continue
		}
		if loc == "" {
			fmt.Fprintf(&b, "\nnote: called from here (%s)", frame.Instruction)
			continue
		}
		fmt.Fprintf(&b, "\nnote: %s called from here (%s)", loc, frame.Instruction)
	}
	return b.String()
}

// attach wraps err with the location of failing and a snapshot of the
// executing frames. Signals and already-attached errors pass through.
func (env *Environment) attach(err error, failing ast.Instruction) error {
	if err == nil || isSignal(err) {
		return err
	}
	var existing *TemplateError
	if errors.As(err, &existing) {
		return err
	}
	snapshot := make([]ast.Node, 0, len(env.work)+1)
	if failing != nil && failing.ShownInStackTrace() {
		snapshot = append(snapshot, failing)
	}
	for idx := len(env.work) - 1; idx >= 0; idx-- {
		node := env.work[idx].node
		if node == nil || !node.ShownInStackTrace() {
			continue
		}
		snapshot = append(snapshot, node)
	}

	var at ast.Node
	if expr := errorExpression(err); expr != nil && expr.Span() != (ast.Span{}) {
		at = expr
	} else if failing != nil {
		at = failing
	} else if len(env.work) > 0 && env.work[len(env.work)-1].node != nil {
		at = env.work[len(env.work)-1].node
	}
	loc := env.interp.locationOf(at)
	if loc.Path == "" {
		loc.Path = env.templateName()
	}
	return &TemplateError{
		Err:      err,
		Template: loc.Path,
		Location: loc,
		interp:   env.interp,
		snapshot: snapshot,
	}
}

func errorExpression(err error) ast.Node {
	var mismatch *TypeMismatchError
	if errors.As(err, &mismatch) {
		return mismatch.Expression
	}
	var unbound *UnboundReferenceError
	if errors.As(err, &unbound) {
		return unbound.Expression
	}
	return nil
}

func (i *Interpreter) locationOf(node ast.Node) driver.DiagnosticLocation {
	if node == nil {
		return driver.DiagnosticLocation{}
	}
	span := node.Span()
	return driver.DiagnosticLocation{
		Path:      i.originOf(node),
		Line:      span.Start.Line,
		Column:    span.Start.Column,
		EndLine:   span.End.Line,
		EndColumn: span.End.Column,
	}
}
