package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/runtime"
)

// Error kinds. Every error returned by a render matches exactly one of these
// through errors.Is (TypeMismatch specializations also match ErrTypeMismatch).
var (
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrNonNode           = errors.New("not a node")
	ErrNonSequence       = errors.New("not a sequence")
	ErrNonString         = errors.New("not a string")
	ErrImport            = errors.New("import failed")
	ErrUnboundReference  = errors.New("unbound reference")
	ErrArgument          = errors.New("invalid argument")
	ErrInternalInvariant = errors.New("internal invariant violated")
	ErrNoHandler         = errors.New("no node handler")
	ErrStop              = errors.New("stopped")
)

// TypeMismatchError reports a value that lacks the capability an operation
// needs. Kind narrows the mismatch (ErrNonNode, ErrNonSequence, ErrNonString)
// and defaults to ErrTypeMismatch.
type TypeMismatchError struct {
	Kind       error
	Expression ast.Node
	Canonical  string
	Value      runtime.Value
	Expected   string
	Tip        string
}

func newTypeMismatch(kind error, expr ast.Node, value runtime.Value, expected string) *TypeMismatchError {
	return &TypeMismatchError{
		Kind:       kind,
		Expression: expr,
		Canonical:  ast.CanonicalForm(expr),
		Value:      value,
		Expected:   expected,
	}
}

// Actual names the capabilities the offending value exposes.
func (e *TypeMismatchError) Actual() string {
	return runtime.Describe(e.Value)
}

func (e *TypeMismatchError) Error() string {
	subject := e.Canonical
	if subject == "" {
		subject = "the value"
	}
	msg := fmt.Sprintf("expected %s, but %s has evaluated to %s", e.Expected, subject, e.Actual())
	if e.Tip != "" {
		msg += " (" + e.Tip + ")"
	}
	return msg
}

func (e *TypeMismatchError) Is(target error) bool {
	if target == ErrTypeMismatch {
		return true
	}
	return e.Kind != nil && target == e.Kind
}

// ImportError wraps a failure to load or run a library template.
type ImportError struct {
	Name    string
	Include bool
	Err     error
}

func (e *ImportError) Error() string {
	verb := "import"
	if e.Include {
		verb = "include"
	}
	if e.Err == nil {
		return fmt.Sprintf("cannot %s %q", verb, e.Name)
	}
	return fmt.Sprintf("cannot %s %q: %v", verb, e.Name, e.Err)
}

func (e *ImportError) Is(target error) bool { return target == ErrImport }
func (e *ImportError) Unwrap() error        { return e.Err }

// UnboundReferenceError is raised only where a construct needs a bound value;
// plain lookups return runtime.Missing instead.
type UnboundReferenceError struct {
	Name       string
	Expression ast.Node
	Reason     string
}

func (e *UnboundReferenceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Name)
	}
	return fmt.Sprintf("%s has evaluated to null or missing", e.Name)
}

func (e *UnboundReferenceError) Is(target error) bool { return target == ErrUnboundReference }

// ArgumentError reports a bad macro or function call.
type ArgumentError struct {
	Callable string
	Message  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Callable, e.Message)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrArgument }

// InternalInvariantError marks a condition the evaluator itself guarantees
// cannot happen. It is never caused by template input.
type InternalInvariantError struct {
	Message string
}

func (e *InternalInvariantError) Error() string {
	return "internal error: " + e.Message
}

func (e *InternalInvariantError) Is(target error) bool { return target == ErrInternalInvariant }

// NoHandlerError is raised by the strict fallback policy for a node that no
// namespace handles.
type NoHandlerError struct {
	NodeName   string
	NodeType   string
	Namespaces []string
}

func (e *NoHandlerError) Error() string {
	msg := fmt.Sprintf("no handler macro is defined for node %q (%s)", e.NodeName, e.NodeType)
	if len(e.Namespaces) > 0 {
		msg += " in namespaces [" + strings.Join(e.Namespaces, ", ") + "]"
	}
	return msg
}

func (e *NoHandlerError) Is(target error) bool { return target == ErrNoHandler }

// StopError ends a render on #stop.
type StopError struct {
	Message string
}

func (e *StopError) Error() string {
	if e.Message == "" {
		return "stopped"
	}
	return "stopped: " + e.Message
}

func (e *StopError) Is(target error) bool { return target == ErrStop }
