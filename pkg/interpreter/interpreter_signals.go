package interpreter

import (
	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/runtime"
)

// Control signals travel through the executor as errors but are never
// reported to callers; the executor consumes them while unwinding.

type breakSignal struct {
	node ast.Instruction
}

func (breakSignal) Error() string { return "break" }

type returnSignal struct {
	value runtime.Value
}

func (returnSignal) Error() string { return "return" }

func isSignal(err error) bool {
	switch err.(type) {
	case breakSignal, returnSignal:
		return true
	}
	return false
}
