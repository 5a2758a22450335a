package ast

// SetSpan annotates the node with the provided span.
func SetSpan(node Node, span Span) {
	if node == nil {
		return
	}
	if setter, ok := node.(interface{ setSpan(Span) }); ok {
		setter.setSpan(span)
	}
}

// ZeroSpan returns an empty span value.
func ZeroSpan() Span {
	return Span{}
}

// At builds a single-line span starting at line:column and covering width
// characters.
func At(line, column, width int) Span {
	return Span{
		Start: Position{Line: line, Column: column},
		End:   Position{Line: line, Column: column + width},
	}
}

// WithSpan sets the span on node and returns it, for use in builders.
func WithSpan[T Node](node T, span Span) T {
	SetSpan(node, span)
	return node
}
