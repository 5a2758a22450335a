package interpreter

import (
	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/runtime"
	"ftl/interpreter-go/pkg/telemetry"
)

// namespaceList is the ordered set of namespaces searched for node handlers.
type namespaceList []runtime.Hash

func (l namespaceList) names() []string {
	out := make([]string, 0, len(l))
	for _, h := range l {
		if ns, ok := h.(*runtime.Namespace); ok {
			out = append(out, ns.TemplateName())
			continue
		}
		out = append(out, runtime.Describe(h))
	}
	return out
}

// namespaceSelector is the "using" clause of #recurse and #visit. It only
// exists when the clause was written, so an absent selector never reaches
// validation.
type namespaceSelector struct {
	expr ast.Expression
}

func selectorFor(expr ast.Expression) *namespaceSelector {
	if expr == nil {
		return nil
	}
	return &namespaceSelector{expr: expr}
}

func (s *namespaceSelector) resolve(env *Environment) (namespaceList, error) {
	var val runtime.Value
	switch lit := s.expr.(type) {
	case *ast.StringLiteral:
		ns, err := env.ImportLib(lit.Value, "")
		if err != nil {
			return nil, err
		}
		val = ns
	case *ast.ListLiteral:
		seq := runtime.NewSimpleSequence()
		for _, item := range lit.Items {
			str, ok := item.(*ast.StringLiteral)
			if !ok {
				itemVal, err := env.eval(item)
				if err != nil {
					return nil, err
				}
				mismatch := newTypeMismatch(ErrNonString, item, itemVal, "string")
				mismatch.Tip = "namespace list literals name libraries to import"
				return nil, mismatch
			}
			ns, err := env.ImportLib(str.Value, "")
			if err != nil {
				return nil, err
			}
			seq.Add(ns)
		}
		val = seq
	default:
		v, err := env.eval(s.expr)
		if err != nil {
			return nil, err
		}
		val = v
	}
	return normalizeNamespaces(s.expr, val)
}

// normalizeNamespaces accepts a sequence of hashes, or a lone hash standing
// for a one-element sequence.
func normalizeNamespaces(expr ast.Expression, val runtime.Value) (namespaceList, error) {
	seq, isSeq := val.(runtime.Sequence)
	if !isSeq {
		if hash, ok := val.(runtime.Hash); ok && !runtime.IsMissing(val) {
			return namespaceList{hash}, nil
		}
		return nil, newTypeMismatch(ErrNonSequence, expr, val, "sequence or hash")
	}
	size, err := seq.Size()
	if err != nil {
		return nil, err
	}
	out := make(namespaceList, 0, size)
	for idx := 0; idx < size; idx++ {
		item, err := seq.At(idx)
		if err != nil {
			return nil, err
		}
		hash, ok := item.(runtime.Hash)
		if !ok || runtime.IsMissing(item) {
			mismatch := newTypeMismatch(ErrTypeMismatch, expr, item, "hash")
			mismatch.Tip = "every namespace in the list must be a hash"
			return nil, mismatch
		}
		out = append(out, hash)
	}
	return out, nil
}

// activeNamespaces is the list in effect when no selector is written.
func (env *Environment) activeNamespaces() namespaceList {
	if rf := env.currentRecursion(); rf != nil {
		return rf.namespaces
	}
	return namespaceList{env.currentNS}
}

func (env *Environment) resolveTarget(expr ast.Expression) (runtime.Node, error) {
	if expr == nil {
		node := env.CurrentNode()
		if node == nil {
			mismatch := newTypeMismatch(ErrNonNode, ast.NewSpecialVariable(ast.SpecialNode), runtime.Missing, "node")
			mismatch.Tip = "there is no current node to recurse into"
			return nil, mismatch
		}
		return node, nil
	}
	val, err := env.eval(expr)
	if err != nil {
		return nil, err
	}
	node, ok := val.(runtime.Node)
	if !ok || runtime.IsMissing(val) {
		return nil, newTypeMismatch(ErrNonNode, expr, val, "node")
	}
	return node, nil
}

func (env *Environment) resolveNamespaces(expr ast.Expression) (namespaceList, error) {
	if sel := selectorFor(expr); sel != nil {
		return sel.resolve(env)
	}
	return env.activeNamespaces(), nil
}

func (env *Environment) acceptRecurse(n *ast.RecurseNode) (step, error) {
	node, err := env.resolveTarget(n.TargetNode)
	if err != nil {
		return step{}, err
	}
	nss, err := env.resolveNamespaces(n.Namespaces)
	if err != nil {
		return step{}, err
	}
	return env.recurseStep(node, nss)
}

func (env *Environment) acceptVisit(n *ast.VisitNode) (step, error) {
	node, err := env.resolveTarget(n.TargetNode)
	if err != nil {
		return step{}, err
	}
	nss, err := env.resolveNamespaces(n.Namespaces)
	if err != nil {
		return step{}, err
	}
	return env.visitStep(node, nss), nil
}

// Recurse dispatches every child of node to its handler. A nil node means the
// current node; nil namespaces means the namespaces already in effect.
func (env *Environment) Recurse(node runtime.Node, namespaces []runtime.Hash) error {
	if node == nil {
		node = env.CurrentNode()
	}
	if node == nil {
		return newTypeMismatch(ErrNonNode, ast.NewSpecialVariable(ast.SpecialNode), runtime.Missing, "node")
	}
	st, err := env.recurseStep(node, env.hostNamespaces(namespaces))
	if err != nil {
		return err
	}
	return env.runHostStep(st)
}

// Visit dispatches node itself to its handler.
func (env *Environment) Visit(node runtime.Node, namespaces []runtime.Hash) error {
	if node == nil {
		return newTypeMismatch(ErrNonNode, nil, runtime.Missing, "node")
	}
	return env.runHostStep(env.visitStep(node, env.hostNamespaces(namespaces)))
}

func (env *Environment) hostNamespaces(namespaces []runtime.Hash) namespaceList {
	if namespaces == nil {
		return env.activeNamespaces()
	}
	return namespaceList(namespaces)
}

func (env *Environment) recurseStep(node runtime.Node, nss namespaceList) (step, error) {
	children, err := node.ChildNodes()
	if err != nil {
		return step{}, err
	}
	if children == nil {
		return step{}, nil
	}
	w := &nodeWalk{env: env, namespaces: nss}
	if err := w.push(children, false); err != nil {
		return step{}, err
	}
	return w.start(), nil
}

func (env *Environment) visitStep(node runtime.Node, nss namespaceList) step {
	w := &nodeWalk{env: env, namespaces: nss}
	w.levels = append(w.levels, &walkLevel{items: runtime.NewSimpleSequence(node), size: 1})
	return w.start()
}

// nodeWalk visits nodes depth first without growing the Go stack. Each level
// is a child list being iterated; nodes the fallback policy descends into get
// their own level and keep their recursion frame open until it is exhausted.
type nodeWalk struct {
	env        *Environment
	namespaces namespaceList
	levels     []*walkLevel
}

type walkLevel struct {
	items runtime.Sequence
	size  int
	next  int
	owner bool
}

func (w *nodeWalk) start() step {
	return step{resume: w.resume, finally: w.abort}
}

func (w *nodeWalk) push(items runtime.Sequence, owner bool) error {
	size, err := items.Size()
	if err != nil {
		return err
	}
	w.levels = append(w.levels, &walkLevel{items: items, size: size, owner: owner})
	return nil
}

func (w *nodeWalk) pop() {
	top := w.levels[len(w.levels)-1]
	w.levels = w.levels[:len(w.levels)-1]
	if top.owner {
		w.env.popRecursion()
	}
}

// abort releases the recursion frames of levels still open when the walk is
// unwound by an error.
func (w *nodeWalk) abort() {
	for len(w.levels) > 0 {
		w.pop()
	}
}

func (w *nodeWalk) resume() (step, error) {
	for len(w.levels) > 0 {
		top := w.levels[len(w.levels)-1]
		if top.next >= top.size {
			w.pop()
			continue
		}
		item, err := top.items.At(top.next)
		top.next++
		if err != nil {
			return step{}, err
		}
		if runtime.IsMissing(item) {
			continue
		}
		node, ok := item.(runtime.Node)
		if !ok {
			return step{}, newTypeMismatch(ErrNonNode, nil, item, "node")
		}
		return w.visit(node)
	}
	return step{}, nil
}

func (w *nodeWalk) visit(node runtime.Node) (step, error) {
	env := w.env
	handler, idx, err := env.findHandler(node, w.namespaces, 0)
	if err != nil {
		return step{}, err
	}
	rf := &recursionFrame{node: node, namespaces: w.namespaces, index: idx}
	env.pushRecursion(rf)
	if handler != nil {
		env.interp.metrics.RecordNodeHandler(handler.Name())
		return step{
			children: []task{env.handlerTask(handler)},
			cleanup:  env.popRecursion,
			resume:   w.resume,
		}, nil
	}
	descend, err := env.applyFallback(node, w.namespaces)
	if err != nil {
		env.popRecursion()
		return step{}, err
	}
	if !descend {
		env.popRecursion()
		return step{resume: w.resume}, nil
	}
	children, err := node.ChildNodes()
	if err == nil && children != nil {
		err = w.push(children, true)
	} else if err == nil {
		env.popRecursion()
		return step{resume: w.resume}, nil
	}
	if err != nil {
		env.popRecursion()
		return step{}, err
	}
	return step{resume: w.resume}, nil
}

// handlerTask invokes a node handler macro with no arguments. The frame is
// labelled with the handler's definition.
func (env *Environment) handlerTask(handler *runtime.MacroValue) task {
	return task{
		node: handler.Definition,
		enter: func() (step, error) {
			return env.enterMacro(handler, callArgs{}, nil, nil)
		},
	}
}

// findHandler searches namespaces from index start for a macro handling
// node. Candidate names are tried in order (prefix:name, name, @type,
// @default), each across all namespaces. It returns the handler and the
// index of the namespace that supplied it, or nil and -1.
func (env *Environment) findHandler(node runtime.Node, nss namespaceList, start int) (*runtime.MacroValue, int, error) {
	name, err := node.NodeName()
	if err != nil {
		return nil, -1, err
	}
	nodeType, err := node.NodeType()
	if err != nil {
		return nil, -1, err
	}
	prefix, err := node.NodeNamespace()
	if err != nil {
		return nil, -1, err
	}
	candidates := make([]string, 0, 4)
	if prefix != "" && name != "" {
		candidates = append(candidates, prefix+":"+name)
	}
	if name != "" {
		candidates = append(candidates, name)
	}
	if nodeType != "" && "@"+nodeType != name {
		candidates = append(candidates, "@"+nodeType)
	}
	candidates = append(candidates, "@default")

	for _, candidate := range candidates {
		for idx := start; idx < len(nss); idx++ {
			val, err := nss[idx].Get(candidate)
			if err != nil {
				return nil, -1, err
			}
			if macro, ok := val.(*runtime.MacroValue); ok && !macro.IsFunction() {
				return macro, idx, nil
			}
		}
	}
	return nil, -1, nil
}

// applyFallback handles a node no handler matched. It reports whether the
// walk should descend into the node's children.
func (env *Environment) applyFallback(node runtime.Node, nss namespaceList) (bool, error) {
	env.interp.metrics.RecordNodeHandler(telemetry.FallbackHandler)
	nodeType, err := node.NodeType()
	if err != nil {
		return false, err
	}
	policy := env.interp.fallback
	if nodeType == runtime.NodeTypeText && policy != FallbackSkip {
		if text, ok := node.(runtime.Scalar); ok {
			s, err := text.AsString()
			if err != nil {
				return false, err
			}
			return false, env.write(s)
		}
	}
	switch policy {
	case FallbackSkip:
		return false, nil
	case FallbackText:
		return true, nil
	}
	switch nodeType {
	case runtime.NodeTypeDocument:
		return true, nil
	case runtime.NodeTypeText, runtime.NodeTypeComment, runtime.NodeTypePI, runtime.NodeTypeDocumentType:
		return false, nil
	}
	name, _ := node.NodeName()
	env.logger.Debug("no handler for node", "node", name, "type", nodeType)
	return false, &NoHandlerError{NodeName: name, NodeType: nodeType, Namespaces: nss.names()}
}

// acceptFallback passes the current node to the next handler after the one
// running, or to the fallback policy when there is none.
func (env *Environment) acceptFallback(n *ast.FallbackInstruction) (step, error) {
	rf := env.currentRecursion()
	if rf == nil {
		mismatch := newTypeMismatch(ErrNonNode, ast.NewSpecialVariable(ast.SpecialNode), runtime.Missing, "node")
		mismatch.Tip = "#fallback is only valid inside a node handler"
		return step{}, mismatch
	}
	handler, idx, err := env.findHandler(rf.node, rf.namespaces, rf.index+1)
	if err != nil {
		return step{}, err
	}
	if handler != nil {
		env.interp.metrics.RecordNodeHandler(handler.Name())
		previous := rf.index
		rf.index = idx
		return step{
			children: []task{env.handlerTask(handler)},
			cleanup:  func() { rf.index = previous },
		}, nil
	}
	descend, err := env.applyFallback(rf.node, rf.namespaces)
	if err != nil || !descend {
		return step{}, err
	}
	children, err := rf.node.ChildNodes()
	if err != nil || children == nil {
		return step{}, err
	}
	w := &nodeWalk{env: env, namespaces: rf.namespaces}
	if err := w.push(children, false); err != nil {
		return step{}, err
	}
	return w.start(), nil
}
