package interpreter

import (
	"errors"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/runtime"
)

// Instructions never call each other through the Go stack. accept performs an
// instruction's immediate effect and returns a step naming the work that
// follows; the executor keeps the pending work in env.work and drives it from
// a single loop.

// task is one unit of pending work: an instruction to accept, or a prepared
// entry function for work that has no instruction of its own (a node handler
// invocation). node labels the resulting frame in stack traces.
type task struct {
	inst  ast.Instruction
	enter func() (step, error)
	node  ast.Instruction
}

func tasks(insts ...ast.Instruction) []task {
	out := make([]task, 0, len(insts))
	for _, inst := range insts {
		if inst == nil {
			continue
		}
		out = append(out, task{inst: inst, node: inst})
	}
	return out
}

// step is what an instruction asks of the executor. children run in order;
// cleanup runs once they are done (or while unwinding); resume is then asked
// for the next batch. finally runs when the frame is popped for any reason.
type step struct {
	children  []task
	resume    func() (step, error)
	cleanup   func()
	finally   func()
	breakable bool
	onReturn  func(runtime.Value)
}

func (s step) empty() bool {
	return len(s.children) == 0 && s.resume == nil
}

type frame struct {
	node     ast.Instruction
	children []task
	next     int
	resume   func() (step, error)
	cleanup  func()
	finally  []func()
	// breakable frames absorb #break
	breakable bool
	// onReturn marks a macro or function body; it absorbs #return
	onReturn func(runtime.Value)
}

func (f *frame) install(st step) {
	f.children = st.children
	f.next = 0
	f.resume = st.resume
	f.cleanup = st.cleanup
	if st.finally != nil {
		f.finally = append(f.finally, st.finally)
	}
	if st.breakable {
		f.breakable = true
	}
	if st.onReturn != nil {
		f.onReturn = st.onReturn
	}
}

func (f *frame) runCleanup() {
	if f.cleanup != nil {
		cleanup := f.cleanup
		f.cleanup = nil
		cleanup()
	}
}

// execute runs inst and everything it schedules to completion.
func (env *Environment) execute(inst ast.Instruction) error {
	base := len(env.work)
	if err := env.enter(task{inst: inst, node: inst}); err != nil {
		return env.recover(base, env.attach(err, inst))
	}
	return env.runFrames(base)
}

// execStep runs an already prepared step as a frame labelled node.
func (env *Environment) execStep(node ast.Instruction, st step) error {
	base := len(env.work)
	if st.empty() {
		finish(st)
		return nil
	}
	env.pushFrame(node, st)
	return env.runFrames(base)
}

func finish(st step) {
	if st.cleanup != nil {
		st.cleanup()
	}
	if st.finally != nil {
		st.finally()
	}
}

func (env *Environment) enter(t task) error {
	var (
		st  step
		err error
	)
	if t.enter != nil {
		st, err = t.enter()
	} else {
		st, err = env.accept(t.inst)
	}
	if err != nil {
		return err
	}
	if st.empty() {
		finish(st)
		return nil
	}
	env.pushFrame(t.node, st)
	return nil
}

func (env *Environment) pushFrame(node ast.Instruction, st step) {
	f := &frame{node: node}
	f.install(st)
	env.work = append(env.work, f)
}

func (env *Environment) popFrame() *frame {
	n := len(env.work)
	f := env.work[n-1]
	env.work[n-1] = nil
	env.work = env.work[:n-1]
	f.runCleanup()
	for idx := len(f.finally) - 1; idx >= 0; idx-- {
		f.finally[idx]()
	}
	return f
}

func (env *Environment) runFrames(base int) error {
	for len(env.work) > base {
		f := env.work[len(env.work)-1]
		if f.next < len(f.children) {
			t := f.children[f.next]
			f.next++
			if err := env.enter(t); err != nil {
				if err = env.recover(base, env.attach(err, t.node)); err != nil {
					return err
				}
			}
			continue
		}
		f.runCleanup()
		if f.resume != nil {
			resume := f.resume
			f.resume = nil
			st, err := resume()
			if err != nil {
				if err = env.recover(base, env.attach(err, nil)); err != nil {
					return err
				}
				continue
			}
			f.install(st)
			continue
		}
		env.popFrame()
	}
	return nil
}

var errBreakOutsideList = errors.New("#break must be inside a #list")

// recover unwinds frames above base for err. Signals that find their target
// are consumed and recover returns nil; anything else unwinds to base and is
// returned.
func (env *Environment) recover(base int, err error) error {
	switch sig := err.(type) {
	case breakSignal:
		if !env.breakReachable(base) {
			return env.unwind(base, env.attach(errBreakOutsideList, sig.node))
		}
		for len(env.work) > base {
			if f := env.popFrame(); f.breakable {
				return nil
			}
		}
		return nil
	case returnSignal:
		for len(env.work) > base {
			if f := env.popFrame(); f.onReturn != nil {
				f.onReturn(sig.value)
				return nil
			}
		}
		return nil
	}
	return env.unwind(base, err)
}

func (env *Environment) breakReachable(base int) bool {
	for idx := len(env.work) - 1; idx >= base; idx-- {
		f := env.work[idx]
		if f.breakable {
			return true
		}
		if f.onReturn != nil {
			return false
		}
	}
	return false
}

func (env *Environment) unwind(base int, err error) error {
	for len(env.work) > base {
		env.popFrame()
	}
	return err
}
