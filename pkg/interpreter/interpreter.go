package interpreter

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"ftl/interpreter-go/pkg/ast"
	"ftl/interpreter-go/pkg/driver"
	"ftl/interpreter-go/pkg/runtime"
	"ftl/interpreter-go/pkg/telemetry"
)

// FallbackPolicy decides what happens to a document node no handler matches.
type FallbackPolicy string

const (
	// FallbackStrict copies text, descends into documents, skips comments and
	// processing instructions and fails on anything else.
	FallbackStrict FallbackPolicy = "strict"
	// FallbackText copies text nodes and descends into every other node.
	FallbackText FallbackPolicy = "text"
	// FallbackSkip drops unhandled nodes entirely.
	FallbackSkip FallbackPolicy = "skip"
)

// ParseFallbackPolicy accepts the manifest spelling of a policy. The empty
// string selects FallbackStrict.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(s) {
	case "", FallbackStrict:
		return FallbackStrict, nil
	case FallbackText:
		return FallbackText, nil
	case FallbackSkip:
		return FallbackSkip, nil
	}
	return "", fmt.Errorf("unknown fallback policy %q", s)
}

// Interpreter holds engine configuration shared by every render. It is safe
// for concurrent use; each render gets its own Environment.
type Interpreter struct {
	loader   driver.Loader
	logger   *slog.Logger
	metrics  *telemetry.RenderMetrics
	fallback FallbackPolicy

	originsMu sync.RWMutex
	origins   map[ast.Node]string
	annotated map[*ast.Template]struct{}
}

type Option func(*Interpreter)

// WithLoader sets the collaborator used by #import, #include and RenderNamed.
func WithLoader(loader driver.Loader) Option {
	return func(i *Interpreter) { i.loader = loader }
}

func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func WithMetrics(metrics *telemetry.RenderMetrics) Option {
	return func(i *Interpreter) { i.metrics = metrics }
}

func WithFallbackPolicy(policy FallbackPolicy) Option {
	return func(i *Interpreter) {
		if policy != "" {
			i.fallback = policy
		}
	}
}

// New returns an interpreter. Without a loader every import fails.
//
// The interpreter remembers the origin of every template it resolves for as
// long as it lives, so memory grows with the number of distinct
// *ast.Template values the loader hands out. Resolving the same template again
// costs nothing. Hosts whose loader returns a fresh tree after each reload
// should build a new Interpreter per generation of templates.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		loader:    driver.NewMapLoader(),
		logger:    telemetry.DiscardLogger(),
		fallback:  FallbackStrict,
		origins:   make(map[ast.Node]string),
		annotated: make(map[*ast.Template]struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Interpreter) Loader() driver.Loader            { return i.loader }
func (i *Interpreter) FallbackPolicy() FallbackPolicy   { return i.fallback }
func (i *Interpreter) Metrics() *telemetry.RenderMetrics { return i.metrics }

// Render runs tmpl against data and writes the result to out. data is passed
// through runtime.Wrap and must expose the hash capability (nil means an empty
// data model).
//
// Output is streamed: when Render fails, whatever was written to out before
// the failure stays there. Callers that need all-or-nothing output should
// render into a buffer.
func (i *Interpreter) Render(out io.Writer, tmpl *ast.Template, data any) error {
	env, err := i.NewEnvironment(out, tmpl, data)
	if err != nil {
		return err
	}
	return env.Process()
}

// RenderNamed resolves name through the loader and renders it.
func (i *Interpreter) RenderNamed(out io.Writer, name string, data any) error {
	tmpl, err := i.loader.Resolve(name)
	if err != nil {
		return err
	}
	return i.Render(out, tmpl, data)
}

func (i *Interpreter) resolve(name string) (*ast.Template, error) {
	tmpl, err := i.loader.Resolve(name)
	if err != nil {
		return nil, err
	}
	i.register(tmpl)
	return tmpl, nil
}

// register records the originating template of every node in tmpl so that
// diagnostics can name it.
func (i *Interpreter) register(tmpl *ast.Template) {
	if tmpl == nil {
		return
	}
	i.originsMu.RLock()
	_, done := i.annotated[tmpl]
	i.originsMu.RUnlock()
	if done {
		return
	}
	i.originsMu.Lock()
	defer i.originsMu.Unlock()
	if _, done := i.annotated[tmpl]; done {
		return
	}
	ast.AnnotateOrigins(tmpl.Root, tmpl.Name, i.origins)
	i.annotated[tmpl] = struct{}{}
}

func (i *Interpreter) originOf(node ast.Node) string {
	if node == nil {
		return ""
	}
	i.originsMu.RLock()
	defer i.originsMu.RUnlock()
	return i.origins[node]
}

func wrapDataModel(data any) (runtime.Hash, error) {
	if data == nil {
		return runtime.NewSimpleHash(), nil
	}
	val, err := runtime.Wrap(data)
	if err != nil {
		return nil, fmt.Errorf("data model: %w", err)
	}
	if runtime.IsMissing(val) {
		return runtime.NewSimpleHash(), nil
	}
	hash, ok := val.(runtime.Hash)
	if !ok {
		return nil, fmt.Errorf("data model: expected a hash, got %s", runtime.Describe(val))
	}
	return hash, nil
}
