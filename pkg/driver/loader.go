package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ftl/interpreter-go/pkg/ast"
)

// ErrTemplateNotFound is matched by every loader failure to locate a template.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateNotFoundError lists where a loader looked for a template.
type TemplateNotFoundError struct {
	Name  string
	Tried []string
	Err   error
}

func (e *TemplateNotFoundError) Error() string {
	msg := fmt.Sprintf("template %q not found", e.Name)
	if len(e.Tried) > 0 {
		msg += " (tried " + strings.Join(e.Tried, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TemplateNotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}

func (e *TemplateNotFoundError) Unwrap() error {
	return e.Err
}

// Loader resolves template names to compiled templates. Implementations are
// safe for concurrent use and return the same *ast.Template for repeated
// resolutions of a name.
type Loader interface {
	Resolve(name string) (*ast.Template, error)
}

// TemplateExtensions are tried, in order, after the bare template name.
var TemplateExtensions = []string{".yaml", ".yml"}

// MapLoader serves templates held in memory.
type MapLoader struct {
	mu        sync.RWMutex
	templates map[string]*ast.Template
}

func NewMapLoader(templates ...*ast.Template) *MapLoader {
	l := &MapLoader{templates: make(map[string]*ast.Template, len(templates))}
	for _, tmpl := range templates {
		l.Add(tmpl)
	}
	return l
}

// Add registers tmpl under its name, replacing any previous entry.
func (l *MapLoader) Add(tmpl *ast.Template) {
	if tmpl == nil {
		return
	}
	l.mu.Lock()
	l.templates[tmpl.Name] = tmpl
	l.mu.Unlock()
}

func (l *MapLoader) Resolve(name string) (*ast.Template, error) {
	l.mu.RLock()
	tmpl, ok := l.templates[name]
	l.mu.RUnlock()
	if !ok {
		return nil, &TemplateNotFoundError{Name: name, Tried: []string{"memory"}}
	}
	return tmpl, nil
}

// SearchPath describes a template search root.
type SearchPath struct {
	Path string
}

// FileLoader reads YAML template fixtures from a list of search roots. Each
// template is decoded once; later resolutions return the cached tree.
type FileLoader struct {
	searchPaths []SearchPath

	mu    sync.Mutex
	cache map[string]*ast.Template
}

// NewFileLoader normalizes and de-duplicates the search roots.
func NewFileLoader(searchPaths []SearchPath) (*FileLoader, error) {
	unique := make([]SearchPath, 0, len(searchPaths))
	seen := make(map[string]struct{}, len(searchPaths))
	for _, sp := range searchPaths {
		if sp.Path == "" {
			continue
		}
		abs, err := filepath.Abs(sp.Path)
		if err != nil {
			return nil, fmt.Errorf("loader: resolve search path %s: %w", sp.Path, err)
		}
		abs = filepath.Clean(abs)
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		unique = append(unique, SearchPath{Path: abs})
	}
	if len(unique) == 0 {
		return nil, fmt.Errorf("loader: no search paths")
	}
	return &FileLoader{searchPaths: unique, cache: make(map[string]*ast.Template)}, nil
}

// SearchPaths returns the normalized roots.
func (l *FileLoader) SearchPaths() []SearchPath {
	return append([]SearchPath(nil), l.searchPaths...)
}

func (l *FileLoader) Resolve(name string) (*ast.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tmpl, ok := l.cache[name]; ok {
		return tmpl, nil
	}
	rel, err := cleanTemplateName(name)
	if err != nil {
		return nil, &TemplateNotFoundError{Name: name, Err: err}
	}
	var tried []string
	for _, sp := range l.searchPaths {
		for _, candidate := range templateCandidates(filepath.Join(sp.Path, filepath.FromSlash(rel))) {
			tried = append(tried, candidate)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				continue
			}
			data, err := os.ReadFile(candidate)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				return nil, fmt.Errorf("loader: read %s: %w", candidate, err)
			}
			tmpl, err := DecodeTemplate(name, candidate, data)
			if err != nil {
				return nil, err
			}
			l.cache[name] = tmpl
			return tmpl, nil
		}
	}
	return nil, &TemplateNotFoundError{Name: name, Tried: tried}
}

// cleanTemplateName rejects names that would escape a search root.
func cleanTemplateName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty template name")
	}
	cleaned := filepath.ToSlash(filepath.Clean(strings.TrimPrefix(filepath.ToSlash(name), "/")))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("template name %q escapes the search roots", name)
	}
	return cleaned, nil
}

func templateCandidates(base string) []string {
	out := make([]string, 0, 1+len(TemplateExtensions))
	out = append(out, base)
	for _, ext := range TemplateExtensions {
		if strings.HasSuffix(base, ext) {
			continue
		}
		out = append(out, base+ext)
	}
	return out
}

// ChainLoader consults each loader in order and returns the first template
// found. Errors other than not-found stop the search.
type ChainLoader []Loader

func (c ChainLoader) Resolve(name string) (*ast.Template, error) {
	var tried []string
	for _, l := range c {
		tmpl, err := l.Resolve(name)
		if err == nil {
			return tmpl, nil
		}
		var nf *TemplateNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
		tried = append(tried, nf.Tried...)
	}
	return nil, &TemplateNotFoundError{Name: name, Tried: tried}
}
