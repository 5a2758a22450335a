package driver

import (
	"errors"
	"fmt"
	"path"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"ftl/interpreter-go/pkg/ast"
)

// GitConfig selects the tree a GitLoader reads templates from.
type GitConfig struct {
	Repository string `yaml:"repository"`
	Revision   string `yaml:"revision"`
	Dir        string `yaml:"dir"`
}

// GitLoader reads template fixtures from a git repository at a fixed
// revision. The revision is resolved once, so every render served by the
// loader sees the same commit even if the branch moves.
type GitLoader struct {
	dir    string
	commit plumbing.Hash
	tree   *object.Tree

	mu    sync.Mutex
	cache map[string]*ast.Template
}

// NewGitLoader opens the repository at cfg.Repository and pins cfg.Revision
// (HEAD when empty).
func NewGitLoader(cfg GitConfig) (*GitLoader, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("git loader: repository path cannot be empty")
	}
	revision := cfg.Revision
	if revision == "" {
		revision = "HEAD"
	}
	repo, err := gogit.PlainOpenWithOptions(cfg.Repository, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("git loader: open %s: %w", cfg.Repository, err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("git loader: resolve %s: %w", revision, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("git loader: load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("git loader: load tree for %s: %w", hash, err)
	}
	return &GitLoader{
		dir:    path.Clean(cfg.Dir),
		commit: *hash,
		tree:   tree,
		cache:  make(map[string]*ast.Template),
	}, nil
}

// Commit is the pinned commit hash.
func (l *GitLoader) Commit() string {
	return l.commit.String()
}

func (l *GitLoader) Resolve(name string) (*ast.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tmpl, ok := l.cache[name]; ok {
		return tmpl, nil
	}
	rel, err := cleanTemplateName(name)
	if err != nil {
		return nil, &TemplateNotFoundError{Name: name, Err: err}
	}
	base := rel
	if l.dir != "" && l.dir != "." {
		base = path.Join(l.dir, rel)
	}
	var tried []string
	for _, candidate := range templateCandidates(base) {
		tried = append(tried, l.commit.String()[:7]+":"+candidate)
		file, err := l.tree.File(candidate)
		if err != nil {
			if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
				continue
			}
			return nil, fmt.Errorf("git loader: read %s: %w", candidate, err)
		}
		contents, err := file.Contents()
		if err != nil {
			return nil, fmt.Errorf("git loader: read %s: %w", candidate, err)
		}
		tmpl, err := DecodeTemplate(name, candidate, []byte(contents))
		if err != nil {
			return nil, err
		}
		l.cache[name] = tmpl
		return tmpl, nil
	}
	return nil, &TemplateNotFoundError{Name: name, Tried: tried}
}
