package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the conventional manifest name looked up by the CLI.
const ManifestFileName = "ftl.yml"

// Manifest represents the parsed contents of ftl.yml.
type Manifest struct {
	Path     string
	Name     string
	Roots    []string
	Fallback string
	Git      *GitConfig
	Database string
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type manifestFile struct {
	Name     string        `yaml:"name"`
	Roots    []string      `yaml:"roots"`
	Fallback string        `yaml:"fallback"`
	Git      *GitConfig    `yaml:"git"`
	Database string        `yaml:"database"`
	Logging  LoggingConfig `yaml:"logging"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses ftl.yml from disk, returning a validated manifest with
// relative paths resolved against the manifest directory.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (raw manifestFile) toManifest(path string) *Manifest {
	base := filepath.Dir(path)
	m := &Manifest{
		Path:     path,
		Name:     strings.TrimSpace(raw.Name),
		Fallback: strings.TrimSpace(raw.Fallback),
		Logging:  raw.Logging,
		Metrics:  raw.Metrics,
	}
	if m.Fallback == "" {
		m.Fallback = "strict"
	}
	if m.Logging.Level == "" {
		m.Logging.Level = "info"
	}
	if m.Logging.Format == "" {
		m.Logging.Format = "text"
	}
	if m.Metrics.Namespace == "" {
		m.Metrics.Namespace = "ftl"
	}
	for _, root := range raw.Roots {
		m.Roots = append(m.Roots, resolveRelative(base, root))
	}
	if len(m.Roots) == 0 && raw.Git == nil && raw.Database == "" {
		m.Roots = []string{base}
	}
	if raw.Git != nil {
		git := *raw.Git
		git.Repository = resolveRelative(base, git.Repository)
		m.Git = &git
	}
	if raw.Database != "" {
		m.Database = resolveRelative(base, raw.Database)
	}
	return m
}

func resolveRelative(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, filepath.FromSlash(p))
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	for i, root := range m.Roots {
		if root == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("roots[%d] must be a non-empty path", i))
		}
	}
	switch m.Fallback {
	case "strict", "text", "skip":
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("fallback %q must be one of strict, text, skip", m.Fallback))
	}
	if m.Git != nil && m.Git.Repository == "" {
		errs.Issues = append(errs.Issues, "git.repository must be provided")
	}
	switch strings.ToLower(m.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("logging.level %q must be one of debug, info, warn, error", m.Logging.Level))
	}
	switch strings.ToLower(m.Logging.Format) {
	case "text", "json":
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("logging.format %q must be text or json", m.Logging.Format))
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// BuildLoader assembles the loaders the manifest configures, consulted in the
// order git, database, file roots.
func (m *Manifest) BuildLoader() (Loader, func() error, error) {
	var loaders []Loader
	closeFn := func() error { return nil }
	if m.Git != nil {
		gl, err := NewGitLoader(*m.Git)
		if err != nil {
			return nil, nil, err
		}
		loaders = append(loaders, gl)
	}
	if m.Database != "" {
		sl, err := OpenSQLLoader(m.Database)
		if err != nil {
			return nil, nil, err
		}
		loaders = append(loaders, sl)
		closeFn = sl.Close
	}
	if len(m.Roots) > 0 {
		paths := make([]SearchPath, 0, len(m.Roots))
		for _, root := range m.Roots {
			paths = append(paths, SearchPath{Path: root})
		}
		fl, err := NewFileLoader(paths)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		loaders = append(loaders, fl)
	}
	if len(loaders) == 1 {
		return loaders[0], closeFn, nil
	}
	return ChainLoader(loaders), closeFn, nil
}

// FindManifest walks up from start looking for ftl.yml.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, ManifestFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", ManifestFileName, origin, os.ErrNotExist)
		}
		dir = parent
	}
}
