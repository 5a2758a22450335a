package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ftl/interpreter-go/pkg/driver"
	"ftl/interpreter-go/pkg/interpreter"
	"ftl/interpreter-go/pkg/runtime"
	"ftl/interpreter-go/pkg/telemetry"
)

// errRenderFailed is returned once the failure has already been described on
// stderr.
var errRenderFailed = errors.New("render failed")

type cli struct {
	stdout io.Writer
	stderr io.Writer

	manifestPath string
	roots        []string
	fallback     string
	logLevel     string
	logFormat    string

	dataPath string
	docPath  string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "ftl",
		Short: "Render templates stored as YAML AST fixtures",
		Long: `ftl renders templates whose syntax trees are stored as YAML fixtures.

Templates are resolved by name through the loaders configured in ftl.yml
(git repository, sqlite database, file roots) or through --root directories.
A template argument naming an existing file adds its directory as a root.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.manifestPath, "manifest", "m", "", "manifest file (default: nearest "+driver.ManifestFileName+")")
	flags.StringSliceVarP(&c.roots, "root", "r", nil, "template search root (repeatable)")
	flags.StringVar(&c.fallback, "fallback", "", "policy for unhandled document nodes: strict, text, skip")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", "", "log format: text, json")

	root.AddCommand(
		newRenderCmd(c),
		newDumpCmd(c),
		newWatchCmd(c),
		newVersionCmd(c),
	)
	return root
}

// config is everything needed to build an interpreter for one template.
type config struct {
	manifest *driver.Manifest
	name     string
	roots    []string
	fallback interpreter.FallbackPolicy
	logger   *slog.Logger

	metricsEnabled   bool
	metricsNamespace string
}

func (c *cli) configure(templateArg string) (*config, error) {
	manifest, err := c.loadManifest()
	if err != nil {
		return nil, err
	}
	cfg := &config{manifest: manifest, name: templateArg, metricsNamespace: "ftl"}

	level, format, fallback := "warn", "text", ""
	if manifest != nil {
		level, format, fallback = manifest.Logging.Level, manifest.Logging.Format, manifest.Fallback
		cfg.metricsEnabled = manifest.Metrics.Enabled
		cfg.metricsNamespace = manifest.Metrics.Namespace
	}
	if c.logLevel != "" {
		level = c.logLevel
	}
	if c.logFormat != "" {
		format = c.logFormat
	}
	if c.fallback != "" {
		fallback = c.fallback
	}
	cfg.logger, err = telemetry.NewLogger(telemetry.LoggerConfig{Level: level, Format: format, Writer: c.stderr})
	if err != nil {
		return nil, err
	}
	cfg.fallback, err = interpreter.ParseFallbackPolicy(fallback)
	if err != nil {
		return nil, err
	}

	if info, statErr := os.Stat(templateArg); statErr == nil && !info.IsDir() {
		cfg.roots = append(cfg.roots, filepath.Dir(templateArg))
		cfg.name = templateName(templateArg)
	}
	cfg.roots = append(cfg.roots, c.roots...)
	if manifest == nil && len(cfg.roots) == 0 {
		cfg.roots = []string{"."}
	}
	return cfg, nil
}

// loadManifest reads --manifest, or the nearest ftl.yml when the flag is
// absent. No manifest at all is not an error.
func (c *cli) loadManifest() (*driver.Manifest, error) {
	path := c.manifestPath
	if path == "" {
		found, err := driver.FindManifest(".")
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		path = found
	}
	return driver.LoadManifest(path)
}

// watchRoots lists the directories a change under which should re-render.
func (cfg *config) watchRoots() []string {
	roots := append([]string(nil), cfg.roots...)
	if cfg.manifest != nil {
		roots = append(roots, cfg.manifest.Roots...)
	}
	return roots
}

// newInterpreter assembles the loader chain: roots from the command line
// first, then whatever the manifest configures.
func (cfg *config) newInterpreter(metrics *telemetry.RenderMetrics) (*interpreter.Interpreter, func() error, error) {
	var loaders driver.ChainLoader
	closeFn := func() error { return nil }
	if len(cfg.roots) > 0 {
		paths := make([]driver.SearchPath, 0, len(cfg.roots))
		for _, root := range cfg.roots {
			paths = append(paths, driver.SearchPath{Path: root})
		}
		fl, err := driver.NewFileLoader(paths)
		if err != nil {
			return nil, nil, err
		}
		loaders = append(loaders, fl)
	}
	if cfg.manifest != nil {
		ml, mClose, err := cfg.manifest.BuildLoader()
		if err != nil {
			return nil, nil, err
		}
		loaders = append(loaders, ml)
		closeFn = mClose
	}
	interp := interpreter.New(
		interpreter.WithLoader(loaders),
		interpreter.WithLogger(cfg.logger),
		interpreter.WithMetrics(metrics),
		interpreter.WithFallbackPolicy(cfg.fallback),
	)
	return interp, closeFn, nil
}

// render resolves the template and runs it against the data model and
// document named on the command line.
func (c *cli) render(cfg *config, interp *interpreter.Interpreter, out io.Writer) error {
	tmpl, err := interp.Loader().Resolve(cfg.name)
	if err != nil {
		return err
	}
	model, doc, err := c.dataModel()
	if err != nil {
		return err
	}
	env, err := interp.NewEnvironment(out, tmpl, model)
	if err != nil {
		return err
	}
	if doc != nil {
		env.SetCurrentNode(doc)
	}
	cfg.logger.Debug("rendering", "template", tmpl.Name, "render_id", env.RenderID())
	if err := env.Process(); err != nil {
		fmt.Fprintln(c.stderr, interpreter.DescribeTemplateError(err))
		return errRenderFailed
	}
	return nil
}

// dataModel merges --data with the --doc document, bound as "doc".
func (c *cli) dataModel() (*runtime.SimpleHash, *runtime.Element, error) {
	model := runtime.NewSimpleHash()
	if c.dataPath != "" {
		data, err := driver.LoadData(c.dataPath)
		if err != nil {
			return nil, nil, err
		}
		if ex, ok := data.(runtime.HashEx); ok {
			keys, err := ex.Keys()
			if err != nil {
				return nil, nil, err
			}
			for _, key := range keys {
				val, err := ex.Get(key)
				if err != nil {
					return nil, nil, err
				}
				model.Put(key, val)
			}
		}
	}
	var doc *runtime.Element
	if c.docPath != "" {
		var err error
		doc, err = driver.LoadDocument(c.docPath)
		if err != nil {
			return nil, nil, err
		}
		model.Put("doc", doc)
	}
	return model, doc, nil
}

func templateName(path string) string {
	base := filepath.Base(path)
	for _, ext := range driver.TemplateExtensions {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

func addInputFlags(cmd *cobra.Command, c *cli) {
	cmd.Flags().StringVarP(&c.dataPath, "data", "d", "", "YAML data model file")
	cmd.Flags().StringVar(&c.docPath, "doc", "", "YAML document bound as doc and used as the current node")
}
