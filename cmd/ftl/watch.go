package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"ftl/interpreter-go/pkg/driver"
	"ftl/interpreter-go/pkg/telemetry"
)

type watchOptions struct {
	debounce    time.Duration
	metricsAddr string
}

func newWatchCmd(c *cli) *cobra.Command {
	opts := watchOptions{debounce: 100 * time.Millisecond}
	cmd := &cobra.Command{
		Use:   "watch <template>",
		Short: "Re-render a template whenever its inputs change",
		Long: `Render a template, then render it again whenever a template under the
search roots, the data model, the document or the manifest changes. Bursts of
file events are coalesced into one render.

Templates served from a git repository or a database are not watched.

Examples:
  # Watch and expose render metrics
  ftl watch page --data data.yaml --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.watch(ctx, args[0], opts)
		},
	}
	addInputFlags(cmd, c)
	cmd.Flags().DurationVar(&opts.debounce, "debounce", opts.debounce, "quiet period before re-rendering")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func (c *cli) watch(ctx context.Context, templateArg string, opts watchOptions) error {
	cfg, err := c.configure(templateArg)
	if err != nil {
		return err
	}
	logger := cfg.logger

	var metrics *telemetry.RenderMetrics
	if cfg.metricsEnabled || opts.metricsAddr != "" {
		metrics = telemetry.NewRenderMetrics(cfg.metricsNamespace, nil)
	}
	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, metrics, logger)
		defer stopMetrics(srv, logger, 2*time.Second)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	files := c.watchedFiles(cfg)
	for _, root := range cfg.watchRoots() {
		if err := addTree(watcher, root); err != nil {
			return err
		}
	}
	for file := range files {
		if err := watcher.Add(filepath.Dir(file)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", file, err)
		}
	}
	logger.Info("watching", "template", cfg.name, "roots", cfg.watchRoots(), "debounce", opts.debounce)

	renderOnce := func() {
		current, err := c.configure(templateArg)
		if err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return
		}
		interp, closeFn, err := current.newInterpreter(metrics)
		if err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return
		}
		defer closeFn()
		if err := c.render(current, interp, c.stdout); err != nil && !errors.Is(err, errRenderFailed) {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
		}
		fmt.Fprintln(c.stdout)
	}
	renderOnce()

	reload := make(chan struct{}, 1)
	deb := newDebouncer(opts.debounce, func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	})
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !shouldReload(event, files) {
				continue
			}
			logger.Debug("file event", "path", event.Name, "op", event.Op.String())
			deb.trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)
		case <-reload:
			renderOnce()
		}
	}
}

// watchedFiles are the individual inputs outside the template roots.
func (c *cli) watchedFiles(cfg *config) map[string]struct{} {
	files := make(map[string]struct{})
	for _, path := range []string{c.dataPath, c.docPath} {
		if path == "" {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			files[abs] = struct{}{}
		}
	}
	if cfg.manifest != nil {
		files[cfg.manifest.Path] = struct{}{}
	}
	return files
}

func shouldReload(event fsnotify.Event, files map[string]struct{}) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if abs, err := filepath.Abs(event.Name); err == nil {
		if _, ok := files[abs]; ok {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, valid := range driver.TemplateExtensions {
		if ext == valid {
			return true
		}
	}
	return false
}

// addTree watches dir and every non-hidden directory below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		return nil
	})
}

func serveMetrics(addr string, metrics *telemetry.RenderMetrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// stopMetrics waits up to timeout for in-flight scrapes to finish.
func stopMetrics(srv *http.Server, logger *slog.Logger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown failed", "error", err)
	}
}

// debouncer runs fn once events stop arriving for interval.
type debouncer struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration, fn func()) *debouncer {
	return &debouncer{interval: interval, fn: fn}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()
	if !stopped {
		d.fn()
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
