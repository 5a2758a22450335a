package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"ftl/interpreter-go/pkg/ast"
)

const templatesSchema = `CREATE TABLE IF NOT EXISTS templates (
	name   TEXT PRIMARY KEY,
	source TEXT NOT NULL
)`

// SQLLoader reads template fixtures from the templates table of a SQLite
// database. Decoded templates are cached for the lifetime of the loader.
type SQLLoader struct {
	db      *sql.DB
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]*ast.Template
}

// OpenSQLLoader opens (creating if needed) the database at dbPath.
func OpenSQLLoader(dbPath string) (*SQLLoader, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sql loader: db path cannot be empty")
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=busy_timeout(5000)", dbPath))
	if err != nil {
		return nil, fmt.Errorf("sql loader: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	loader := &SQLLoader{db: db, timeout: 5 * time.Second, cache: make(map[string]*ast.Template)}
	ctx, cancel := context.WithTimeout(context.Background(), loader.timeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, templatesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sql loader: create schema: %w", err)
	}
	return loader, nil
}

// Close releases the database handle.
func (l *SQLLoader) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Put stores or replaces the fixture source of a template and drops any
// cached decode of it.
func (l *SQLLoader) Put(ctx context.Context, name, source string) error {
	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO templates (name, source) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET source = excluded.source`, name, source); err != nil {
		return fmt.Errorf("sql loader: store %s: %w", name, err)
	}
	l.mu.Lock()
	delete(l.cache, name)
	l.mu.Unlock()
	return nil
}

// Names lists the stored template names in order.
func (l *SQLLoader) Names(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT name FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sql loader: list templates: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sql loader: scan template name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (l *SQLLoader) Resolve(name string) (*ast.Template, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	return l.ResolveContext(ctx, name)
}

// ResolveContext is Resolve bounded by ctx.
func (l *SQLLoader) ResolveContext(ctx context.Context, name string) (*ast.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tmpl, ok := l.cache[name]; ok {
		return tmpl, nil
	}
	var source string
	err := l.db.QueryRowContext(ctx, `SELECT source FROM templates WHERE name = ?`, name).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &TemplateNotFoundError{Name: name, Tried: []string{"sqlite:templates"}}
	}
	if err != nil {
		return nil, fmt.Errorf("sql loader: load %s: %w", name, err)
	}
	tmpl, err := DecodeTemplate(name, "sqlite:templates/"+name, []byte(source))
	if err != nil {
		return nil, err
	}
	l.cache[name] = tmpl
	return tmpl, nil
}
