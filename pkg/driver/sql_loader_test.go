package driver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLLoaderRoundTrip(t *testing.T) {
	loader, err := OpenSQLLoader(filepath.Join(t.TempDir(), "templates.db"))
	require.NoError(t, err)
	t.Cleanup(func() { loader.Close() })

	ctx := context.Background()
	require.NoError(t, loader.Put(ctx, "greeting", "- hello\n"))
	require.NoError(t, loader.Put(ctx, "about", "- about\n"))

	names, err := loader.Names(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"about", "greeting"}, names)

	tmpl, err := loader.Resolve("greeting")
	require.NoError(t, err)
	require.Equal(t, "hello", tmpl.CanonicalForm())

	again, err := loader.Resolve("greeting")
	require.NoError(t, err)
	require.Same(t, tmpl, again)

	require.NoError(t, loader.Put(ctx, "greeting", "- howdy\n"))
	updated, err := loader.Resolve("greeting")
	require.NoError(t, err)
	require.Equal(t, "howdy", updated.CanonicalForm())

	_, err = loader.Resolve("missing")
	require.True(t, errors.Is(err, ErrTemplateNotFound), "got %v", err)
}
