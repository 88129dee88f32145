package featurekit_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurekit/featurekit-go"
	"github.com/featurekit/featurekit-go/flagengine/contexts"
)

func TestFileSourceLoadJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "document.json")
	require.NoError(t, os.WriteFile(path, []byte(checkoutDocument), 0o600))

	engine := featurekit.New()
	require.NoError(t, featurekit.NewFileSource(engine, path).Load())
	assert.True(t, engine.IsEnabled("checkout-v2", contexts.New("user-42", nil)))
}

func TestFileSourceLoadYAML(t *testing.T) {
	t.Parallel()

	engine := featurekit.New()
	require.NoError(t, featurekit.NewFileSource(engine, "testdata/document.yaml").Load())

	res, err := engine.Evaluate("payment-method", contexts.New("user-0", nil))
	require.NoError(t, err)
	assert.Equal(t, "card", res.Variant.Name)
	require.NotNil(t, res.Variant.Payload)
	assert.Equal(t, `{"brand": "visa"}`, res.Variant.Payload.Value)
	assert.True(t, engine.IsEnabled("checkout-v2", contexts.New("user-42", nil)))
}

func TestFileSourceErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	err := featurekit.NewFileSource(featurekit.New(), filepath.Join(dir, "missing.json")).Load()
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("version: [1"), 0o600))
	err = featurekit.NewFileSource(featurekit.New(), bad).Load()
	var parseErr *featurekit.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestFileSourceWatch(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "document.json")
	require.NoError(t, os.WriteFile(path, []byte(checkoutDocument), 0o600))

	engine := featurekit.New()
	source := featurekit.NewFileSource(engine, path, featurekit.WithFileDebounce(10*time.Millisecond))
	require.NoError(t, source.Load())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchErr := make(chan error, 1)
	go func() { watchErr <- source.Watch(ctx) }()

	user := contexts.New("user-42", nil)
	require.True(t, engine.IsEnabled("checkout-v2", user))

	disabled := []byte(`{"version": 1, "features": [{"name": "checkout-v2", "enabled": false}]}`)
	assert.Eventually(t, func() bool {
		// rewrite until the watcher is registered and picks the change up
		_ = os.WriteFile(path, disabled, 0o600)
		return !engine.IsEnabled("checkout-v2", user)
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-watchErr)
}
