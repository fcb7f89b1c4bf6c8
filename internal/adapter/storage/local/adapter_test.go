package local_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/roomrate/internal/adapter/storage"
	"github.com/tigerroll/roomrate/internal/adapter/storage/local"
	"github.com/tigerroll/roomrate/internal/config"
)

func TestLocalAdapter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storage.StorageConfig{Type: "local", BaseDir: dir}, "exports")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, conn.Upload(ctx, "", "forecasts/dt=2025-01-01/a.parquet", strings.NewReader("abc"), "application/octet-stream"))
	require.NoError(t, conn.Upload(ctx, "", "other/b.txt", strings.NewReader("x"), "text/plain"))

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "", "forecasts/", func(name string) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"forecasts/dt=2025-01-01/a.parquet"}, names)

	rc, err := conn.Download(ctx, "", names[0])
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "abc", string(body))

	require.NoError(t, conn.DeleteObject(ctx, "", names[0]))
	require.NoError(t, conn.DeleteObject(ctx, "", names[0]))
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	conn, err := local.NewLocalAdapter(storage.StorageConfig{BaseDir: t.TempDir()}, "exports")
	require.NoError(t, err)
	err = conn.Upload(context.Background(), "", "../../etc/passwd", strings.NewReader("x"), "")
	assert.Error(t, err)
}

func TestResolver_OpensRegisteredType(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storage = map[string]interface{}{
		"exports": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
		"cloud":   map[string]interface{}{"type": "s3"},
	}
	r := storage.NewResolver(cfg)
	defer r.CloseAll()

	a, err := r.ResolveStorageConnection(context.Background(), "exports")
	require.NoError(t, err)
	b, err := r.ResolveStorageConnection(context.Background(), "exports")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, local.ProviderType, a.Type())

	_, err = r.ResolveStorageConnection(context.Background(), "cloud")
	assert.Error(t, err)
	_, err = r.ResolveStorageConnection(context.Background(), "missing")
	assert.Error(t, err)
}
