package gcs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/option"

	"github.com/tigerroll/roomrate/internal/adapter/storage"
	"github.com/tigerroll/roomrate/internal/adapter/storage/gcs"
)

func TestNewGCSAdapter_RequiresBucket(t *testing.T) {
	_, err := gcs.NewGCSAdapter(context.Background(), storage.StorageConfig{Type: "gcs"}, "exports", option.WithoutAuthentication())
	assert.ErrorContains(t, err, "bucket_name")
}

func TestNewGCSAdapter_WithoutAuthentication(t *testing.T) {
	conn, err := gcs.NewGCSAdapter(context.Background(), storage.StorageConfig{Type: "gcs", BucketName: "rates"}, "exports", option.WithoutAuthentication())
	if assert.NoError(t, err) {
		assert.Equal(t, gcs.ProviderType, conn.Type())
		assert.Equal(t, "exports", conn.Name())
		assert.NoError(t, conn.Close())
	}
}

func TestClientOptions(t *testing.T) {
	assert.Len(t, gcs.ClientOptions(storage.StorageConfig{}), 1)
	assert.Len(t, gcs.ClientOptions(storage.StorageConfig{CredentialsFile: "/secrets/key.json"}), 2)
}
