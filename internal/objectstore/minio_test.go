package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"path style", "http://localhost:9000/fish-photos/anna/1718440000.jpg", "anna/1718440000.jpg", false},
		{"public storage url", "https://x.example.co/storage/v1/object/public/fish-photos/anna/a.jpg", "anna/a.jpg", false},
		{"escaped key", "http://minio:9000/fish-photos/anna/mein%20hecht.jpg", "anna/mein hecht.jpg", false},
		{"query ignored", "http://minio:9000/fish-photos/anna/a.jpg?X-Amz-Expires=60", "anna/a.jpg", false},
		{"bare key", "anna/a.jpg", "anna/a.jpg", false},
		{"bare key with bucket", "/fish-photos/anna/a.jpg", "anna/a.jpg", false},
		{"other bucket", "http://minio:9000/images/anna/a.jpg", "", true},
		{"bucket without key", "http://minio:9000/fish-photos/", "", true},
		{"empty", "  ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectKey(tt.url, "fish-photos")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestDeleteRejectsForeignURL(t *testing.T) {
	store, err := New(Config{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "fish-photos"})
	require.NoError(t, err)

	err = store.Delete(context.Background(), "http://localhost:9000/other/a.jpg")
	assert.ErrorContains(t, err, "not in bucket")
}
