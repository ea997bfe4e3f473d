package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"stabledesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads/")
	require.NoError(t, err)
	ls.now = func() time.Time { return time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	key, err := ls.Store(ctx, "horses/abc", "my photo.jpg", strings.NewReader("jpeg"), 4, "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "horses/abc/2025/03/"), key)
	assert.True(t, strings.HasSuffix(key, "_my photo.jpg"), key)
	assert.Equal(t, "/uploads/"+key, ls.URL(key))

	ok, err := ls.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ls.Delete(ctx, key))
	ok, err = ls.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, ls.Delete(ctx, key), "deleting a missing object is not an error")
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = ls.Exists(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, ls.Delete(context.Background(), "../outside"), ErrInvalidKey)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "horse.png", want: "horse.png"},
		{name: "separators", in: "../a/b\\c.png", want: "__a_b_c.png"},
		{name: "reserved", in: `a:b*c?d"e<f>g|h`, want: "a_b_c_d_e_f_g_h"},
		{name: "empty", in: "  ", want: "upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}

func TestS3URL(t *testing.T) {
	aws := &S3Storage{config: S3Config{Bucket: "photos", Region: "eu-west-1"}}
	assert.Equal(t, "https://photos.s3.eu-west-1.amazonaws.com/k.jpg", aws.URL("k.jpg"))

	minio := &S3Storage{config: S3Config{Bucket: "photos", Endpoint: "http://localhost:9000/"}}
	assert.Equal(t, "http://localhost:9000/photos/k.jpg", minio.URL("k.jpg"))
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
