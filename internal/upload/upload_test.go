package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/photo-capture/internal/logging"
	"github.com/tomasbasham/photo-capture/internal/storage"
)

type fakeBucket struct {
	putErr  error
	linkErr error
	url     string

	puts  []string
	links []string
	body  string
	ctype string
}

func (b *fakeBucket) Put(_ context.Context, req *storage.PutRequest) (*storage.Object, error) {
	b.puts = append(b.puts, req.ObjectName)
	if b.putErr != nil {
		return nil, b.putErr
	}
	data, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, err
	}
	b.body = string(data)
	b.ctype = req.ContentType
	return &storage.Object{Name: req.ObjectName, Size: int64(len(data))}, nil
}

func (b *fakeBucket) DownloadURL(_ context.Context, name string) (string, error) {
	b.links = append(b.links, name)
	if b.linkErr != nil {
		return "", b.linkErr
	}
	return b.url, nil
}

func (b *fakeBucket) ConsoleURL() string { return "https://console.example/bucket" }

type fakeOpener struct {
	err    error
	opened []string
}

func (o *fakeOpener) Open(_ context.Context, url string) error {
	o.opened = append(o.opened, url)
	return o.err
}

func writePhoto(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "2024-05-06-07-08-09-010.jpg")
	require.NoError(t, os.WriteFile(p, []byte("jpeg"), 0o644))
	return p
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "photo.jpg", ObjectName("/var/media/photo.jpg"))
	assert.Equal(t, "photo.jpg", ObjectName("photo.jpg"))
	assert.Equal(t, "media", ObjectName("/var/media/"))

	for _, p := range []string{"", "/"} {
		name := ObjectName(p)
		require.True(t, strings.HasSuffix(name, ".jpg"), name)
		_, err := uuid.Parse(strings.TrimSuffix(name, ".jpg"))
		assert.NoError(t, err, "expected a UUID name for %q, got %q", p, name)
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "images/a.jpg", Key("/tmp/a.jpg"))
}

func TestCoordinator_PushThenLink(t *testing.T) {
	bucket := &fakeBucket{url: "https://cdn.example/images/x.jpg"}
	c := NewCoordinator(bucket, nil, nil)
	p := writePhoto(t)

	key, err := c.Push(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "images/2024-05-06-07-08-09-010.jpg", key)

	u, err := c.Link(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/images/x.jpg", u)

	assert.Equal(t, []string{"images/2024-05-06-07-08-09-010.jpg"}, bucket.puts)
	assert.Equal(t, []string{"images/2024-05-06-07-08-09-010.jpg"}, bucket.links)
	assert.Equal(t, "jpeg", bucket.body)
	assert.Equal(t, "image/jpeg", bucket.ctype)
}

func TestCoordinator_PushLogsWrittenSize(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	c := NewCoordinator(&fakeBucket{}, nil, log)

	_, err := c.Push(context.Background(), writePhoto(t))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="object written"`)
	assert.Contains(t, out, "object=images/2024-05-06-07-08-09-010.jpg")
	assert.Contains(t, out, "bytes=4")
}

func TestCoordinator_PushFailure(t *testing.T) {
	bucket := &fakeBucket{putErr: errors.New("network down")}
	c := NewCoordinator(bucket, nil, nil)

	_, err := c.Push(context.Background(), writePhoto(t))
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Contains(t, err.Error(), "network down")
	assert.Len(t, bucket.puts, 1, "no retry")
	assert.Empty(t, bucket.links)
}

func TestCoordinator_MissingFileIsUploadFailure(t *testing.T) {
	bucket := &fakeBucket{}
	c := NewCoordinator(bucket, nil, nil)

	_, err := c.Push(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"))
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Empty(t, bucket.puts)
}

func TestCoordinator_LinkFailure(t *testing.T) {
	bucket := &fakeBucket{linkErr: errors.New("denied")}
	c := NewCoordinator(bucket, nil, nil)

	u, err := c.Link(context.Background(), "images/a.jpg")
	assert.ErrorIs(t, err, ErrLinkFetchFailed)
	assert.Contains(t, err.Error(), "denied")
	assert.Empty(t, u)
	assert.Len(t, bucket.links, 1, "no retry")
}

func TestCoordinator_EmptyLinkIsFailure(t *testing.T) {
	c := NewCoordinator(&fakeBucket{}, nil, nil)

	_, err := c.Link(context.Background(), "images/a.jpg")
	assert.ErrorIs(t, err, ErrLinkFetchFailed)
}

func TestCoordinator_Open(t *testing.T) {
	opener := &fakeOpener{}
	c := NewCoordinator(&fakeBucket{}, opener, nil)

	target, err := c.Open(context.Background(), "https://cdn.example/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.jpg", target)

	target, err = c.Open(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://console.example/bucket", target)

	assert.Equal(t, []string{"https://cdn.example/a.jpg", "https://console.example/bucket"}, opener.opened)
}

func TestCoordinator_OpenFailure(t *testing.T) {
	c := NewCoordinator(&fakeBucket{}, &fakeOpener{err: errors.New("no handler")}, nil)

	_, err := c.Open(context.Background(), "https://cdn.example/a.jpg")
	assert.ErrorIs(t, err, ErrOpenFailed)

	_, err = NewCoordinator(&fakeBucket{}, nil, nil).Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestSystemOpener_Command(t *testing.T) {
	tests := []struct {
		goos string
		name string
	}{
		{"linux", "xdg-open"},
		{"darwin", "open"},
		{"windows", "rundll32"},
	}
	for _, tt := range tests {
		o := &SystemOpener{goos: tt.goos}
		name, args := o.command("https://example.com")
		assert.Equal(t, tt.name, name)
		assert.Equal(t, "https://example.com", args[len(args)-1])
	}
}
