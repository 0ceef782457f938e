package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	status   int
	body     string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, b)
	f.mu.Unlock()
	if f.status != 0 && f.status != http.StatusOK {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func newTestGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("AWS_MAX_ATTEMPTS", "1")
	g, err := New(context.Background(), Options{
		Region:          "us-east-1",
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "secret",
		Bucket:          "ashray-test",
		Endpoint:        srv.URL,
	})
	require.NoError(t, err)
	g.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return g
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	g := newTestGateway(t, fake)

	res, err := g.Upload(context.Background(), []byte("image-bytes"), "image/png", "rx.png", "")
	require.NoError(t, err)

	assert.Equal(t, "prescriptions/1700000000000-rx.png", res.Key)
	assert.Equal(t, "https://ashray-test.s3.amazonaws.com/prescriptions/1700000000000-rx.png", res.URL)
	assert.Equal(t, "ashray-test", res.Bucket)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodPut, fake.requests[0].Method)
	assert.Equal(t, "/ashray-test/prescriptions/1700000000000-rx.png", fake.requests[0].URL.Path)
	assert.Equal(t, "image/png", fake.requests[0].Header.Get("Content-Type"))
}

func TestUpload_ProviderError(t *testing.T) {
	fake := &fakeS3{
		status: http.StatusForbidden,
		body:   `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`,
	}
	g := newTestGateway(t, fake)

	_, err := g.Upload(context.Background(), []byte("x"), "image/png", "rx.png", "prescriptions")
	require.Error(t, err)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "upload", se.Op)
	assert.Equal(t, "AccessDenied", se.Code)
	assert.Equal(t, "Access Denied", se.Message)
}

func TestNotConfigured(t *testing.T) {
	var g *Gateway
	_, err := g.Upload(context.Background(), []byte("x"), "image/png", "rx.png", "")
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeNotConfigured, se.Code)
}

func TestPresign(t *testing.T) {
	g := newTestGateway(t, &fakeS3{})

	get, err := g.SignedURL(context.Background(), "prescriptions/a.png", 0)
	require.NoError(t, err)
	assert.Contains(t, get, "/ashray-test/prescriptions/a.png")
	assert.Contains(t, get, "X-Amz-Expires=3600")

	put, err := g.PresignUpload(context.Background(), "prescriptions/b.pdf", "application/pdf", UploadURLTTL)
	require.NoError(t, err)
	assert.Contains(t, put, "X-Amz-Expires=300")
	assert.Contains(t, strings.ToLower(put), "content-type")
}

func TestDelete(t *testing.T) {
	fake := &fakeS3{}
	g := newTestGateway(t, fake)
	require.NoError(t, g.Delete(context.Background(), "prescriptions/a.png"))
	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodDelete, fake.requests[0].Method)
}

func TestLocalDisk(t *testing.T) {
	root := t.TempDir()
	d := NewLocalDisk(root)

	f, err := d.Save([]byte("pdf-bytes"), "scan.PDF")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(f.Filename, ".pdf"))
	assert.Equal(t, "/uploads/prescriptions/"+f.Filename, f.URL)
	assert.Equal(t, filepath.Join(root, "prescriptions", f.Filename), f.Path)

	data, err := d.Read(f.Filename)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))

	require.NoError(t, d.Remove(f.Filename))
	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, d.Remove(f.Filename))

	_, err = d.Read("../secrets")
	assert.Error(t, err)
}

func TestLocalDisk_Unwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewLocalDisk(file).Save([]byte("x"), "a.png")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "my_rx__1_.png", SanitizeFilename("my rx (1).png"))
	assert.True(t, AllowedExt("scan.JPEG"))
	assert.False(t, AllowedExt("notes.txt"))
	assert.Equal(t, "application/pdf", ContentTypeFor("a.pdf"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("a.gif"))
	assert.True(t, AllowedMIME("image/png"))
	assert.False(t, AllowedMIME("text/plain"))

	assert.True(t, IsPrescriptionKey("prescriptions/1700000000000-scan.pdf"))
	assert.False(t, IsPrescriptionKey("other/victim-owned.pdf"))
	assert.False(t, IsPrescriptionKey("prescriptions/nested/a.pdf"))
	assert.False(t, IsPrescriptionKey("prescriptions/../secrets.pdf"))
	assert.False(t, IsPrescriptionKey("prescriptions/notes.txt"))
	assert.False(t, IsPrescriptionKey("prescriptions/"))
}
