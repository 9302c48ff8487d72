package edge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeS3 serves objects of a single bucket with path style addressing.
type fakeS3 struct {
	bucket  string
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, ok := strings.CutPrefix(r.URL.Path, "/"+f.bucket+"/")
	body, found := f.objects[key]
	if !ok || !found {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>`+key+`</Key><BucketName>`+f.bucket+`</BucketName></Error>`)
		return
	}
	header := w.Header()
	header.Set("Content-Type", "text/css")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	header.Set("Last-Modified", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
	header.Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, body)
	}
}

func newTestBucket(t *testing.T) *BucketSource {
	t.Helper()
	srv := httptest.NewServer(&fakeS3{bucket: "assets", objects: map[string]string{"public/app.css": "body{}"}})
	t.Cleanup(srv.Close)

	source, err := NewBucketSource(BucketConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Region:    "us-east-1",
		Bucket:    "assets",
		Prefix:    "/public/",
	})
	if err != nil {
		t.Fatalf("NewBucketSource() error = %v", err)
	}
	return source
}

func TestBucketSourceOpen(t *testing.T) {
	source := newTestBucket(t)

	body, info, err := source.Open(context.Background(), "/app.css")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(data) != "body{}" || info.ContentType != "text/css" || info.Size != 6 {
		t.Fatalf("unexpected object %q %+v", data, info)
	}
}

func TestBucketSourceMissingObject(t *testing.T) {
	source := newTestBucket(t)

	_, _, err := source.Open(context.Background(), "/missing.css")
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestNewBucketSourceRequiresBucket(t *testing.T) {
	if _, err := NewBucketSource(BucketConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}
