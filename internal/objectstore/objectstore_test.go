package objectstore

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"workhub/api/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(config.S3Config{
		Endpoint:   "localhost:9000",
		AccessKey:  "minio",
		SecretKey:  "minio-secret",
		Bucket:     "attachments",
		Region:     "us-east-1",
		PresignTTL: 10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNewRequiresConfiguration(t *testing.T) {
	if _, err := New(config.S3Config{}); err == nil {
		t.Fatal("expected error without endpoint and bucket")
	}
}

func TestPresignUpload(t *testing.T) {
	s := newTestStore(t)
	upload, err := s.PresignUpload(context.Background(), 7, "notes.txt")
	if err != nil {
		t.Fatalf("PresignUpload() error = %v", err)
	}
	if !strings.HasPrefix(upload.Key, "workitems/7/") || !strings.HasSuffix(upload.Key, "/notes.txt") {
		t.Fatalf("unexpected key %q", upload.Key)
	}
	u, err := url.Parse(upload.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Host != "localhost:9000" || !strings.HasPrefix(u.Path, "/attachments/workitems/7/") {
		t.Fatalf("unexpected presigned url %s", upload.URL)
	}
	if u.Query().Get("X-Amz-Signature") == "" || u.Query().Get("X-Amz-Expires") != "600" {
		t.Fatalf("missing signature params in %s", upload.URL)
	}
	if !s.Owns(7, upload.Key) || s.Owns(8, upload.Key) {
		t.Fatal("Owns should match only the allocating work item")
	}
}

func TestPresignDownloadSetsFileName(t *testing.T) {
	s := newTestStore(t)
	raw, err := s.PresignDownload(context.Background(), "workitems/7/abc/notes.txt", "notes.txt")
	if err != nil {
		t.Fatalf("PresignDownload() error = %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if got := u.Query().Get("response-content-disposition"); got != "attachment; filename=notes.txt" {
		t.Fatalf("content disposition = %q", got)
	}
}

func TestObjectURL(t *testing.T) {
	s := newTestStore(t)
	if got := s.ObjectURL("workitems/1/x/a.png"); got != "http://localhost:9000/attachments/workitems/1/x/a.png" {
		t.Fatalf("ObjectURL() = %q", got)
	}
	if s.Owns(1, "workitems/1/../2/a.png") {
		t.Fatal("keys with .. must not be owned")
	}
}
