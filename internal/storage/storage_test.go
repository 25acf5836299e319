package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kiranshivaraju/docingest/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	s, err := NewS3Store(context.Background(), config.StorageConfig{
		Bucket:          "docs",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
		PresignTTL:      5 * time.Minute,
	})
	require.NoError(t, err)
	return s
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filename string
		suffix   string
	}{
		{"plain", "relatorio.pdf", "-relatorio.pdf"},
		{"spaces and accents", "Relatório Anual 2025.pdf", "-Relat_rio_Anual_2025.pdf"},
		{"path traversal", "../../etc/passwd", "-passwd"},
		{"windows path", `C:\Users\ana\ata.docx`, "-ata.docx"},
		{"nothing usable", "...", "-file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := ObjectKey(tt.filename, now)
			assert.True(t, strings.HasPrefix(key, "uploads/2026/03/"), key)
			assert.True(t, strings.HasSuffix(key, tt.suffix), key)
			assert.NoError(t, ValidateKey(key))
		})
	}

	assert.NotEqual(t, ObjectKey("a.pdf", now), ObjectKey("a.pdf", now))
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", "secrets/key.pem", "uploads/../secrets", "uploads//x", "/uploads/x"} {
		assert.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
	assert.NoError(t, ValidateKey("uploads/2026/03/abc-file.pdf"))
}

func TestPresignPut(t *testing.T) {
	s := newTestStore(t, "http://minio.test:9000")

	url, err := s.PresignPut(context.Background(), "uploads/2026/03/abc-a.pdf", "application/pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://minio.test:9000/docs/uploads/2026/03/abc-a.pdf?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=300")

	_, err = s.PresignPut(context.Background(), "other/a.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDelete(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL)
	require.NoError(t, s.Delete(context.Background(), "uploads/2026/03/abc-a.pdf"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/docs/uploads/2026/03/abc-a.pdf", gotPath)
}

func TestDownload(t *testing.T) {
	body := []byte("PK\x03\x04 conteúdo do documento")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/uploads/2026/03/abc-ata.docx" {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes 0-%d/%d", len(body)-1, len(body)))
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL)

	got, err := s.Download(context.Background(), "uploads/2026/03/abc-ata.docx")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	_, err = s.Download(context.Background(), "uploads/2026/03/missing.docx")
	assert.ErrorIs(t, err, ErrNotFound)
}
