package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/llm"
	"github.com/kiranshivaraju/docingest/internal/llm/mock"
	"github.com/kiranshivaraju/docingest/internal/storage"
	"github.com/kiranshivaraju/docingest/internal/store"
	"github.com/kiranshivaraju/docingest/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *Service
	store   *memStore
	cache   *memCache
	objects *memObjects
	model   *mock.Provider
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		store:   newMemStore(),
		cache:   newMemCache(),
		objects: newMemObjects(),
		model:   mock.NewProvider(),
	}
	f.svc = NewService(f.store, f.cache, f.objects, f.model, f.model, opts)
	return f
}

// paragraphs returns n blank-line separated paragraphs of about 30 tokens each.
func paragraphs(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("Parágrafo %d do relatório anual sobre a gestão de documentos da prefeitura municipal.", i+1)
	}
	return strings.Join(ps, "\n\n")
}

func textRequest(text string) models.IngestTextRequest {
	return models.IngestTextRequest{
		Title:    "Relatório",
		Category: "geral",
		FullText: text,
		FilePath: "uploads/2026/10/abc-relatorio.txt",
	}
}

// --- IngestText ---

func TestIngestText_Ready(t *testing.T) {
	f := newFixture(t, Options{ChunkTargetTokens: 40, ChunkOverlapTokens: 0, EmbedBatchSize: 2})

	res, err := f.svc.IngestText(context.Background(), textRequest(paragraphs(5)))
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusReady, res.Status)
	assert.Empty(t, res.Warning)

	doc, err := f.store.GetDocument(context.Background(), res.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc.TotalChunks)
	assert.Equal(t, 5, *doc.TotalChunks)
	assert.Equal(t, 1, doc.TotalBatches)

	total, pending, _ := f.store.CountChunks(context.Background(), res.DocumentID)
	assert.Equal(t, 5, total)
	assert.Zero(t, pending)
	assert.Equal(t, []string{
		models.DocumentStatusIngesting,
		models.DocumentStatusEmbedPending,
		models.DocumentStatusReady,
	}, f.store.statusHistory(res.DocumentID))
	assert.Zero(t, f.cache.held())
}

func TestIngestText_EmbeddingDegraded(t *testing.T) {
	f := newFixture(t, Options{ChunkTargetTokens: 40, EmbedBatchSize: 2})
	f.model.EmbedFunc = mock.NewFailingProvider(llm.ErrProviderUnavailable).EmbedFunc

	res, err := f.svc.IngestText(context.Background(), textRequest(paragraphs(3)))
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusEmbedPending, res.Status)
	assert.Equal(t, WarningEmbeddingsDegraded, res.Warning)

	_, pending, _ := f.store.CountChunks(context.Background(), res.DocumentID)
	assert.Equal(t, 3, pending)
}

func TestIngestText_EmptyTextFailsDocument(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.IngestText(context.Background(), textRequest(" \n\n \t "))
	require.ErrorIs(t, err, ErrEmptyText)

	docs, _ := f.store.ListDocuments(context.Background(), store.DocumentFilter{})
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentStatusFailed, docs[0].Status)
	require.NotNil(t, docs[0].ErrorReason)
	assert.Contains(t, *docs[0].ErrorReason, "no text")
}

// --- Batched ingestion ---

func TestBatchedIngestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{ChunkTargetTokens: 40})

	id, err := f.svc.Start(ctx, models.IngestStartRequest{Title: "Grande", Category: "geral", FilePath: "uploads/2026/10/x-grande.pdf"})
	require.NoError(t, err)

	full := paragraphs(6)
	parts := []string{full[:100], full[100:300], full[300:]}

	require.NoError(t, f.svc.AppendBatch(ctx, id, models.IngestBatchRequest{BatchText: parts[0], BatchIndex: 1, TotalBatches: 3}))

	_, err = f.svc.Finish(ctx, id)
	assert.ErrorIs(t, err, ErrIncomplete)

	err = f.svc.AppendBatch(ctx, id, models.IngestBatchRequest{BatchText: parts[2], BatchIndex: 3, TotalBatches: 3})
	assert.ErrorIs(t, err, store.ErrBatchOutOfOrder)

	require.NoError(t, f.svc.AppendBatch(ctx, id, models.IngestBatchRequest{BatchText: parts[1], BatchIndex: 2, TotalBatches: 3}))
	// A resend of the last stored batch is accepted.
	require.NoError(t, f.svc.AppendBatch(ctx, id, models.IngestBatchRequest{BatchText: parts[1], BatchIndex: 2, TotalBatches: 3}))
	require.NoError(t, f.svc.AppendBatch(ctx, id, models.IngestBatchRequest{BatchText: parts[2], BatchIndex: 3, TotalBatches: 3}))

	text, _ := f.store.GetDocumentText(ctx, id)
	assert.Equal(t, full, text)

	res, err := f.svc.Finish(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusReady, res.Status)

	again, err := f.svc.Finish(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusReady, again.Status)

	err = f.svc.AppendBatch(ctx, id, models.IngestBatchRequest{BatchText: "x", BatchIndex: 4, TotalBatches: 4})
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestAppendBatch_Invalid(t *testing.T) {
	f := newFixture(t, Options{})
	tests := []models.IngestBatchRequest{
		{BatchIndex: 0, TotalBatches: 1},
		{BatchIndex: 2, TotalBatches: 1},
		{BatchIndex: 1, TotalBatches: 0},
	}
	for _, req := range tests {
		err := f.svc.AppendBatch(context.Background(), uuid.New(), req)
		assert.ErrorIs(t, err, ErrInvalidBatch, "batch %d of %d", req.BatchIndex, req.TotalBatches)
	}
}

func TestFinish_Locked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id, err := f.svc.Start(ctx, models.IngestStartRequest{Title: "t"})
	require.NoError(t, err)

	_, ok, _ := f.cache.AcquireLock(ctx, "lock:document:"+id.String(), time.Minute)
	require.True(t, ok)

	_, err = f.svc.Finish(ctx, id)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestFinish_AbandonedUploadFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id, err := f.svc.Start(ctx, models.IngestStartRequest{Title: "Parcial", FilePath: "uploads/2026/10/p-parcial.pdf"})
	require.NoError(t, err)
	require.NoError(t, f.svc.AppendBatch(ctx, id, models.IngestBatchRequest{BatchText: paragraphs(1), BatchIndex: 1, TotalBatches: 3}))

	_, err = f.svc.Finish(ctx, id)
	assert.ErrorIs(t, err, ErrIncomplete, "a recent upload may still be sending")

	f.store.setStatus(id, models.DocumentStatusIngesting, time.Now().Add(-10*time.Minute))
	res, err := f.svc.Finish(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusFailed, res.Status)

	doc, _ := f.store.GetDocument(ctx, id)
	assert.Equal(t, models.DocumentStatusFailed, doc.Status)
	require.NotNil(t, doc.ErrorReason)
	assert.Contains(t, *doc.ErrorReason, "1 of 3")
	assert.False(t, doc.IsStuck(time.Now().Add(time.Hour)))

	// Partial text is never chunked.
	_, err = f.svc.Finish(ctx, id)
	assert.ErrorIs(t, err, ErrNotProcessable)
	_, err = f.svc.Retry(ctx, id)
	assert.ErrorIs(t, err, ErrNotProcessable)
	assert.Zero(t, f.cache.held())
}

func TestFinish_NotFound(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Finish(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, f.cache.held())
}

// --- Retry ---

func TestRetry_FromFailedAndStuck(t *testing.T) {
	ctx := context.Background()
	for _, status := range []string{models.DocumentStatusFailed, models.DocumentStatusProcessing, models.DocumentStatusEmbedPending} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t, Options{ChunkTargetTokens: 40})
			f.model.EmbedFunc = mock.NewFailingProvider(llm.ErrInferenceTimeout).EmbedFunc
			res, err := f.svc.IngestText(ctx, textRequest(paragraphs(2)))
			require.NoError(t, err)
			f.store.setStatus(res.DocumentID, status, time.Now().Add(-10*time.Minute))

			f.model.EmbedFunc = mock.NewProvider().EmbedFunc
			// Finish doubles as the retry entry point.
			out, err := f.svc.Finish(ctx, res.DocumentID)
			require.NoError(t, err)
			assert.Equal(t, models.DocumentStatusReady, out.Status)

			doc, _ := f.store.GetDocument(ctx, res.DocumentID)
			assert.Nil(t, doc.ErrorReason)
		})
	}
}

func TestRetry_ReadyIsNotProcessable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	res, err := f.svc.IngestText(ctx, textRequest(paragraphs(1)))
	require.NoError(t, err)

	_, err = f.svc.Retry(ctx, res.DocumentID)
	assert.ErrorIs(t, err, ErrNotProcessable)
}

// --- Background processing ---

func TestProcessDocument_EmbedsOneBatchPerCall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{ChunkTargetTokens: 40, EmbedBatchSize: 2})
	f.model.EmbedFunc = mock.NewFailingProvider(llm.ErrProviderUnavailable).EmbedFunc
	res, err := f.svc.IngestText(ctx, textRequest(paragraphs(5)))
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusEmbedPending, res.Status)

	f.model.EmbedFunc = mock.NewProvider().EmbedFunc
	var statuses []string
	for range 3 {
		out, err := f.svc.ProcessDocument(ctx, res.DocumentID)
		require.NoError(t, err)
		statuses = append(statuses, out.Status)
	}
	assert.Equal(t, []string{"processing", "processing", "ready"}, statuses)

	doc, _ := f.store.GetDocument(ctx, res.DocumentID)
	assert.Equal(t, models.DocumentStatusReady, doc.Status)
	assert.Equal(t, 5, *doc.TotalChunks)
}

func TestProcessDocument_EmbedFailureKeepsProcessing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.model.EmbedFunc = mock.NewFailingProvider(llm.ErrProviderUnavailable).EmbedFunc
	res, err := f.svc.IngestText(ctx, textRequest(paragraphs(1)))
	require.NoError(t, err)

	out, err := f.svc.ProcessDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusProcessing, out.Status)
	assert.Contains(t, out.Message, "retry")
}

func TestProcessDocument_RechunksWhenNoChunks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{ChunkTargetTokens: 40})
	f.model.EmbedFunc = mock.NewFailingProvider(llm.ErrProviderUnavailable).EmbedFunc
	res, err := f.svc.IngestText(ctx, textRequest(paragraphs(2)))
	require.NoError(t, err)
	require.NoError(t, f.store.ReplaceChunks(ctx, res.DocumentID, nil))

	f.model.EmbedFunc = mock.NewProvider().EmbedFunc
	out, err := f.svc.ProcessDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusReady, out.Status)

	total, _, _ := f.store.CountChunks(ctx, res.DocumentID)
	assert.Equal(t, 2, total)
}

func TestProcessDocument_States(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	id, err := f.svc.Start(ctx, models.IngestStartRequest{Title: "t"})
	require.NoError(t, err)
	out, err := f.svc.ProcessDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusProcessing, out.Status)

	f.store.setStatus(id, models.DocumentStatusFailed, time.Now())
	_, err = f.svc.ProcessDocument(ctx, id)
	assert.ErrorIs(t, err, ErrNotProcessable)

	_, ok, _ := f.cache.AcquireLock(ctx, "lock:document:"+id.String(), time.Minute)
	require.True(t, ok)
	out, err = f.svc.ProcessDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusProcessing, out.Status)
	assert.Equal(t, "document is being processed", out.Message)
}

func TestProcessNextJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{ChunkTargetTokens: 40, EmbedBatchSize: 10})

	out, err := f.svc.ProcessNextJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusIdle, out.Status)
	assert.Equal(t, uuid.Nil, out.DocumentID)

	f.model.EmbedFunc = mock.NewFailingProvider(llm.ErrProviderUnavailable).EmbedFunc
	res, err := f.svc.IngestText(ctx, textRequest(paragraphs(3)))
	require.NoError(t, err)

	f.model.EmbedFunc = mock.NewProvider().EmbedFunc
	out, err = f.svc.ProcessNextJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, out.Status)
	assert.Equal(t, res.DocumentID, out.DocumentID)

	out, err = f.svc.ProcessNextJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusIdle, out.Status)
}

func TestProcessNextJob_FailingDocumentDoesNotStarveOthers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.model.EmbedFunc = mock.NewFailingProvider(llm.ErrProviderUnavailable).EmbedFunc
	bad, err := f.svc.IngestText(ctx, textRequest("Contrato de locação. "+paragraphs(1)))
	require.NoError(t, err)
	good, err := f.svc.IngestText(ctx, textRequest(paragraphs(1)))
	require.NoError(t, err)
	// The failing document is the oldest in the queue.
	f.store.setStatus(bad.DocumentID, models.DocumentStatusEmbedPending, time.Now().Add(-time.Minute))

	healthy := mock.NewProvider().EmbedFunc
	f.model.EmbedFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if strings.Contains(text, "Contrato") {
				return nil, llm.ErrProviderUnavailable
			}
		}
		return healthy(ctx, texts)
	}

	var last *models.JobResult
	for range 5 {
		last, err = f.svc.ProcessNextJob(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, models.JobStatusProcessing, last.Status)
	assert.Equal(t, bad.DocumentID, last.DocumentID)

	doc, _ := f.store.GetDocument(ctx, good.DocumentID)
	assert.Equal(t, models.DocumentStatusReady, doc.Status)
	doc, _ = f.store.GetDocument(ctx, bad.DocumentID)
	assert.Equal(t, models.DocumentStatusEmbedPending, doc.Status)
	assert.True(t, doc.IsStuck(time.Now().Add(5*time.Minute)), "a failing document keeps its age")
}

func TestProcessNextJob_SkipsLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.model.EmbedFunc = mock.NewFailingProvider(llm.ErrProviderUnavailable).EmbedFunc
	res, err := f.svc.IngestText(ctx, textRequest(paragraphs(1)))
	require.NoError(t, err)

	_, ok, _ := f.cache.AcquireLock(ctx, "lock:document:"+res.DocumentID.String(), time.Minute)
	require.True(t, ok)

	out, err := f.svc.ProcessNextJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, out.Status)
	assert.Equal(t, uuid.Nil, out.DocumentID)
}

// --- OCR ---

func pageImage(num int, payload string) models.PageImage {
	return models.PageImage{
		PageNum: num,
		DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(payload)),
	}
}

func TestRecognizePages_JoinsInPageOrder(t *testing.T) {
	f := newFixture(t, Options{})
	var inflight, peak atomic.Int32
	f.model.RecognizePageFunc = func(_ context.Context, mimeType string, image []byte) (string, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		assert.Equal(t, "image/png", mimeType)
		if string(image) == "one" {
			time.Sleep(20 * time.Millisecond)
		}
		return "texto " + string(image), nil
	}

	text, err := f.svc.RecognizePages(context.Background(), []models.PageImage{
		pageImage(3, "three"), pageImage(1, "one"), pageImage(2, "two"),
	})
	require.NoError(t, err)
	assert.Equal(t, "texto one\ntexto two\ntexto three", text)
	assert.LessOrEqual(t, peak.Load(), int32(recognizeConcurrency))
}

func TestRecognizePages_Errors(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.RecognizePages(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidBatch)

	six := make([]models.PageImage, MaxOCRPages+1)
	for i := range six {
		six[i] = pageImage(i+1, "p")
	}
	_, err = f.svc.RecognizePages(ctx, six)
	assert.ErrorIs(t, err, ErrTooManyPages)

	_, err = f.svc.RecognizePages(ctx, []models.PageImage{{PageNum: 1, DataURL: "not a data url"}})
	assert.ErrorIs(t, err, llm.ErrInvalidDataURL)

	f.model.RecognizePageFunc = mock.NewFailingProvider(llm.ErrInferenceTimeout).RecognizePageFunc
	_, err = f.svc.RecognizePages(ctx, []models.PageImage{pageImage(7, "x")})
	assert.ErrorIs(t, err, llm.ErrInferenceTimeout)
	assert.Contains(t, err.Error(), "page 7")
}

// --- DOCX ---

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestIngestDocx(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	key := "uploads/2026/10/abc-contrato.docx"
	f.objects.objects[key] = docxBytes(t, "Contrato de prestação de serviços", "Cláusula primeira")

	res, err := f.svc.IngestDocx(ctx, models.IngestStartRequest{Title: "Contrato", Category: "juridico", FilePath: key})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusReady, res.Status)

	text, _ := f.store.GetDocumentText(ctx, res.DocumentID)
	assert.Contains(t, text, "Contrato de prestação de serviços")
	assert.Contains(t, text, "Cláusula primeira")
}

func TestIngestDocx_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.IngestDocx(ctx, models.IngestStartRequest{FilePath: "../secrets"})
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	_, err = f.svc.IngestDocx(ctx, models.IngestStartRequest{FilePath: "uploads/2026/10/missing.docx"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	f.objects.objects["uploads/2026/10/garbage.docx"] = []byte("not a zip")
	_, err = f.svc.IngestDocx(ctx, models.IngestStartRequest{FilePath: "uploads/2026/10/garbage.docx"})
	assert.Error(t, err)

	docs, _ := f.store.ListDocuments(ctx, store.DocumentFilter{})
	assert.Empty(t, docs)
}

// --- Uploads and documents ---

func TestCreateUpload(t *testing.T) {
	f := newFixture(t, Options{})
	target, err := f.svc.CreateUpload(context.Background(), "Relatório Final.pdf", "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(target.Path, "uploads/"))
	assert.Contains(t, target.SignedURL, target.Path)
	assert.NoError(t, storage.ValidateKey(target.Path))

	_, err = f.svc.CreateUpload(context.Background(), "x.exe", "application/x-msdownload")
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestContentTypeAllowed(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"application/pdf", true},
		{"text/plain; charset=utf-8", true},
		{"TEXT/PLAIN", true},
		{docxMIME, true},
		{"image/png", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentTypeAllowed(tt.in))
		})
	}
}

func TestDeleteUpload(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.svc.DeleteUpload(context.Background(), "uploads/2026/10/a.pdf"))
	assert.Equal(t, []string{"uploads/2026/10/a.pdf"}, f.objects.deleted)

	err := f.svc.DeleteUpload(context.Background(), "other/a.pdf")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestListDocuments_StuckFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id, err := f.svc.Start(ctx, models.IngestStartRequest{Title: "t"})
	require.NoError(t, err)

	views, err := f.svc.ListDocuments(ctx, store.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].Stuck)

	f.store.setStatus(id, models.DocumentStatusIngesting, time.Now().Add(-6*time.Minute))
	v, err := f.svc.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.True(t, v.Stuck)
	assert.Equal(t, "stuck", v.DisplayStatus())

	_, err = f.svc.GetDocument(ctx, uuid.New())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
