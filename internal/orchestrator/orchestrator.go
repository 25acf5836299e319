// Package orchestrator sequences one document through extraction, the
// quality gate, optional OCR, upload and transmission to the backend.
//
// The pipeline is an explicit state machine (see Transition). A Job halts in
// StateOCRPending whenever the extracted text is unusable and continues only
// through Resume with the caller's Choice.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/docingest/internal/apiclient"
	"github.com/kiranshivaraju/docingest/internal/extract"
	"github.com/kiranshivaraju/docingest/internal/ocr"
	"github.com/kiranshivaraju/docingest/internal/quality"
	"github.com/kiranshivaraju/docingest/pkg/models"
	"github.com/kiranshivaraju/docingest/pkg/payload"
)

// OCR recognizes the text of a scanned PDF.
type OCR interface {
	Run(ctx context.Context, pdf []byte, progress ocr.Progress) (string, error)
}

// Uploader stores file bytes at a pre-signed URL.
type Uploader interface {
	Put(ctx context.Context, signedURL string, body []byte, contentType string) error
}

// Observer receives a snapshot of the job after every state or progress change.
type Observer func(Job)

// Choice is the caller's answer for a job halted in StateOCRPending.
type Choice string

const (
	ChoiceUseText Choice = "use_text"
	ChoiceRunOCR  Choice = "run_ocr"
	ChoiceCancel  Choice = "cancel"
)

// Meta describes the document being ingested.
type Meta struct {
	Title    string
	Category string
}

// DefaultCategory is used when Meta.Category is empty.
const DefaultCategory = models.DefaultCategory

// Orchestrator runs the ingestion pipeline. It holds no per-document state;
// everything about a file lives in its Job.
type Orchestrator struct {
	api       apiclient.Client
	extractor extract.Extractor
	ocr       OCR
	uploader  Uploader
	quality   quality.Options
	observer  Observer
}

type Option func(*Orchestrator)

func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

func WithQualityOptions(opts quality.Options) Option {
	return func(o *Orchestrator) { o.quality = opts }
}

// New creates an Orchestrator. ocrEngine may be nil, in which case
// ChoiceRunOCR fails with ErrOCRUnsupported.
func New(api apiclient.Client, extractor extract.Extractor, ocrEngine OCR, uploader Uploader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:       api,
		extractor: extractor,
		ocr:       ocrEngine,
		uploader:  uploader,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start runs f through the pipeline until it is done, failed, or halted for a
// decision. The returned error is a *FileError whenever the job failed.
func (o *Orchestrator) Start(ctx context.Context, f extract.File, meta Meta) (*Job, error) {
	job := NewJob(f.Name)
	if err := job.apply(EventSelect); err != nil {
		return job, err
	}
	job.Progress = progressExtracting
	o.notify(job)

	kind, err := extract.Validate(f)
	if err != nil {
		return job, o.fail(ctx, job, err)
	}
	job.Kind = kind

	if kind == extract.KindDOCX {
		if err := job.apply(EventRemoteExtract); err != nil {
			return job, err
		}
		return job, o.upload(ctx, job, f, meta)
	}

	res, err := o.extractor.Extract(ctx, f)
	if err != nil {
		return job, o.fail(ctx, job, err)
	}
	job.text = res.Text
	job.PageCount = res.PageCount

	if res.NeedsOCR {
		job.NeedsOCR = true
		if err := job.apply(EventScanned); err != nil {
			return job, err
		}
		job.Progress = progressQuality
		slog.Info("text layer missing, awaiting decision", "file", f.Name, "pages", res.PageCount)
		o.notify(job)
		return job, nil
	}

	if err := job.apply(EventExtracted); err != nil {
		return job, err
	}
	job.Progress = progressQuality
	o.notify(job)

	verdict := quality.Validate(job.text, o.quality)
	job.Quality = &verdict
	if !verdict.IsValid {
		if err := job.apply(EventQualityFailed); err != nil {
			return job, err
		}
		slog.Info("text failed quality gate, awaiting decision",
			"file", f.Name,
			"confidence", verdict.Confidence,
			"recommendation", verdict.Recommendation,
			"issues", len(verdict.Issues),
		)
		o.notify(job)
		return job, nil
	}

	if err := job.apply(EventQualityPassed); err != nil {
		return job, err
	}
	return job, o.upload(ctx, job, f, meta)
}

// Resume continues a job halted in StateOCRPending. f must be the same file
// the job was started with.
func (o *Orchestrator) Resume(ctx context.Context, job *Job, f extract.File, meta Meta, choice Choice) error {
	if !job.AwaitingChoice() {
		return fmt.Errorf("%w: %s is %s", ErrNotAwaitingChoice, job.File, job.State)
	}

	switch choice {
	case ChoiceCancel:
		if err := job.apply(EventCancel); err != nil {
			return err
		}
		job.text = ""
		slog.Info("ingestion cancelled", "file", job.File)
		o.notify(job)
		return nil

	case ChoiceUseText:
		if job.text == "" && !job.NeedsOCR {
			res, err := o.extractor.Extract(ctx, f)
			if err != nil {
				return o.fail(ctx, job, err)
			}
			job.text = res.Text
		}
		if strings.TrimSpace(job.text) == "" {
			return o.fail(ctx, job, ErrEmptyText)
		}
		if err := job.apply(EventUseText); err != nil {
			return err
		}
		return o.upload(ctx, job, f, meta)

	case ChoiceRunOCR:
		if err := job.apply(EventRunOCR); err != nil {
			return err
		}
		o.notify(job)
		if job.Kind != extract.KindPDF || o.ocr == nil {
			return o.fail(ctx, job, ErrOCRUnsupported)
		}
		text, err := o.ocr.Run(ctx, f.Data, func(done, total int) {
			job.Progress = scale(progressQuality, progressOCREnd, done, total)
			o.notify(job)
		})
		if err != nil {
			return o.fail(ctx, job, fmt.Errorf("ocr: %w", err))
		}
		if strings.TrimSpace(text) == "" {
			return o.fail(ctx, job, ErrEmptyText)
		}
		job.text = text
		job.UsedOCR = true
		if err := job.apply(EventOCRDone); err != nil {
			return err
		}
		return o.upload(ctx, job, f, meta)
	}

	return fmt.Errorf("unknown choice %q", choice)
}

// upload stores the original file, then hands the text (or, for DOCX, the
// stored object) to the backend.
func (o *Orchestrator) upload(ctx context.Context, job *Job, f extract.File, meta Meta) error {
	job.Progress = progressUploading
	o.notify(job)

	contentType := job.Kind.MIMEType()
	target, err := o.api.UploadURL(ctx, f.Name, contentType)
	if err != nil {
		return o.fail(ctx, job, fmt.Errorf("requesting upload url: %w", err))
	}
	if err := o.uploader.Put(ctx, target.SignedURL, f.Data, contentType); err != nil {
		return o.fail(ctx, job, err)
	}
	job.StoragePath = target.Path
	slog.Debug("file uploaded", "file", job.File, "path", target.Path, "bytes", len(f.Data))

	if err := job.apply(EventUploaded); err != nil {
		return err
	}
	job.Progress = progressProcessing
	o.notify(job)

	meta = meta.withDefaults(f.Name)
	var res *models.IngestResult
	switch {
	case job.Kind == extract.KindDOCX:
		res, err = o.api.IngestDocx(ctx, models.IngestStartRequest{
			Title:    meta.Title,
			Category: meta.Category,
			FilePath: job.StoragePath,
			Metadata: o.metadata(job, f),
		})
	case payload.NeedsBatching(job.text):
		res, err = o.sendBatches(ctx, job, f, meta)
	default:
		res, err = o.api.IngestText(ctx, models.IngestTextRequest{
			Title:    meta.Title,
			Category: meta.Category,
			FullText: job.text,
			FilePath: job.StoragePath,
			Metadata: o.metadata(job, f),
		})
	}
	if err != nil {
		return o.fail(ctx, job, err)
	}

	job.DocumentID = res.DocumentID
	job.Status = res.Status
	job.Warning = res.Warning
	job.text = ""
	if err := job.apply(EventCompleted); err != nil {
		return err
	}
	job.Progress = progressDone
	slog.Info("document ingested",
		"file", job.File,
		"document_id", job.DocumentID,
		"status", job.Status,
		"warning", job.Warning,
	)
	o.notify(job)
	return nil
}

// sendBatches submits text over the limit for a single call as ordered
// batches. Any failed batch aborts the document.
func (o *Orchestrator) sendBatches(ctx context.Context, job *Job, f extract.File, meta Meta) (*models.IngestResult, error) {
	if err := job.apply(EventBatching); err != nil {
		return nil, err
	}
	segments := payload.Split(job.text, payload.MaxBatchBytes)
	job.Batches = len(segments)
	o.notify(job)

	id, err := o.api.IngestStart(ctx, models.IngestStartRequest{
		Title:    meta.Title,
		Category: meta.Category,
		FilePath: job.StoragePath,
		Metadata: o.metadata(job, f),
	})
	if err != nil {
		return nil, fmt.Errorf("starting ingestion: %w", err)
	}
	job.DocumentID = id

	for i, seg := range segments {
		err := o.api.IngestBatch(ctx, id, models.IngestBatchRequest{
			BatchText:    seg,
			BatchIndex:   i + 1,
			TotalBatches: len(segments),
		})
		if err != nil {
			return nil, &BatchError{Batch: i + 1, Total: len(segments), Err: err}
		}
		job.Progress = scale(progressProcessing, progressBatchEnd, i+1, len(segments))
		slog.Debug("batch sent", "file", job.File, "document_id", id, "batch", i+1, "total", len(segments))
		o.notify(job)
	}

	res, err := o.api.IngestFinish(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finishing ingestion: %w", err)
	}
	return res, nil
}

// fail moves job to StateFailed, removes any object uploaded for this
// attempt, and returns the error as a *FileError.
func (o *Orchestrator) fail(ctx context.Context, job *Job, cause error) error {
	phase := job.Phase
	if err := job.apply(EventFail); err != nil {
		return err
	}
	job.Error = cause.Error()
	job.text = ""

	if job.StoragePath != "" {
		// The caller's context may already be done; cleanup still has to run.
		if err := o.api.DeleteUpload(context.WithoutCancel(ctx), job.StoragePath); err != nil {
			slog.Warn("compensating delete failed", "file", job.File, "path", job.StoragePath, "error", err)
		} else {
			job.StoragePath = ""
		}
	}

	slog.Error("ingestion failed", "file", job.File, "phase", phase, "error", cause)
	o.notify(job)
	return &FileError{File: job.File, Phase: phase, Err: cause}
}

func (o *Orchestrator) notify(job *Job) {
	if o.observer != nil {
		o.observer(*job)
	}
}

func (o *Orchestrator) metadata(job *Job, f extract.File) map[string]any {
	md := map[string]any{
		"fileName": f.Name,
		"fileSize": len(f.Data),
		"mimeType": job.Kind.MIMEType(),
		"ocr":      job.UsedOCR,
	}
	if job.PageCount > 0 {
		md["pageCount"] = job.PageCount
	}
	if job.Quality != nil {
		md["qualityConfidence"] = job.Quality.Confidence
	}
	return md
}

func (m Meta) withDefaults(fileName string) Meta {
	if m.Title == "" {
		m.Title = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	}
	if m.Category == "" {
		m.Category = DefaultCategory
	}
	return m
}
