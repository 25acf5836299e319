// Package main is the docingest command-line client. It extracts text from
// local PDF, DOCX and TXT files and ingests it through the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/apiclient"
	"github.com/kiranshivaraju/docingest/internal/config"
	"github.com/kiranshivaraju/docingest/internal/extract"
	"github.com/kiranshivaraju/docingest/internal/ocr"
	"github.com/kiranshivaraju/docingest/internal/orchestrator"
	"github.com/kiranshivaraju/docingest/internal/poller"
	"github.com/kiranshivaraju/docingest/internal/quality"
	"github.com/kiranshivaraju/docingest/internal/upload"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitPartial = 3
)

type options struct {
	title        string
	category     string
	onLowQuality string
	wait         bool
	verbose      bool
	status       bool
	retry        string
	files        []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("docingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: docingest [flags] file...")
		fmt.Fprintln(stderr, "       docingest -status")
		fmt.Fprintln(stderr, "       docingest -retry <document-id>")
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.StringVar(&opts.title, "title", "", "document title (single file only; defaults to the file name)")
	fs.StringVar(&opts.category, "category", orchestrator.DefaultCategory, "document category")
	fs.StringVar(&opts.onLowQuality, "on-low-quality", "ask", "what to do when text needs a decision: ask, use, ocr or cancel")
	fs.BoolVar(&opts.wait, "wait", true, "wait until the server finishes embedding")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.BoolVar(&opts.status, "status", false, "list documents and exit")
	fs.StringVar(&opts.retry, "retry", "", "re-run processing for a failed or stuck document")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.files = fs.Args()

	switch opts.onLowQuality {
	case "ask", "use", "ocr", "cancel":
	default:
		return nil, fmt.Errorf("-on-low-quality must be ask, use, ocr or cancel, got %q", opts.onLowQuality)
	}
	if !opts.status && opts.retry == "" && len(opts.files) == 0 {
		fs.Usage()
		return nil, errors.New("no files given")
	}
	if opts.title != "" && len(opts.files) > 1 {
		return nil, errors.New("-title applies to a single file")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "error:", err)
		}
		return exitUsage
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(stderr, "error: load config:", err)
		return exitUsage
	}

	// The poller reports stuck documents while uploads are still printing.
	out := &syncWriter{w: stdout}

	client := apiclient.NewHTTPClient(cfg.APIURL, cfg.APIKey, cfg.APITimeout,
		apiclient.WithUserAgent(cfg.UserAgent))
	p := poller.New(client, cfg.PollInterval,
		poller.WithStuckHandler(func(d models.DocumentView) {
			fmt.Fprintf(out, "%s: stuck in %s; rerun with -retry %s\n", d.Title, d.Status, d.ID)
		}))

	switch {
	case opts.status:
		return printStatus(ctx, client, out, stderr)
	case opts.retry != "":
		return retryDocument(ctx, p, opts, out, stderr)
	}

	files, unreadable := readFiles(opts.files)
	for _, r := range unreadable {
		printResult(out, r)
	}

	progress := newProgressPrinter(out)
	observe := func(job orchestrator.Job) {
		progress(job)
		// Start polling as soon as a document is handed off so embedding
		// runs while the next file uploads.
		if opts.wait && job.State == orchestrator.StateDone && job.DocumentID != uuid.Nil && models.IsProcessingStatus(job.Status) {
			p.Track(ctx, job.DocumentID)
		}
	}

	engine := ocr.NewEngine(ocr.NewPdftoppmRenderer(cfg.Pdftoppm, cfg.OCRDPI), client)
	orch := orchestrator.New(client,
		extract.NewLocal(extract.DefaultMinCharsPerPage),
		engine,
		upload.NewTransport(cfg.UserAgent),
		orchestrator.WithObserver(observe),
		orchestrator.WithQualityOptions(quality.Options{
			ExpectedLanguage: cfg.Language,
			MinConfidence:    cfg.MinConfidence,
		}),
	)

	meta := orchestrator.Meta{Title: opts.title, Category: opts.category}
	decide := newDecider(opts.onLowQuality, stdin, out)
	sum := orch.IngestFiles(ctx, files, meta, decide)

	for _, r := range sum.Results {
		printResult(out, r)
	}
	sum.Results = append(unreadable, sum.Results...)
	fmt.Fprintln(out, sum.String())

	if opts.wait {
		if err := p.Wait(ctx); err != nil {
			fmt.Fprintln(stderr, "error: waiting for processing:", err)
			return exitFailed
		}
	}

	switch {
	case sum.AllSucceeded():
		return exitOK
	case sum.Succeeded() > 0:
		return exitPartial
	default:
		return exitFailed
	}
}

// readFiles loads every path. A file that cannot be read or is over the size
// limit comes back as a failed result and the others still run.
func readFiles(paths []string) ([]extract.File, []orchestrator.FileResult) {
	var (
		files  []extract.File
		failed []orchestrator.FileResult
	)
	for _, path := range paths {
		f, err := readFile(path)
		if err != nil {
			job := orchestrator.NewJob(filepath.Base(path))
			job.Error = err.Error()
			failed = append(failed, orchestrator.FileResult{Job: job, Err: err})
			continue
		}
		files = append(files, f)
	}
	return files, failed
}

func readFile(path string) (extract.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return extract.File{}, err
	}
	if info.IsDir() {
		return extract.File{}, fmt.Errorf("%s is a directory", path)
	}
	// Checked before reading so an oversized file is never loaded.
	if info.Size() > extract.MaxFileBytes {
		return extract.File{}, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			extract.ErrTooLarge, filepath.Base(path), info.Size(), extract.MaxFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.File{}, err
	}
	return extract.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

// syncWriter serializes writes from the poller goroutine and the main flow.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}

func printResult(w io.Writer, r orchestrator.FileResult) {
	job := r.Job
	switch {
	case r.Err != nil:
		fmt.Fprintf(w, "%s: failed: %v\n", job.File, r.Err)
	case job.State == orchestrator.StateCancelled:
		fmt.Fprintf(w, "%s: cancelled\n", job.File)
	default:
		line := fmt.Sprintf("%s: %s (document %s)", job.File, job.Status, job.DocumentID)
		if job.UsedOCR {
			line += " [ocr]"
		}
		if job.Warning != "" {
			line += ": " + job.Warning
		}
		fmt.Fprintln(w, line)
	}
}

// newProgressPrinter prints a line whenever a job changes phase.
func newProgressPrinter(w io.Writer) orchestrator.Observer {
	last := map[string]orchestrator.Phase{}
	return func(job orchestrator.Job) {
		if last[job.File] == job.Phase || job.Phase == orchestrator.PhaseIdle {
			return
		}
		last[job.File] = job.Phase
		fmt.Fprintf(w, "%s: %s (%d%%)\n", job.File, job.Phase, job.Progress)
	}
}

func printStatus(ctx context.Context, api apiclient.Client, stdout, stderr io.Writer) int {
	docs, err := api.ListDocuments(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "error: listing documents:", err)
		return exitFailed
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tSTATUS\tCHUNKS\tUPDATED")
	for _, d := range docs {
		chunks := "-"
		if d.TotalChunks != nil {
			chunks = fmt.Sprint(*d.TotalChunks)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Title, d.Category, d.DisplayStatus(), chunks, d.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return exitFailed
	}
	return exitOK
}

func retryDocument(ctx context.Context, p *poller.Poller, opts *options, stdout, stderr io.Writer) int {
	id, err := uuid.Parse(opts.retry)
	if err != nil {
		fmt.Fprintf(stderr, "error: -retry needs a document id, got %q\n", opts.retry)
		return exitUsage
	}
	res, err := p.Retry(ctx, id)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFailed
	}
	fmt.Fprintf(stdout, "%s: %s\n", id, res.Status)
	if res.Warning != "" {
		fmt.Fprintln(stdout, "warning:", res.Warning)
	}
	if opts.wait {
		if err := p.Wait(ctx); err != nil {
			fmt.Fprintln(stderr, "error: waiting for processing:", err)
			return exitFailed
		}
	}
	return exitOK
}
