package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/kiranshivaraju/docingest/pkg/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	DefaultPdftoppm = "pdftoppm"
	DefaultDPI      = 150
)

// pdftoppm names outputs <prefix>-<page>.png, zero-padded to the width of the
// document's page count.
var rePageFile = regexp.MustCompile(`-(\d+)\.png$`)

// PdftoppmRenderer renders pages with poppler's pdftoppm and counts them
// with pdfcpu.
type PdftoppmRenderer struct {
	bin    string
	dpi    int
	runner Runner
	conf   *model.Configuration
}

type RendererOption func(*PdftoppmRenderer)

func WithRunner(r Runner) RendererOption {
	return func(p *PdftoppmRenderer) { p.runner = r }
}

func NewPdftoppmRenderer(bin string, dpi int, opts ...RendererOption) *PdftoppmRenderer {
	if bin == "" {
		bin = DefaultPdftoppm
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	r := &PdftoppmRenderer{bin: bin, dpi: dpi, runner: execRunner{}, conf: conf}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PdftoppmRenderer) PageCount(_ context.Context, pdf []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(pdf), r.conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu page count: %w", err)
	}
	return n, nil
}

// Render rasterizes pages first..last (1-indexed, inclusive) to PNG data URLs
// in page order.
func (r *PdftoppmRenderer) Render(ctx context.Context, pdf []byte, first, last int) ([]models.PageImage, error) {
	dir, err := os.MkdirTemp("", "docingest-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(src, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("writing temp pdf: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	_, stderr, err := r.runner.Run(ctx, r.bin,
		"-r", strconv.Itoa(r.dpi),
		"-png",
		"-f", strconv.Itoa(first),
		"-l", strconv.Itoa(last),
		src, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", r.bin, err, truncate(string(stderr), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s produced no images for pages %d-%d", r.bin, first, last)
	}

	pages := make([]models.PageImage, 0, len(matches))
	for _, path := range matches {
		m := rePageFile.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		img, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading rendered page %d: %w", num, err)
		}
		pages = append(pages, models.PageImage{
			PageNum: num,
			DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
		})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNum < pages[j].PageNum })
	return pages, nil
}

var _ Renderer = (*PdftoppmRenderer)(nil)
