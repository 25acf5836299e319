// Package extract turns uploaded files into raw text plus page-level
// metadata. DOCX files are extracted server-side and are rejected here.
package extract

import (
	"context"
	"errors"
	"fmt"
	"unicode"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds size limit")
	ErrCorrupt         = errors.New("file could not be parsed")
	ErrRemoteOnly      = errors.New("file type is extracted server-side")
)

// DefaultMinCharsPerPage is the average non-space characters per page below
// which a PDF is treated as scanned.
const DefaultMinCharsPerPage = 20

// File is an uploaded file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is the outcome of extracting one file.
type Result struct {
	Text           string
	PageCount      int
	PageCharCounts []int
	NeedsOCR       bool
}

// Extractor produces text from a file.
type Extractor interface {
	Extract(ctx context.Context, f File) (*Result, error)
}

// Local extracts PDF and TXT files in-process.
type Local struct {
	minCharsPerPage int
}

// NewLocal returns a Local extractor. minCharsPerPage <= 0 uses the default.
func NewLocal(minCharsPerPage int) *Local {
	if minCharsPerPage <= 0 {
		minCharsPerPage = DefaultMinCharsPerPage
	}
	return &Local{minCharsPerPage: minCharsPerPage}
}

func (e *Local) Extract(ctx context.Context, f File) (*Result, error) {
	kind, err := Validate(f)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch kind {
	case KindPDF:
		res, err := extractPDF(f.Data)
		if err != nil {
			return nil, err
		}
		res.NeedsOCR = needsOCR(res, e.minCharsPerPage)
		return res, nil
	case KindTXT:
		return &Result{Text: decodeText(f.Data), PageCount: 1}, nil
	case KindDOCX:
		return nil, fmt.Errorf("%w: %s", ErrRemoteOnly, f.Name)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, f.Name)
}

// needsOCR flags PDFs whose text layer is empty or nearly so.
func needsOCR(res *Result, minCharsPerPage int) bool {
	if res.PageCount == 0 {
		return false
	}
	total := 0
	for _, n := range res.PageCharCounts {
		total += n
	}
	return total == 0 || total/res.PageCount < minCharsPerPage
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

var _ Extractor = (*Local)(nil)
