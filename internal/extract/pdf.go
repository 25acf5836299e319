package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads the text layer page by page. The parser panics on some
// malformed files, so panics are reported as ErrCorrupt.
func extractPDF(data []byte) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: pdf parser panic: %v", ErrCorrupt, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	n := reader.NumPage()
	res = &Result{PageCount: n, PageCharCounts: make([]int, n)}

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrCorrupt, i, err)
		}
		text = strings.TrimSpace(text)
		res.PageCharCounts[i-1] = countNonSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}

	res.Text = strings.Join(pages, "\n\n")
	return res, nil
}
