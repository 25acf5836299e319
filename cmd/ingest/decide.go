package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kiranshivaraju/docingest/internal/orchestrator"
)

// newDecider returns the Decider for an -on-low-quality mode. "ask" prompts
// on out and reads answers from in; end of input cancels.
func newDecider(mode string, in io.Reader, out io.Writer) orchestrator.Decider {
	switch mode {
	case "use":
		return fixed(orchestrator.ChoiceUseText)
	case "ocr":
		return fixed(orchestrator.ChoiceRunOCR)
	case "cancel":
		return fixed(orchestrator.ChoiceCancel)
	}

	br := bufferedStdin(in)
	return func(ctx context.Context, job *orchestrator.Job) orchestrator.Choice {
		describe(out, job)
		for ctx.Err() == nil {
			fmt.Fprint(out, "[u]se text, run [o]cr or [c]ancel? ")
			line, err := br.ReadString('\n')
			if choice, ok := parseChoice(line); ok {
				return choice
			}
			if err != nil {
				fmt.Fprintln(out)
				return orchestrator.ChoiceCancel
			}
			fmt.Fprintln(out, "please answer u, o or c")
		}
		return orchestrator.ChoiceCancel
	}
}

func fixed(c orchestrator.Choice) orchestrator.Decider {
	return func(context.Context, *orchestrator.Job) orchestrator.Choice { return c }
}

func describe(out io.Writer, job *orchestrator.Job) {
	q := job.Quality
	if q == nil {
		fmt.Fprintf(out, "%s: no usable text layer found in %d pages.\n", job.File, job.PageCount)
		return
	}
	fmt.Fprintf(out, "%s: extracted text looks unreliable (confidence %.0f%%, recommendation %s).\n",
		job.File, q.Confidence*100, q.Recommendation)
	for _, issue := range q.Issues {
		fmt.Fprintf(out, "  - %s\n", issue)
	}
	if q.TextPreview != "" {
		fmt.Fprintf(out, "  preview: %q\n", q.TextPreview)
	}
}

func parseChoice(s string) (orchestrator.Choice, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "u", "use", "text":
		return orchestrator.ChoiceUseText, true
	case "o", "ocr":
		return orchestrator.ChoiceRunOCR, true
	case "c", "cancel", "q":
		return orchestrator.ChoiceCancel, true
	}
	return "", false
}

// bufferedStdin keeps one reader across prompts so typed-ahead answers are
// not lost.
func bufferedStdin(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(r)
}
