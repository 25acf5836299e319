package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiranshivaraju/docingest/internal/extract"
)

// Decider answers a job halted for a decision. It sees the job's quality
// verdict (nil for scanned PDFs) and returns the caller's choice.
type Decider func(ctx context.Context, job *Job) Choice

// FileResult is the outcome for one file of a multi-file run.
type FileResult struct {
	Job *Job
	Err error
}

// Summary aggregates a multi-file run.
type Summary struct {
	Results []FileResult
}

func (s Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil && r.Job.State == StateDone {
			n++
		}
	}
	return n
}

// AllSucceeded reports whether every file reached StateDone.
func (s Summary) AllSucceeded() bool {
	return len(s.Results) > 0 && s.Succeeded() == len(s.Results)
}

func (s Summary) String() string {
	if !s.AllSucceeded() {
		var failed []string
		for _, r := range s.Results {
			if r.Err != nil || r.Job.State != StateDone {
				failed = append(failed, r.Job.File)
			}
		}
		return fmt.Sprintf("%d of %d files ingested; not ingested: %s",
			s.Succeeded(), len(s.Results), strings.Join(failed, ", "))
	}
	return fmt.Sprintf("all %d files ingested", len(s.Results))
}

// IngestFiles runs each file through the pipeline in order, one finishing
// before the next starts. A failed file does not stop the rest. decide is
// consulted for every job that halts; a nil decide cancels such jobs.
func (o *Orchestrator) IngestFiles(ctx context.Context, files []extract.File, meta Meta, decide Decider) Summary {
	var sum Summary
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			sum.Results = append(sum.Results, FileResult{Job: NewJob(f.Name), Err: err})
			continue
		}

		fileMeta := meta
		if len(files) > 1 {
			// A shared title would make every document indistinguishable.
			fileMeta.Title = ""
		}

		job, err := o.Start(ctx, f, fileMeta)
		if err == nil && job.AwaitingChoice() {
			choice := ChoiceCancel
			if decide != nil {
				choice = decide(ctx, job)
			}
			slog.Info("decision received", "file", f.Name, "choice", choice)
			err = o.Resume(ctx, job, f, fileMeta, choice)
		}
		sum.Results = append(sum.Results, FileResult{Job: job, Err: err})
	}
	return sum
}
