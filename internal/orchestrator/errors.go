package orchestrator

import (
	"errors"
	"fmt"
)

var (
	ErrNotAwaitingChoice = errors.New("job is not waiting for a decision")
	ErrOCRUnsupported    = errors.New("OCR is only available for PDF files")
	ErrEmptyText         = errors.New("no text could be extracted")
)

// FileError is a pipeline failure for one file.
type FileError struct {
	File  string
	Phase Phase
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.File, e.Phase, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// BatchError reports the failing batch, numbered from 1.
type BatchError struct {
	Batch int
	Total int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d of %d: %v", e.Batch, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
