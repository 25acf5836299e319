package ingestion

import "errors"

var (
	ErrLocked           = errors.New("document is being processed")
	ErrIncomplete       = errors.New("not all batches have been received")
	ErrEmptyText        = errors.New("document has no text")
	ErrNotProcessable   = errors.New("document cannot be processed in its current status")
	ErrInvalidBatch     = errors.New("invalid batch")
	ErrTooManyPages     = errors.New("too many pages in ocr batch")
	ErrUnsupportedMedia = errors.New("unsupported content type")
)

// errEmbedDeferred marks a background step whose embedding call failed; the
// document stays queued and is tried again later.
var errEmbedDeferred = errors.New("embedding deferred")
