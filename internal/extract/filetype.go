package extract

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// MaxFileBytes is the size ceiling for every accepted file type.
const MaxFileBytes = 50 << 20

// Kind is an accepted document type.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindTXT  Kind = "txt"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETXT  = "text/plain"
)

var kindsByMIME = map[string]Kind{
	MIMEPDF:  KindPDF,
	MIMEDOCX: KindDOCX,
	MIMETXT:  KindTXT,
}

var kindsByExt = map[string]Kind{
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".txt":  KindTXT,
}

// MIMEType returns the canonical content type for k.
func (k Kind) MIMEType() string {
	switch k {
	case KindPDF:
		return MIMEPDF
	case KindDOCX:
		return MIMEDOCX
	case KindTXT:
		return MIMETXT
	}
	return "application/octet-stream"
}

// DetectKind resolves a file's type from its MIME type, falling back to the
// extension of name.
func DetectKind(name, contentType string) (Kind, error) {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if k, ok := kindsByMIME[strings.ToLower(mt)]; ok {
				return k, nil
			}
		}
	}
	if k, ok := kindsByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, name)
}

// Validate checks a file against the allow-list and the size ceiling. It
// never touches the network.
func Validate(f File) (Kind, error) {
	kind, err := DetectKind(f.Name, f.ContentType)
	if err != nil {
		return "", err
	}
	if len(f.Data) > MaxFileBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, f.Name, len(f.Data), MaxFileBytes)
	}
	return kind, nil
}
