package llm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid image data url")

// DecodeDataURL parses a base64 "data:image/...;base64," URL and returns
// its MIME type and decoded bytes.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURL)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: not base64 encoded", ErrInvalidDataURL)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidDataURL, mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty image", ErrInvalidDataURL)
	}
	return mimeType, data, nil
}
