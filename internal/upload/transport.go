// Package upload pushes original file bytes to presigned storage URLs.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/kiranshivaraju/docingest/internal/retry"
)

var (
	ErrTooLarge    = errors.New("file too large for this device")
	ErrTimeout     = errors.New("upload timed out")
	ErrUnreachable = errors.New("storage unreachable")
)

// StatusError is a non-2xx response from the storage endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	switch e.StatusCode {
	case http.StatusForbidden:
		return "upload link expired or access denied (status 403)"
	case http.StatusConflict:
		return "a file with this name already exists (status 409)"
	}
	if e.Body != "" {
		return fmt.Sprintf("upload failed with status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upload failed with status %d", e.StatusCode)
}

// IsTerminal reports whether retrying err cannot help.
func IsTerminal(err error) bool {
	if errors.Is(err, ErrTooLarge) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusForbidden || se.StatusCode == http.StatusConflict
	}
	return false
}

// Transport PUTs files to presigned URLs with bounded retry.
type Transport struct {
	client    *http.Client
	device    DeviceClass
	userAgent string
	policy    retry.Policy
}

type Option func(*Transport)

// WithHTTPClient replaces the underlying client. Per-attempt timeouts still
// come from the device class.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(t *Transport) {
		p.Retryable = func(err error) bool { return !IsTerminal(err) }
		t.policy = p
	}
}

// NewTransport builds a Transport whose limits follow the device class of userAgent.
func NewTransport(userAgent string, opts ...Option) *Transport {
	t := &Transport{
		client:    &http.Client{},
		device:    ClassifyUserAgent(userAgent),
		userAgent: userAgent,
		policy:    retry.DefaultPolicy(func(err error) bool { return !IsTerminal(err) }),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Device returns the device class limits in effect.
func (t *Transport) Device() DeviceClass {
	return t.device
}

// Put uploads body to signedURL. Terminal errors return after one attempt;
// other failures are retried and the last error is returned as is.
func (t *Transport) Put(ctx context.Context, signedURL string, body []byte, contentType string) error {
	if int64(len(body)) > t.device.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %s limit of %d bytes",
			ErrTooLarge, len(body), t.device.Name, t.device.MaxBytes)
	}

	return retry.Do(ctx, t.policy, func(ctx context.Context, attempt int) error {
		err := t.put(ctx, signedURL, body, contentType)
		if err != nil {
			slog.Warn("upload attempt failed",
				"attempt", attempt,
				"device", t.device.Name,
				"terminal", IsTerminal(err),
				"error", err,
			)
		}
		return err
	})
}

func (t *Transport) put(ctx context.Context, signedURL string, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, t.device.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
