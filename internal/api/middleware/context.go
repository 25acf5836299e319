package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	keyIDKey        contextKey = "api_key_id"
	keyPrefixKey    contextKey = "key_prefix"
	apiKeyScopesKey contextKey = "api_key_scopes"
	keyHolderKey    contextKey = "key_holder"
)

// keyHolder lets Logger, which wraps Auth, see who made the request.
type keyHolder struct {
	prefix string
}

func withKeyHolder(ctx context.Context, h *keyHolder) context.Context {
	return context.WithValue(ctx, keyHolderKey, h)
}

func SetKeyID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, keyIDKey, id)
}

// GetKeyID returns the ID of the API key that authenticated the request.
func GetKeyID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(keyIDKey).(uuid.UUID)
	return id, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	if h, ok := ctx.Value(keyHolderKey).(*keyHolder); ok {
		h.prefix = prefix
	}
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return scopes
}
