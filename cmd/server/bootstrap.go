package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/docingest/internal/api/middleware"
	"github.com/kiranshivaraju/docingest/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "di_"

type keyCreator interface {
	CountAPIKeys(ctx context.Context) (int, error)
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

// bootstrapAPIKey creates an ingest+read key when the database has none and
// logs the raw key once. It is never stored or shown again.
func bootstrapAPIKey(ctx context.Context, keys keyCreator) error {
	n, err := keys.CountAPIKeys(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	raw, key, err := newAPIKey("bootstrap", models.ScopeIngest, models.ScopeRead)
	if err != nil {
		return err
	}
	if err := keys.CreateAPIKey(ctx, key); err != nil {
		return err
	}
	slog.Warn("created bootstrap api key; store it now, it will not be shown again",
		"key", raw, "scopes", key.Scopes)
	return nil
}

// newAPIKey generates a raw key and its persisted form.
func newAPIKey(name string, scopes ...string) (string, *models.APIKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate key: %w", err)
	}
	raw := keyPrefix + base64.RawURLEncoding.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash key: %w", err)
	}

	now := time.Now().UTC()
	return raw, &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:mw.KeyPrefixLen],
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
