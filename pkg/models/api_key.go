package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScopeIngest = "ingest"
	ScopeRead   = "read"
)

// APIKey authenticates an ingestion client. Only the bcrypt hash of the raw
// key is persisted.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"keyPrefix"`
	Scopes     []string   `db:"scopes"       json:"scopes"`
	LastUsedAt *time.Time `db:"last_used_at" json:"lastUsedAt,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updatedAt"`
}
