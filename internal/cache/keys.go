package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func DocumentLockKey(documentID uuid.UUID) string {
	return fmt.Sprintf("lock:document:%s", documentID)
}
