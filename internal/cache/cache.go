// Package cache keeps in-flight questionnaire sessions between HTTP requests.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/casestrength/internal/model"
)

// Cache stores opaque byte values with a TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// SessionKey derives a filesystem-safe cache key from a session id
func SessionKey(id string) string {
	hash := sha256.Sum256([]byte(id))
	return "casestrength:session:v1:" + hex.EncodeToString(hash[:])
}

// New builds the session cache described by cfg.
// Memory only by default; a disk layer is added when cfg.Dir is set.
func New(cfg model.SessionsConfig) Cache {
	memory := NewMemoryCache(cfg.TTL, cfg.CleanupInterval)
	if cfg.Dir == "" {
		return memory
	}
	return NewLayeredCache(memory, NewDiskCache(cfg.Dir, cfg.TTL))
}
