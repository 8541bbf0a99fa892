package oauthflow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/varweave/varweave/internal/pkg/cache"
)

// StateValue binds an authorize-state nonce to the respondent and provider
// that requested it.
type StateValue struct {
	RespondentID string `json:"respondent_id"`
	Provider     string `json:"provider"`
}

// StateStore holds pending authorization requests between the authorize
// redirect and the code exchange. Entries are one-shot and expire on their
// own; an abandoned flow just ages out.
type StateStore interface {
	Put(state string, val StateValue, ttl time.Duration) error
	Take(state string) (*StateValue, error)
}

const stateKeyPrefix = "oauth:state:"

// redisStateStore keeps pending states in the shared cache, the same place
// the app-level session data lives.
type redisStateStore struct{}

// NewStateStore returns the cache-backed state store.
func NewStateStore() StateStore {
	return &redisStateStore{}
}

func (s *redisStateStore) Put(state string, val StateValue, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return cache.Set(stateKeyPrefix+state, string(raw), ttl)
}

func (s *redisStateStore) Take(state string) (*StateValue, error) {
	raw, err := cache.GetDel(stateKeyPrefix + state)
	if cache.IsNotFound(err) {
		return nil, &ErrInvalidState{Reason: "unknown or expired"}
	}
	if err != nil {
		return nil, fmt.Errorf("state lookup failed: %w", err)
	}
	var val StateValue
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		return nil, &ErrInvalidState{Reason: "malformed"}
	}
	return &val, nil
}
