package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks a persisted value that is not valid JSON for the
// requested type. Callers treat it as absent after logging.
var ErrMalformed = errors.New("malformed value")

// LoadJSON decodes the value at key. An absent value yields ok=false and no
// error. A malformed one yields ok=false and an error wrapping ErrMalformed.
func LoadJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var out T
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok || raw == "" {
		return out, false, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		var zero T
		return zero, false, fmt.Errorf("%w at %s: %v", ErrMalformed, key, err)
	}
	return out, true, nil
}

// SaveJSON encodes v and stores it at key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(data))
}
