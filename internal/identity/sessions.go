package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/elitestore/go-storefront/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sessions maps opaque bearer tokens to principals in Redis. The identity
// provider owns the login flow; once a user authenticates, a session is
// issued here and the token handed to the client.
type Sessions struct{ Redis *redis.Client }

func (s *Sessions) Issue(ctx context.Context, p Principal) (string, error) {
	token := uuid.NewString()
	key := fmt.Sprintf(redisx.KeySession, token)
	if err := s.Redis.Set(ctx, key, string(mustJSON(p)), redisx.TTLSession).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Sessions) Resolve(ctx context.Context, token string) (Principal, error) {
	key := fmt.Sprintf(redisx.KeySession, token)
	raw, err := s.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Principal{}, apperr.Unauthorized("session expired or unknown")
	}
	if err != nil {
		return Principal{}, apperr.Unavailable("session store", err)
	}
	var p Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Principal{}, apperr.Unauthorized("malformed session")
	}
	return p, nil
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeySession, token)).Err()
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
