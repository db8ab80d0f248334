package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "incident-service:idem:"
	pendingMarker     = "__pending__"
)

// ErrIdempotencyInFlight is returned while another request holds the key.
var ErrIdempotencyInFlight = errors.New("request with this idempotency key is in flight")

var errRedisDisabled = errors.New("redis not configured")

// StoredResponse is a completed HTTP response kept for replay.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore keeps idempotency keys and their responses in Redis.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore builds a store on top of the shared Redis client.
func NewIdempotencyStore(r *Redis, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	var client *redis.Client
	if r != nil {
		client = r.Client
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Enabled reports whether keys can be stored.
func (s *IdempotencyStore) Enabled() bool {
	return s != nil && s.client != nil
}

// Begin reserves key for the caller and returns nil, or returns the response
// stored by an earlier request with the same key.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (*StoredResponse, error) {
	if !s.Enabled() {
		return nil, errRedisDisabled
	}
	reserved, err := s.client.SetNX(ctx, idempotencyPrefix+key, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if reserved {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return nil, ErrIdempotencyInFlight
	}
	if err != nil {
		return nil, err
	}
	if string(raw) == pendingMarker {
		return nil, ErrIdempotencyInFlight
	}

	var resp StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Complete stores the final response under key.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse) error {
	if !s.Enabled() {
		return errRedisDisabled
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyPrefix+key, payload, s.ttl).Err()
}

// Release drops the reservation so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if !s.Enabled() {
		return errRedisDisabled
	}
	return s.client.Del(ctx, idempotencyPrefix+key).Err()
}
