// Package redis holds Redis-backed implementations of the lease store and
// the latest-result cache, for deployments running more than one daemon.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

// ResultStore keeps the latest simulation result per namespace in Redis.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultStore creates a ResultStore. A zero ttl keeps results forever.
func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func (s *ResultStore) makeKey(namespace string) string {
	return fmt.Sprintf("%s:result:%s", keyPrefix, namespace)
}

func (s *ResultStore) Put(ctx context.Context, namespace string, res simulation.SimulateResponse) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := s.client.Set(ctx, s.makeKey(namespace), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store result for %s: %w", namespace, err)
	}
	return nil
}

func (s *ResultStore) Latest(ctx context.Context, namespace string) (simulation.SimulateResponse, bool, error) {
	var res simulation.SimulateResponse
	data, err := s.client.Get(ctx, s.makeKey(namespace)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return res, false, nil
		}
		return res, false, fmt.Errorf("failed to get result for %s: %w", namespace, err)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, false, fmt.Errorf("failed to unmarshal result for %s: %w", namespace, err)
	}
	return res, true, nil
}

var _ simulation.ResultCache = (*ResultStore)(nil)
