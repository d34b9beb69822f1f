package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/hfsm/pkg/domain"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "hfsm:machine:"

// farFuture scores index entries of machines that never expire.
const farFuture = 4102444800 // 2100-01-01

// Store implements ports.StateStore using Redis.
// Each machine is a JSON value under prefix+"m:"; a sorted set at prefix+"idx"
// indexes machine ids by expiry. Lockers sharing the prefix use prefix+"lock:",
// so no machine id can collide with another key kind.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiration for machines.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for machines.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client returns the underlying client, so a Locker can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(machineID string) string {
	return s.prefix + "m:" + machineID
}

func (s *Store) indexKey() string {
	return s.prefix + "idx"
}

// Save persists the state to Redis.
func (s *Store) Save(ctx context.Context, machineID string, state domain.FSMState) error {
	data, err := json.Marshal(state.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	pipe := s.client.TxPipeline()

	// Use 0 for no expiration if ttl is not set.
	pipe.Set(ctx, s.key(machineID), data, s.ttl)

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: machineID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, machineID string) (domain.FSMState, error) {
	val, err := s.client.Get(ctx, s.key(machineID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrMachineNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	state := domain.FSMState{}
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, nil
}

// Delete removes the machine.
func (s *Store) Delete(ctx context.Context, machineID string) error {
	pipe := s.client.TxPipeline()

	pipe.Del(ctx, s.key(machineID))
	pipe.ZRem(ctx, s.indexKey(), machineID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns the stored machines in sorted order. Index entries past their expiry are
// pruned first, since Redis expires the values but not the index.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired machines: %w", err)
	}

	machines, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	slices.Sort(machines)
	return machines, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
