package userdict

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client used by [RedisStore].
type RedisClient interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore keeps custom words in the set <prefix>:words and frequencies in
// the hash <prefix>:freq.
type RedisStore struct {
	client RedisClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store under key prefix. An empty prefix means
// "typeassist:userdict".
func NewRedisStore(client RedisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "typeassist:userdict"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) wordsKey() string { return s.prefix + ":words" }
func (s *RedisStore) freqKey() string  { return s.prefix + ":freq" }

// Load implements [Store].
func (s *RedisStore) Load(ctx context.Context) (*UserDictionary, error) {
	words, err := s.client.SMembers(ctx, s.wordsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("userdict: load words: %w", err)
	}
	raw, err := s.client.HGetAll(ctx, s.freqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("userdict: load frequencies: %w", err)
	}

	d := New()
	d.Words = words
	for w, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		d.Frequencies[w] = n
	}
	d.Normalize()
	return d, nil
}

// Save implements [Store]. Words are added to the set and frequencies are
// written to the hash. Nothing is removed.
func (s *RedisStore) Save(ctx context.Context, d *UserDictionary) error {
	if len(d.Words) > 0 {
		members := make([]interface{}, len(d.Words))
		for i, w := range d.Words {
			members[i] = w
		}
		if err := s.client.SAdd(ctx, s.wordsKey(), members...).Err(); err != nil {
			return fmt.Errorf("userdict: save words: %w", err)
		}
	}
	if len(d.Frequencies) > 0 {
		values := make([]interface{}, 0, 2*len(d.Frequencies))
		for w, n := range d.Frequencies {
			values = append(values, w, n)
		}
		if err := s.client.HSet(ctx, s.freqKey(), values...).Err(); err != nil {
			return fmt.Errorf("userdict: save frequencies: %w", err)
		}
	}
	return nil
}

// Ping checks that the server answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("userdict: ping redis: %w", err)
	}
	return nil
}
