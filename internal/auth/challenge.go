package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// ErrChallengeNotFound is returned when no live challenge exists for an address.
var ErrChallengeNotFound = errors.New("challenge not found or expired")

// ChallengeStore keeps one outstanding sign-in nonce per address.
type ChallengeStore interface {
	Put(ctx context.Context, address common.Address, nonce string, ttl time.Duration) error
	// Take returns and deletes the nonce so it can be used once.
	Take(ctx context.Context, address common.Address) (string, error)
}

const challengePrefix = "auth:challenge:v1:"

// RedisChallenges stores nonces in Redis with a TTL.
type RedisChallenges struct {
	cache *redis.Client
}

// NewRedisChallenges builds a Redis-backed challenge store.
func NewRedisChallenges(cache *redis.Client) *RedisChallenges {
	return &RedisChallenges{cache: cache}
}

func (s *RedisChallenges) Put(ctx context.Context, address common.Address, nonce string, ttl time.Duration) error {
	return s.cache.Set(ctx, challengePrefix+address.Hex(), nonce, ttl).Err()
}

func (s *RedisChallenges) Take(ctx context.Context, address common.Address) (string, error) {
	nonce, err := s.cache.GetDel(ctx, challengePrefix+address.Hex()).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrChallengeNotFound
	}
	return nonce, err
}

type memoryChallenge struct {
	nonce     string
	expiresAt time.Time
}

// MemoryChallenges is an in-process ChallengeStore for development and tests.
type MemoryChallenges struct {
	mu      sync.Mutex
	pending map[common.Address]memoryChallenge
	now     func() time.Time
}

// NewMemoryChallenges builds an in-memory challenge store.
func NewMemoryChallenges() *MemoryChallenges {
	return &MemoryChallenges{pending: make(map[common.Address]memoryChallenge), now: time.Now}
}

func (s *MemoryChallenges) Put(_ context.Context, address common.Address, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[address] = memoryChallenge{nonce: nonce, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryChallenges) Take(_ context.Context, address common.Address) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.pending[address]
	delete(s.pending, address)
	if !ok || s.now().After(ch.expiresAt) {
		return "", ErrChallengeNotFound
	}
	return ch.nonce, nil
}
