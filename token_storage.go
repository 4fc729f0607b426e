package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when a scan session has no nonce, either
// because it never existed, expired or was already used.
var ErrTokenNotFound = errors.New("token not found")

// Should be safe to use in concurreny
type TokenStorage interface {
	// Store the nonce for the given scan session.
	// returns an error when it somehow fails to store the value.
	// Should not return an error when the value already exists,
	// it should just update in that case.
	StoreToken(sessionId string, nonce string) error

	// Should retrieve the nonce for the given scan session
	// and return an error in any case where it fails to do so.
	RetrieveToken(sessionId string) (string, error)

	// Should remove the nonce and return an error if it fails to do so.
	// The value not being there should also be considered an error.
	RemoveToken(sessionId string) error
}

// Timeout is how long a scan session stays usable after start-scan.
const Timeout time.Duration = 24 * time.Hour

// ------------------------------------------------------------------------------

type RedisTokenStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisTokenStorage(client *redis.Client, namespace string) *RedisTokenStorage {
	return &RedisTokenStorage{client: client, namespace: namespace}
}

func createKey(namespace, sessionId string) string {
	return fmt.Sprintf("%s:scan-session:%s", namespace, sessionId)
}

func (s *RedisTokenStorage) StoreToken(sessionId string, nonce string) error {
	ctx := context.Background()
	return s.client.Set(ctx, createKey(s.namespace, sessionId), nonce, Timeout).Err()
}

func (s *RedisTokenStorage) RetrieveToken(sessionId string) (string, error) {
	ctx := context.Background()
	nonce, err := s.client.Get(ctx, createKey(s.namespace, sessionId)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w for %s", ErrTokenNotFound, sessionId)
	}
	return nonce, err
}

func (s *RedisTokenStorage) RemoveToken(sessionId string) error {
	ctx := context.Background()
	removed, err := s.client.Del(ctx, createKey(s.namespace, sessionId)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("%w for %s", ErrTokenNotFound, sessionId)
	}
	return nil
}

// ------------------------------------------------------------------------------

type storedToken struct {
	nonce   string
	expires time.Time
}

type InMemoryTokenStorage struct {
	tokens map[string]storedToken
	mutex  sync.Mutex
	ttl    time.Duration
	now    func() time.Time
}

func NewInMemoryTokenStorage() *InMemoryTokenStorage {
	return newInMemoryTokenStorage(Timeout, time.Now)
}

func newInMemoryTokenStorage(ttl time.Duration, now func() time.Time) *InMemoryTokenStorage {
	return &InMemoryTokenStorage{
		tokens: make(map[string]storedToken),
		ttl:    ttl,
		now:    now,
	}
}

func (s *InMemoryTokenStorage) StoreToken(sessionId, nonce string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pruneExpired()
	s.tokens[sessionId] = storedToken{nonce: nonce, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *InMemoryTokenStorage) RetrieveToken(sessionId string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	token, ok := s.lookup(sessionId)
	if !ok {
		return "", fmt.Errorf("%w for %s", ErrTokenNotFound, sessionId)
	}
	return token.nonce, nil
}

func (s *InMemoryTokenStorage) RemoveToken(sessionId string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.lookup(sessionId); !ok {
		return fmt.Errorf("failed to remove token for %s: %w", sessionId, ErrTokenNotFound)
	}
	delete(s.tokens, sessionId)
	return nil
}

// lookup returns the live token for sessionId, dropping it if expired.
// Callers hold the mutex.
func (s *InMemoryTokenStorage) lookup(sessionId string) (storedToken, bool) {
	token, ok := s.tokens[sessionId]
	if !ok {
		return storedToken{}, false
	}
	if !s.now().Before(token.expires) {
		delete(s.tokens, sessionId)
		return storedToken{}, false
	}
	return token, true
}

func (s *InMemoryTokenStorage) pruneExpired() {
	now := s.now()
	for id, token := range s.tokens {
		if !now.Before(token.expires) {
			delete(s.tokens, id)
		}
	}
}
