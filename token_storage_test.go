package main

import (
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"go-aadhaar-scanner/redis"

	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenStorage(t *testing.T) {
	storage := NewInMemoryTokenStorage()

	require.NoError(t, storage.StoreToken("session", "nonce-1"))
	got, err := storage.RetrieveToken("session")
	require.NoError(t, err)
	require.Equal(t, "nonce-1", got)

	// storing again overwrites
	require.NoError(t, storage.StoreToken("session", "nonce-2"))
	got, err = storage.RetrieveToken("session")
	require.NoError(t, err)
	require.Equal(t, "nonce-2", got)

	require.NoError(t, storage.RemoveToken("session"))
	_, err = storage.RetrieveToken("session")
	require.ErrorIs(t, err, ErrTokenNotFound)
	require.ErrorIs(t, storage.RemoveToken("session"), ErrTokenNotFound)
}

func TestInMemoryTokenStorage_Expiry(t *testing.T) {
	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	storage := newInMemoryTokenStorage(time.Hour, func() time.Time { return now })

	require.NoError(t, storage.StoreToken("old", "n1"))
	now = now.Add(30 * time.Minute)
	require.NoError(t, storage.StoreToken("new", "n2"))

	_, err := storage.RetrieveToken("old")
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = storage.RetrieveToken("old")
	require.ErrorIs(t, err, ErrTokenNotFound)
	require.ErrorIs(t, storage.RemoveToken("old"), ErrTokenNotFound)

	got, err := storage.RetrieveToken("new")
	require.NoError(t, err)
	require.Equal(t, "n2", got)

	now = now.Add(time.Hour)
	require.NoError(t, storage.StoreToken("fresh", "n3"))
	require.Len(t, storage.tokens, 1)
}

func TestInMemoryTokenStorage_Concurrent(t *testing.T) {
	storage := NewInMemoryTokenStorage()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := strconv.Itoa(i)
			if err := storage.StoreToken(id, "nonce"+id); err != nil {
				t.Errorf("store %s: %v", id, err)
				return
			}
			if got, err := storage.RetrieveToken(id); err != nil || got != "nonce"+id {
				t.Errorf("retrieve %s: got %q, err %v", id, got, err)
				return
			}
			if err := storage.RemoveToken(id); err != nil {
				t.Errorf("remove %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()
	require.Empty(t, storage.tokens)
}

func TestCreateKey(t *testing.T) {
	require.Equal(t, "aadhaar-scanner:scan-session:abc", createKey("aadhaar-scanner", "abc"))
}

// Runs against a real server when REDIS_TEST_PORT is set.
func TestRedisTokenStorage(t *testing.T) {
	portStr := os.Getenv("REDIS_TEST_PORT")
	if portStr == "" {
		t.Skip("REDIS_TEST_PORT not set")
	}
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := redis.NewRedisClient(&redis.RedisConfig{Host: "localhost", Port: port, Namespace: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	storage := NewRedisTokenStorage(client, "aadhaar-scanner-test")
	session := GenerateSessionId()

	require.NoError(t, storage.StoreToken(session, "nonce"))
	got, err := storage.RetrieveToken(session)
	require.NoError(t, err)
	require.Equal(t, "nonce", got)

	require.NoError(t, storage.RemoveToken(session))
	_, err = storage.RetrieveToken(session)
	require.ErrorIs(t, err, ErrTokenNotFound)
	require.ErrorIs(t, storage.RemoveToken(session), ErrTokenNotFound)
}
