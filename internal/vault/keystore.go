package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// KeyProvider is the key-custody boundary. It hands out wrapping-key
// material derived from secrets the vault never generates or stores itself.
type KeyProvider interface {
	MaterialFor(ctx context.Context, recordID string) ([]byte, error)
}

// HKDFKeyProvider derives a record-scoped wrapping key from externally held
// master material. The derived key is never persisted.
type HKDFKeyProvider struct {
	master []byte
}

// NewHKDFKeyProvider creates a provider over the given master material.
func NewHKDFKeyProvider(master []byte) (*HKDFKeyProvider, error) {
	if len(master) < 16 {
		return nil, errors.New("vault: master key material too short")
	}
	return &HKDFKeyProvider{master: master}, nil
}

func (p *HKDFKeyProvider) MaterialFor(_ context.Context, recordID string) ([]byte, error) {
	return deriveKey(p.master, "record-wrap:"+recordID)
}

// Keystore holds wrapped per-record data keys. Discarding an entry makes the
// corresponding ciphertext unrecoverable.
type Keystore interface {
	PutWrapped(ctx context.Context, recordID string, wrapped []byte) error
	GetWrapped(ctx context.Context, recordID string) ([]byte, error)
	Discard(ctx context.Context, recordID string) error
}

// MemoryKeystore is the in-process keystore used for tests and single-node
// deployments.
type MemoryKeystore struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

// NewMemoryKeystore creates an empty in-memory keystore.
func NewMemoryKeystore() *MemoryKeystore {
	return &MemoryKeystore{keys: make(map[string][]byte)}
}

func (k *MemoryKeystore) PutWrapped(_ context.Context, recordID string, wrapped []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	cp := make([]byte, len(wrapped))
	copy(cp, wrapped)
	k.keys[recordID] = cp
	return nil
}

func (k *MemoryKeystore) GetWrapped(_ context.Context, recordID string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	wrapped, ok := k.keys[recordID]
	if !ok {
		return nil, ErrKeyUnavailable
	}
	return wrapped, nil
}

func (k *MemoryKeystore) Discard(_ context.Context, recordID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, recordID)
	return nil
}

// RedisKeystore keeps wrapped keys in Redis so erasure and reads work across
// processes.
type RedisKeystore struct {
	client *redis.Client
}

// NewRedisKeystore creates a keystore over an existing Redis client.
func NewRedisKeystore(client *redis.Client) *RedisKeystore {
	return &RedisKeystore{client: client}
}

func redisKeyFor(recordID string) string {
	return "vault:wrapped-dek:" + recordID
}

func (k *RedisKeystore) PutWrapped(ctx context.Context, recordID string, wrapped []byte) error {
	if err := k.client.Set(ctx, redisKeyFor(recordID), wrapped, 0).Err(); err != nil {
		return fmt.Errorf("vault: keystore put: %w", err)
	}
	return nil
}

func (k *RedisKeystore) GetWrapped(ctx context.Context, recordID string) ([]byte, error) {
	wrapped, err := k.client.Get(ctx, redisKeyFor(recordID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("vault: keystore get: %w", err)
	}
	return wrapped, nil
}

func (k *RedisKeystore) Discard(ctx context.Context, recordID string) error {
	if err := k.client.Del(ctx, redisKeyFor(recordID)).Err(); err != nil {
		return fmt.Errorf("vault: keystore discard: %w", err)
	}
	return nil
}
