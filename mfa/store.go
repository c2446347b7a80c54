package mfa

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// ErrSecretNotFound means the user has no enrolled TOTP secret.
var ErrSecretNotFound = errors.New("mfa: secret not found")

// SecretStore persists TOTP secrets and hashed backup codes keyed by user.
// Injected rather than global so the MFA core stays testable and can run on
// more than one node.
type SecretStore interface {
	SaveSecret(ctx context.Context, userID uint, secret string) error
	Secret(ctx context.Context, userID uint) (string, error)
	DeleteSecret(ctx context.Context, userID uint) error

	SaveBackupCodes(ctx context.Context, userID uint, hashes []string) error
	// ConsumeBackupCode removes the hash if present and reports whether it
	// was there. Consumption is atomic: a code can only be used once.
	ConsumeBackupCode(ctx context.Context, userID uint, hash string) (bool, error)
}

// RedisSecretStore keeps MFA state in Redis so every API node sees the same
// enrollment.
type RedisSecretStore struct {
	client *redis.Client
}

func NewRedisSecretStore(client *redis.Client) *RedisSecretStore {
	return &RedisSecretStore{client: client}
}

func secretKey(userID uint) string {
	return fmt.Sprintf("mfa:secret:%d", userID)
}

func backupKey(userID uint) string {
	return fmt.Sprintf("mfa:backup:%d", userID)
}

func (s *RedisSecretStore) SaveSecret(ctx context.Context, userID uint, secret string) error {
	return s.client.Set(ctx, secretKey(userID), secret, 0).Err()
}

func (s *RedisSecretStore) Secret(ctx context.Context, userID uint) (string, error) {
	secret, err := s.client.Get(ctx, secretKey(userID)).Result()
	if err == redis.Nil {
		return "", ErrSecretNotFound
	}
	return secret, err
}

func (s *RedisSecretStore) DeleteSecret(ctx context.Context, userID uint) error {
	return s.client.Del(ctx, secretKey(userID), backupKey(userID)).Err()
}

func (s *RedisSecretStore) SaveBackupCodes(ctx context.Context, userID uint, hashes []string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, backupKey(userID))
	if len(hashes) > 0 {
		members := make([]interface{}, len(hashes))
		for i, h := range hashes {
			members[i] = h
		}
		pipe.SAdd(ctx, backupKey(userID), members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSecretStore) ConsumeBackupCode(ctx context.Context, userID uint, hash string) (bool, error) {
	removed, err := s.client.SRem(ctx, backupKey(userID), hash).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// MemorySecretStore is the in-process implementation, used in tests and in
// single-node deployments without Redis.
type MemorySecretStore struct {
	mu      sync.Mutex
	secrets map[uint]string
	backups map[uint]map[string]bool
}

func NewMemorySecretStore() *MemorySecretStore {
	return &MemorySecretStore{
		secrets: make(map[uint]string),
		backups: make(map[uint]map[string]bool),
	}
}

func (s *MemorySecretStore) SaveSecret(_ context.Context, userID uint, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[userID] = secret
	return nil
}

func (s *MemorySecretStore) Secret(_ context.Context, userID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, ok := s.secrets[userID]
	if !ok {
		return "", ErrSecretNotFound
	}
	return secret, nil
}

func (s *MemorySecretStore) DeleteSecret(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, userID)
	delete(s.backups, userID)
	return nil
}

func (s *MemorySecretStore) SaveBackupCodes(_ context.Context, userID uint, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		set[h] = true
	}
	s.backups[userID] = set
	return nil
}

func (s *MemorySecretStore) ConsumeBackupCode(_ context.Context, userID uint, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.backups[userID]
	if !ok || !set[hash] {
		return false, nil
	}
	delete(set, hash)
	return true, nil
}
