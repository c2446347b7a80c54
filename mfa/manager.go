package mfa

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"
)

const backupCodeBytes = 5 // 10 hex characters per code

// Manager ties code generation to per-user secret storage.
type Manager struct {
	store SecretStore
	log   *logrus.Logger
}

func NewManager(store SecretStore, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{store: store, log: logger}
}

// Enroll creates and stores a fresh secret for the user and returns it for
// QR-code display. Enrolling again replaces any previous secret.
func (m *Manager) Enroll(ctx context.Context, userID uint) (string, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return "", err
	}
	if err := m.store.SaveSecret(ctx, userID, secret); err != nil {
		return "", err
	}
	m.log.WithField("user_id", userID).Info("totp secret enrolled")
	return secret, nil
}

// Verify checks a submitted code against the user's stored secret with the
// standard one-step drift window.
func (m *Manager) Verify(ctx context.Context, userID uint, code string, now time.Time) (bool, error) {
	secret, err := m.store.Secret(ctx, userID)
	if err != nil {
		return false, err
	}
	return VerifyCode(secret, code, now), nil
}

// Disable removes the user's secret and backup codes.
func (m *Manager) Disable(ctx context.Context, userID uint) error {
	return m.store.DeleteSecret(ctx, userID)
}

// GenerateBackupCodes creates n one-time recovery codes, stores their
// hashes and returns the plain codes. The plain values are only available
// from this call.
func (m *Manager) GenerateBackupCodes(ctx context.Context, userID uint, n int) ([]string, error) {
	codes := make([]string, 0, n)
	hashes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		raw := make([]byte, backupCodeBytes)
		if _, err := rand.Read(raw); err != nil {
			return nil, err
		}
		code := hex.EncodeToString(raw)
		codes = append(codes, code)
		hashes = append(hashes, hashBackupCode(code))
	}
	if err := m.store.SaveBackupCodes(ctx, userID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

// UseBackupCode consumes a recovery code. Each code works exactly once.
func (m *Manager) UseBackupCode(ctx context.Context, userID uint, code string) (bool, error) {
	return m.store.ConsumeBackupCode(ctx, userID, hashBackupCode(code))
}

func hashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
