package mfa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySecretStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySecretStore()

	_, err := store.Secret(ctx, 1)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, store.SaveSecret(ctx, 1, "SECRETA"))
	require.NoError(t, store.SaveSecret(ctx, 2, "SECRETB"))

	got, err := store.Secret(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "SECRETA", got)

	require.NoError(t, store.DeleteSecret(ctx, 1))
	_, err = store.Secret(ctx, 1)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	// Other users are untouched.
	got, err = store.Secret(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "SECRETB", got)
}

func TestMemorySecretStoreBackupCodesAreOneTime(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySecretStore()

	require.NoError(t, store.SaveBackupCodes(ctx, 1, []string{"hash-a", "hash-b"}))

	ok, err := store.ConsumeBackupCode(ctx, 1, "hash-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ConsumeBackupCode(ctx, 1, "hash-a")
	require.NoError(t, err)
	assert.False(t, ok, "a consumed code must not work twice")

	ok, err = store.ConsumeBackupCode(ctx, 1, "hash-unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.ConsumeBackupCode(ctx, 2, "hash-b")
	require.NoError(t, err)
	assert.False(t, ok, "codes are scoped per user")
}

func TestManagerEnrollAndVerify(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemorySecretStore(), nil)

	secret, err := m.Enroll(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	now := time.Unix(1_700_000_000, 0)
	code, err := GenerateCodeAt(secret, now)
	require.NoError(t, err)

	ok, err := m.Verify(ctx, 1, code, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Verify(ctx, 1, "000000", now)
	require.NoError(t, err)
	assert.False(t, ok)

	// A user who never enrolled surfaces the missing-secret error.
	_, err = m.Verify(ctx, 2, code, now)
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestManagerReEnrollReplacesSecret(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemorySecretStore(), nil)

	first, err := m.Enroll(ctx, 1)
	require.NoError(t, err)
	second, err := m.Enroll(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	now := time.Unix(1_700_000_000, 0)
	oldCode, err := GenerateCodeAt(first, now)
	require.NoError(t, err)

	ok, err := m.Verify(ctx, 1, oldCode, now)
	require.NoError(t, err)
	assert.False(t, ok, "codes from the replaced secret must stop working")
}

func TestManagerDisable(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemorySecretStore(), nil)

	secret, err := m.Enroll(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, m.Disable(ctx, 1))

	now := time.Unix(1_700_000_000, 0)
	code, err := GenerateCodeAt(secret, now)
	require.NoError(t, err)

	_, err = m.Verify(ctx, 1, code, now)
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestManagerBackupCodes(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemorySecretStore(), nil)

	codes, err := m.GenerateBackupCodes(ctx, 1, 4)
	require.NoError(t, err)
	require.Len(t, codes, 4)
	for _, code := range codes {
		assert.Len(t, code, 10)
	}

	ok, err := m.UseBackupCode(ctx, 1, codes[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.UseBackupCode(ctx, 1, codes[0])
	require.NoError(t, err)
	assert.False(t, ok, "each backup code works exactly once")

	ok, err = m.UseBackupCode(ctx, 1, codes[1])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManagerBackupCodesRegenerationInvalidatesOldSet(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemorySecretStore(), nil)

	oldCodes, err := m.GenerateBackupCodes(ctx, 1, 2)
	require.NoError(t, err)
	_, err = m.GenerateBackupCodes(ctx, 1, 2)
	require.NoError(t, err)

	ok, err := m.UseBackupCode(ctx, 1, oldCodes[0])
	require.NoError(t, err)
	assert.False(t, ok)
}
