package mfa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rfcSecret is the RFC 6238 appendix B test secret, "12345678901234567890"
// in base32.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateCodeRFCVectors(t *testing.T) {
	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	for _, tt := range tests {
		code, err := GenerateCode(rfcSecret, tt.unix/StepSeconds)
		require.NoError(t, err)
		assert.Equal(t, tt.want, code, "t=%d", tt.unix)
	}
}

func TestGenerateCodeAtMatchesStep(t *testing.T) {
	at := time.Unix(59, 0)
	code, err := GenerateCodeAt(rfcSecret, at)
	require.NoError(t, err)
	assert.Equal(t, "287082", code)
}

func TestGenerateCodeLenientSecretDecoding(t *testing.T) {
	canonical, err := GenerateCode(rfcSecret, 1)
	require.NoError(t, err)

	// Authenticator apps show secrets lower-cased, grouped and padded;
	// decoding must not care.
	variants := []string{
		"gezdgnbvgy3tqojqgezdgnbvgy3tqojq",
		"GEZD GNBV GY3T QOJQ GEZD GNBV GY3T QOJQ",
		"GEZD-GNBV-GY3T-QOJQ-GEZD-GNBV-GY3T-QOJQ",
		rfcSecret + "====",
	}
	for _, secret := range variants {
		code, err := GenerateCode(secret, 1)
		require.NoError(t, err, secret)
		assert.Equal(t, canonical, code, secret)
	}
}

func TestGenerateCodeInvalidSecret(t *testing.T) {
	_, err := GenerateCode("", 1)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	_, err = GenerateCode("!!!???", 1)
	assert.ErrorIs(t, err, ErrInvalidSecret)
}

func TestGenerateCodeDeterministic(t *testing.T) {
	a, err := GenerateCode(rfcSecret, 12345)
	require.NoError(t, err)
	b, err := GenerateCode(rfcSecret, 12345)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, CodeDigits)
}

func TestVerifyCodeDriftWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	step := now.Unix() / StepSeconds

	codeAt := func(s int64) string {
		code, err := GenerateCode(rfcSecret, s)
		require.NoError(t, err)
		return code
	}

	assert.True(t, VerifyCode(rfcSecret, codeAt(step), now))
	assert.True(t, VerifyCode(rfcSecret, codeAt(step-1), now), "previous step within drift")
	assert.True(t, VerifyCode(rfcSecret, codeAt(step+1), now), "next step within drift")

	assert.False(t, VerifyCode(rfcSecret, codeAt(step-2), now), "two steps back is stale")
	assert.False(t, VerifyCode(rfcSecret, codeAt(step+2), now), "two steps ahead is early")
}

func TestVerifyCodeRejectsMalformedInput(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.False(t, VerifyCode(rfcSecret, "", now))
	assert.False(t, VerifyCode(rfcSecret, "12345", now))
	assert.False(t, VerifyCode(rfcSecret, "1234567", now))
	assert.False(t, VerifyCode("", "123456", now))
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	// 20 random bytes encode to 32 base32 characters without padding.
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	// A generated secret must round-trip through code generation.
	_, err = GenerateCode(a, 1)
	assert.NoError(t, err)
}
