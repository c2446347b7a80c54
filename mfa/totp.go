package mfa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// CodeDigits is the length of a generated TOTP code.
	CodeDigits = 6
	// StepSeconds is the RFC 6238 time step.
	StepSeconds = 30
	// driftSteps is how many steps either side of "now" verification accepts.
	driftSteps = 1

	base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
	secretBytes    = 20
)

var ErrInvalidSecret = errors.New("mfa: secret is not valid base32")

// decodeBase32 decodes a shared secret leniently: padding, spaces, dashes
// and anything else outside the RFC 4648 alphabet is skipped, since
// authenticator apps routinely reformat secrets for display.
func decodeBase32(secret string) []byte {
	secret = strings.ToUpper(secret)

	var out []byte
	value, bits := 0, 0
	for _, r := range secret {
		idx := strings.IndexRune(base32Alphabet, r)
		if idx < 0 {
			continue
		}
		value = value<<5 | idx
		bits += 5
		if bits >= 8 {
			out = append(out, byte(value>>(bits-8)))
			bits -= 8
			value &= (1 << bits) - 1
		}
	}
	return out
}

// GenerateCode produces the 6-digit code for one 30-second time step, per
// RFC 6238: HMAC-SHA1 over the big-endian step counter, dynamic truncation,
// modulo 10^6.
func GenerateCode(secret string, step int64) (string, error) {
	key := decodeBase32(secret)
	if len(key) == 0 {
		return "", ErrInvalidSecret
	}

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(step))

	mac := hmac.New(sha1.New, key)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := (uint32(sum[offset]&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])) % 1_000_000

	return fmt.Sprintf("%06d", code), nil
}

// GenerateCodeAt is GenerateCode for a wall-clock instant.
func GenerateCodeAt(secret string, t time.Time) (string, error) {
	return GenerateCode(secret, t.Unix()/StepSeconds)
}

// VerifyCode checks a submitted code against the current step and one step
// either side, tolerating 30 seconds of clock drift. Comparison is
// constant-time.
func VerifyCode(secret, code string, now time.Time) bool {
	if len(code) != CodeDigits {
		return false
	}

	step := now.Unix() / StepSeconds
	for delta := int64(-driftSteps); delta <= driftSteps; delta++ {
		expected, err := GenerateCode(secret, step+delta)
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

// GenerateSecret creates a new random 160-bit shared secret, base32 encoded
// without padding, ready for an authenticator-app QR code.
func GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}
