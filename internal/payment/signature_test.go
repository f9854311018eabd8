package payment

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func clickSign(secret string, fields SignedFields) string {
	mac := hmac.New(md5.New, []byte(secret))
	mac.Write([]byte(fields.MerchantID + fields.Amount + fields.Transaction + fields.Action))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v := NewSignatureVerifier("test-secret")
	fields := SignedFields{
		MerchantID:  "merchant-42",
		Amount:      "50000",
		Transaction: "3f1d7a1e-8a24-4a2f-9a63-0f4f4ce0a001",
		Action:      "complete",
	}

	sign := clickSign("test-secret", fields)
	assert.True(t, v.Verify(fields, sign))

	// Comparison is case-insensitive.
	assert.True(t, v.Verify(fields, strings.ToUpper(sign)))
	assert.True(t, v.Verify(fields, "  "+sign+"  "))
}

func TestVerifyRejectsTamperedFields(t *testing.T) {
	v := NewSignatureVerifier("test-secret")
	fields := SignedFields{
		MerchantID:  "merchant-42",
		Amount:      "50000",
		Transaction: "3f1d7a1e-8a24-4a2f-9a63-0f4f4ce0a001",
		Action:      "complete",
	}
	sign := clickSign("test-secret", fields)

	tampered := fields
	tampered.Amount = "950000"
	assert.False(t, v.Verify(tampered, sign))

	tampered = fields
	tampered.Action = "cancel"
	assert.False(t, v.Verify(tampered, sign))

	assert.False(t, v.Verify(fields, ""))
	assert.False(t, v.Verify(fields, "deadbeef"))

	wrongSecret := NewSignatureVerifier("other-secret")
	assert.False(t, wrongSecret.Verify(fields, sign))
}

func TestParseAction(t *testing.T) {
	cases := map[string]Action{
		"prepare":  ActionPrepare,
		"check":    ActionCheck,
		"complete": ActionComplete,
		"pay":      ActionComplete,
		"cancel":   ActionCancel,
		"COMPLETE": ActionComplete,
		" cancel ": ActionCancel,
	}
	for raw, want := range cases {
		got, err := ParseAction(raw)
		assert.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "refund", "complete2"} {
		_, err := ParseAction(raw)
		assert.ErrorIs(t, err, ErrUnknownAction, raw)
	}
}

func TestIsProviderError(t *testing.T) {
	assert.False(t, IsProviderError(""))
	assert.False(t, IsProviderError("0"))
	assert.False(t, IsProviderError(" 0 "))
	assert.True(t, IsProviderError("-1"))
	assert.True(t, IsProviderError("-9"))
	assert.True(t, IsProviderError("timeout"))
}
