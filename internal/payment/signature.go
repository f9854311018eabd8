package payment

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// SignatureVerifier validates that a webhook originates from the provider.
// It recomputes a keyed digest over the canonical concatenation of the
// signed fields and compares it, case-insensitively, against the caller's
// sign value. It is pure and holds only the shared secret.
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// SignedFields are the payload fields that participate in the digest, in
// canonical order. Amount is the raw string from the payload: it is signed
// as delivered, never re-parsed.
type SignedFields struct {
	MerchantID  string
	Amount      string
	Transaction string
	Action      string
}

// Sign computes the hex digest for fields.
func (v *SignatureVerifier) Sign(f SignedFields) string {
	mac := hmac.New(md5.New, v.secret)
	mac.Write([]byte(f.MerchantID + f.Amount + f.Transaction + f.Action))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the supplied signature. Callers must reject the request
// before any state read or write when this returns false; which field
// mismatched is never reported.
func (v *SignatureVerifier) Verify(f SignedFields, sign string) bool {
	expected := v.Sign(f)
	provided := strings.ToLower(strings.TrimSpace(sign))
	return hmac.Equal([]byte(expected), []byte(provided))
}
