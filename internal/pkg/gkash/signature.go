package gkash

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// StatusPaid is the Gkash status string for a settled payment.
const StatusPaid = "88 - Transferred"

// BuildSignatureBase builds the canonical string Gkash signs:
// key;CID;POID;cartid;amount-in-cents-padded-to-3;currency;status, upper-cased.
// Field order is fixed by the provider protocol.
func BuildSignatureBase(signatureKey, cid, poid, cartID string, amountCents int64, currency, status string) string {
	parts := []string{
		signatureKey,
		cid,
		poid,
		cartID,
		FormatAmountCents(amountCents),
		currency,
		status,
	}
	return strings.ToUpper(strings.Join(parts, ";"))
}

// FormatAmountCents renders an integer-cents amount zero-padded to 3 digits,
// matching the provider's amount encoding ("9.99" -> "999", "0.05" -> "005").
func FormatAmountCents(cents int64) string {
	return fmt.Sprintf("%03d", cents)
}

// Sign computes the hex SHA-512 digest of a signature base
func Sign(base string) string {
	sum := sha512.Sum512([]byte(base))
	return hex.EncodeToString(sum[:])
}

// VerifySignature compares two hex digests case-insensitively in constant time
func VerifySignature(expectedHex, receivedHex string) bool {
	expected := strings.ToLower(strings.TrimSpace(expectedHex))
	received := strings.ToLower(strings.TrimSpace(receivedHex))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
