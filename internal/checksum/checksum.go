// Package checksum computes the keyed SHA-512 digests exchanged with the
// payment gateway: one authorizing an outbound payment request and one
// authenticating the gateway's result callback.
package checksum

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// Delimiter joins fields before hashing. Gateway field values never contain it.
const Delimiter = "|"

// UDFCount is the number of free-form fields the gateway carries.
const UDFCount = 10

// PaymentFields are the values shared by request and response hashes.
type PaymentFields struct {
	TxnID       string
	Amount      string
	ProductInfo string
	FirstName   string
	Email       string
	UDF         [UDFCount]string
}

// Engine holds the merchant key and salt. It never exposes the salt.
type Engine struct {
	key  string
	salt string
}

func New(key, salt string) *Engine {
	return &Engine{key: key, salt: salt}
}

// MerchantKey is the non-secret key handed to the browser checkout.
func (e *Engine) MerchantKey() string {
	return e.key
}

// RequestSequence is the v1 outbound field order:
// key|txnid|amount|productinfo|firstname|email|udf1..udf10|salt.
// Reordering it breaks every existing integration.
func (e *Engine) RequestSequence(f PaymentFields) []string {
	seq := make([]string, 0, 7+UDFCount)
	seq = append(seq, e.key, f.TxnID, f.Amount, f.ProductInfo, f.FirstName, f.Email)
	seq = append(seq, f.UDF[:]...)
	return append(seq, e.salt)
}

// ResponseSequence is the v1 inbound field order, the mirror image of the
// request with status after the salt:
// salt|status|udf10..udf1|email|firstname|productinfo|amount|txnid|key.
func (e *Engine) ResponseSequence(status string, f PaymentFields) []string {
	seq := make([]string, 0, 8+UDFCount)
	seq = append(seq, e.salt, status)
	for i := UDFCount - 1; i >= 0; i-- {
		seq = append(seq, f.UDF[i])
	}
	return append(seq, f.Email, f.FirstName, f.ProductInfo, f.Amount, f.TxnID, e.key)
}

func (e *Engine) RequestHash(f PaymentFields) string {
	return Digest(e.RequestSequence(f))
}

func (e *Engine) ResponseHash(status string, f PaymentFields) string {
	return Digest(e.ResponseSequence(status, f))
}

// VerifyResponse recomputes the response hash and compares it with the
// claimed one in constant time.
func (e *Engine) VerifyResponse(status string, f PaymentFields, claimed string) bool {
	want := e.ResponseHash(status, f)
	got := strings.ToLower(strings.TrimSpace(claimed))
	return hmac.Equal([]byte(want), []byte(got))
}

// Digest hashes the delimited sequence and returns lowercase hex.
func Digest(seq []string) string {
	sum := sha512.Sum512([]byte(strings.Join(seq, Delimiter)))
	return hex.EncodeToString(sum[:])
}
