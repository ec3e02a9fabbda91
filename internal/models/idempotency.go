package models

// IdempotencyRecord caches the response of a completed write keyed by the
// caller-supplied idempotency key. Replaying the same key with the same
// request hash returns Response without re-executing; a different request
// hash is a conflict.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	Response    string
	ExpiresAt   string
	CreatedAt   string
}
