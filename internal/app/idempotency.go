package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/roster/internal/metrics"
	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

// idempotencyGate wraps the idempotency repository with the replay/conflict
// protocol shared by every mutating operation: the same key with the same
// request hash replays the stored response, the same key with a different
// hash is a conflict, and everything else executes normally.
type idempotencyGate struct {
	repo secondary.IdempotencyRepository
	ttl  time.Duration
	now  func() time.Time
}

func newIdempotencyGate(repo secondary.IdempotencyRepository, ttl time.Duration) *idempotencyGate {
	return &idempotencyGate{repo: repo, ttl: ttl, now: time.Now}
}

// check returns the stored record for a replay, nil when the request should
// execute, or a ConflictError for a key reused with a different payload.
// An empty key disables the gate.
func (g *idempotencyGate) check(ctx context.Context, key, requestHash string) (*models.IdempotencyRecord, error) {
	if key == "" {
		return nil, nil
	}
	record, err := g.repo.Get(ctx, key, g.now())
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if record == nil {
		return nil, nil
	}
	if record.RequestHash != requestHash {
		return nil, models.NewConflict(models.ConflictIdempotencyMismatch,
			"idempotency key %s was used with a different request", key)
	}
	metrics.IdempotentReplaysTotal.Inc()
	return record, nil
}

// store records the response of a completed request. response must be
// JSON-marshalable.
func (g *idempotencyGate) store(ctx context.Context, key, requestHash string, response any) error {
	if key == "" {
		return nil
	}
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency response: %w", err)
	}
	return g.repo.Put(ctx, &models.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Response:    string(data),
		ExpiresAt:   g.now().Add(g.ttl).UTC().Format(time.RFC3339),
	})
}

// requestHash digests the identity-defining fields of a request.
func requestHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
