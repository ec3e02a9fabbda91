// Package fingerprint contains the hashing and canonicalization utilities
// that give forecasts, tours, plans and solver configurations a stable
// identity. This is part of the Functional Core - no I/O, only pure
// functions.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Tour returns the stable fingerprint of a tour's identity-defining fields.
// Two tours with the same day, times, depot and skill are the same tour for
// diffing and coverage purposes, regardless of which forecast version they
// belong to. Depot and skill are case-insensitive.
func Tour(day, start, end, depot, skill string) string {
	parts := []string{
		strings.TrimSpace(day),
		strings.TrimSpace(start),
		strings.TrimSpace(end),
		strings.ToLower(strings.TrimSpace(depot)),
		strings.ToLower(strings.TrimSpace(skill)),
	}
	return digest(strings.Join(parts, "|"))
}

// CanonicalizeText normalizes raw forecast text so that formatting-only
// differences (line endings, trailing whitespace, blank lines) do not
// produce distinct forecast versions.
func CanonicalizeText(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// InputHash digests canonicalized forecast text.
func InputHash(raw string) string {
	return digest(CanonicalizeText(raw))
}

// AssignmentKey is the identity of one assignment for output hashing.
type AssignmentKey struct {
	DriverID       string
	TourInstanceID string
	Day            string
	BlockID        string
	Role           string
}

// Output digests a set of assignments independent of their order. Two
// solver runs produce the same hash iff they produce the same assignment
// set, which is the determinism proof the audit framework relies on.
func Output(keys []AssignmentKey) string {
	rows := make([]string, len(keys))
	for i, k := range keys {
		rows[i] = strings.Join([]string{k.DriverID, k.TourInstanceID, k.Day, k.BlockID, k.Role}, "|")
	}
	sort.Strings(rows)
	return digest(strings.Join(rows, "\n"))
}

// Config digests an effective solver configuration. encoding/json writes
// map keys in sorted order, so the digest is independent of insertion
// order.
func Config(cfg map[string]any) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize solver config: %w", err)
	}
	return digest(string(data)), nil
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
