// Package idhash computes deterministic identifiers over normalized payloads.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"solana-agent-arena/internal/domain"
)

// ComputeRequestHash computes a deterministic hash over a normalized trade
// intent payload. Two submissions hash equal exactly when they describe the
// same logical request, which is what distinguishes an idempotent retry from
// a key reused for a different request.
// Formula: SHA256(agent_id|symbol|side|quantity|notional_usd|mode|meta)
// Returns hex-encoded hash (64 characters).
func ComputeRequestHash(
	agentID string,
	symbol string,
	side domain.Side,
	quantity float64,
	notionalUsd float64,
	mode domain.Mode,
	meta map[string]string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		agentID,
		symbol,
		string(side),
		formatFloat(quantity),
		formatFloat(notionalUsd),
		string(mode),
		canonicalMeta(meta),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// formatFloat renders a float with the shortest exact representation so the
// hash does not depend on formatting width.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// canonicalMeta renders meta as sorted key=value pairs for determinism.
func canonicalMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+meta[k])
	}
	return strings.Join(pairs, ",")
}
