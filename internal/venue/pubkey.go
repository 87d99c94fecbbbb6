package venue

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidatePubkey checks that s is a base58-encoded 32-byte ed25519 point.
// Used to validate signer and fee-account keys before live execution.
func ValidatePubkey(s string) error {
	if s == "" {
		return fmt.Errorf("empty pubkey")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode pubkey: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("pubkey is %d bytes, want 32", len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("pubkey not on ed25519 curve: %w", err)
	}
	return nil
}
