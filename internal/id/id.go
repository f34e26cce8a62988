// Package id generates opaque identifiers for server-side objects that have
// no on-chain identity (SSE clients, token ids).
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate returns "prefix-<nanoid>", e.g. "sse-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system entropy source fails.
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}
