package tagging

import (
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/unicode/norm"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
)

func keccak(parts ...[]byte) domain.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out domain.Hash
	h.Sum(out[:0])
	return out
}

// ComputeRecordID derives a tagging record id from its composite key:
// keccak256(targetID ‖ recordType ‖ relayer ‖ tagger). recordType is the only
// variable-length field, so the packed encoding is unambiguous.
func ComputeRecordID(targetID domain.Hash, recordType string, relayer, tagger domain.Address) domain.Hash {
	return keccak(targetID[:], []byte(recordType), relayer[:], tagger[:])
}

// CanonicalTag returns the form a tag string is identified by: NFC
// normalized with ASCII letters lowercased. "#Love" and "#love" are the same
// tag.
func CanonicalTag(tag string) string {
	return asciiLower(norm.NFC.String(tag))
}

// ComputeTagID derives the id of a tag string.
func ComputeTagID(tag string) domain.Hash {
	return keccak([]byte(CanonicalTag(tag)))
}

// ComputeTargetID derives the id of a target URI. URIs are not normalized.
func ComputeTargetID(uri string) domain.Hash {
	return keccak([]byte(uri))
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
