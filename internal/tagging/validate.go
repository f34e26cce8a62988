package tagging

import (
	"strings"
	"unicode"

	"github.com/ethereum-tag-service/ets-server/internal/errors"
)

// MaxTargetURILength bounds target URIs in bytes.
const MaxTargetURILength = 2048

// ValidateTag checks a raw tag string: it must start with '#', contain no
// whitespace, and its byte length must lie within the configured bounds.
func ValidateTag(tag string, p Params) error {
	if !strings.HasPrefix(tag, "#") {
		return errors.Validationf("tag %q must start with #", tag)
	}
	if n := len(tag); n < p.TagMinLength || n > p.TagMaxLength {
		return errors.Validationf("tag %q must be %d to %d bytes long", tag, p.TagMinLength, p.TagMaxLength)
	}
	if strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
		return errors.Validationf("tag %q must not contain whitespace", tag)
	}
	return nil
}

// ValidateRecordType checks the record type is non-empty and within the
// configured maximum length.
func ValidateRecordType(recordType string, p Params) error {
	if recordType == "" {
		return errors.Validation("record type is required")
	}
	if len(recordType) > p.MaxRecordTypeLength {
		return errors.Validationf("record type exceeds %d bytes", p.MaxRecordTypeLength)
	}
	return nil
}

// ValidateTargetURI checks a target URI is present and bounded.
func ValidateTargetURI(uri string) error {
	if uri == "" {
		return errors.Validation("target uri is required")
	}
	if len(uri) > MaxTargetURILength {
		return errors.Validationf("target uri exceeds %d bytes", MaxTargetURILength)
	}
	return nil
}
