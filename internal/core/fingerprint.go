package core

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint returns a short digest of the given field values.
//
// Values are rendered in order, joined with "|" and hashed with MD5; the
// first eight hex characters are returned. Nil values (including typed nil
// pointers) render as "None" so that an unset optional field hashes
// differently from an empty string.
func Fingerprint(fields ...any) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fingerprintField(f)
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:8]
}

func fingerprintField(v any) string {
	switch f := v.(type) {
	case nil:
		return "None"
	case *string:
		if f == nil {
			return "None"
		}
		return *f
	case *int64:
		if f == nil {
			return "None"
		}
		return fmt.Sprint(*f)
	case *int:
		if f == nil {
			return "None"
		}
		return fmt.Sprint(*f)
	case *bool:
		if f == nil {
			return "None"
		}
		return fmt.Sprint(*f)
	default:
		return fmt.Sprint(f)
	}
}
