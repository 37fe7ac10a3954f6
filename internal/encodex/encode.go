// Package encodex provides the reversible text encoding used for stored
// transaction identifiers. This is a storage-format transform, not a
// security control.
package encodex

import "encoding/base64"

// Base64Encode encodes s using standard base64.
func Base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// Base64Decode decodes a standard base64 string.
func Base64Decode(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
