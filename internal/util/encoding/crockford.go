// Package encoding holds text encodings for identifiers.
package encoding

import (
	"encoding/base32"
	"strings"
)

const crockfordBase32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

//nolint:gochecknoglobals
var crockfordBase32 = base32.NewEncoding(crockfordBase32Alphabet).WithPadding(base32.NoPadding)

// EncodeCrockfordB32LC encodes input with Crockford's Base32 alphabet, unpadded and lowercase.
func EncodeCrockfordB32LC(input []byte) string {
	return strings.ToLower(crockfordBase32.EncodeToString(input))
}

// DecodeCrockfordB32LC decodes a string produced by EncodeCrockfordB32LC.
// The input is normalized first.
func DecodeCrockfordB32LC(input string) ([]byte, error) {
	//nolint:wrapcheck
	return crockfordBase32.DecodeString(strings.ToUpper(NormalizeCrockfordB32LC(input)))
}

// NormalizeCrockfordB32LC strips spaces, lowercases and maps the
// transcription-prone letters O, I and L to their digits.
func NormalizeCrockfordB32LC(input string) string {
	return strings.NewReplacer(
		" ", "",
		"o", "0",
		"i", "1",
		"l", "1",
	).Replace(strings.ToLower(input))
}
