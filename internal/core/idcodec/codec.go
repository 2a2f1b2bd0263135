// Package idcodec converts sequence numbers into short identifier suffixes and back.
//
// Values are written in base 32 over the Crockford alphabet, most significant
// symbol first and without padding. The alphabet leaves out I, L, O and U so
// identifiers stay unambiguous when read aloud or typed by hand. Symbols are in
// ASCII order, so encodings of equal length compare the same way as the numbers.
package idcodec

import (
	"math"

	"funcid/internal/core/apperror"
)

// Alphabet is the ordered symbol set; a symbol's index is its digit value.
const Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const base = int64(len(Alphabet))

// MaxLen is the length of Encode(math.MaxInt64).
const MaxLen = 13

var digits [256]int8

func init() {
	for i := range digits {
		digits[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		digits[Alphabet[i]] = int8(i)
	}
}

// Encode returns the identifier suffix for n.
// It panics if n is negative.
func Encode(n int64) string {
	if n < 0 {
		panic("idcodec: negative value")
	}
	if n == 0 {
		return Alphabet[:1]
	}

	var out [MaxLen]byte
	i := len(out)
	for n > 0 {
		i--
		out[i] = Alphabet[n%base]
		n /= base
	}
	return string(out[i:])
}

// Decode is the inverse of Encode.
// It returns a MALFORMED_IDENTIFIER error for empty input, symbols outside
// Alphabet, or values above math.MaxInt64.
func Decode(s string) (int64, error) {
	if s == "" {
		return 0, apperror.NewMalformedIdentifier(s, "empty string")
	}
	if len(s) > MaxLen {
		return 0, apperror.NewMalformedIdentifier(s, "value out of range")
	}

	var n int64
	for i := 0; i < len(s); i++ {
		d := digits[s[i]]
		if d < 0 {
			return 0, apperror.NewMalformedIdentifier(s, "invalid character").
				WithDetail("position", i)
		}
		if n > (math.MaxInt64-int64(d))/base {
			return 0, apperror.NewMalformedIdentifier(s, "value out of range")
		}
		n = n*base + int64(d)
	}
	return n, nil
}
