// Package hashfn holds the mixing routine shared by every rule option kind
// so that option hashes are comparable across kinds.
//
// The functions are Bob Jenkins' lookup3 mix() and final() over three
// 32-bit words. MixString folds a byte string into the words
// little-endian, 12 bytes per round, mixing after each full round and once
// more after a trailing partial round.
package hashfn

import "math/bits"

// Mix scrambles a, b and c reversibly.
func Mix(a, b, c uint32) (uint32, uint32, uint32) {
	a -= c
	a ^= bits.RotateLeft32(c, 4)
	c += b
	b -= a
	b ^= bits.RotateLeft32(a, 6)
	a += c
	c -= b
	c ^= bits.RotateLeft32(b, 8)
	b += a
	a -= c
	a ^= bits.RotateLeft32(c, 16)
	c += b
	b -= a
	b ^= bits.RotateLeft32(a, 19)
	a += c
	c -= b
	c ^= bits.RotateLeft32(b, 4)
	b += a
	return a, b, c
}

// Final is the lookup3 finalization; c carries the result.
func Final(a, b, c uint32) (uint32, uint32, uint32) {
	c ^= b
	c -= bits.RotateLeft32(b, 14)
	a ^= c
	a -= bits.RotateLeft32(c, 11)
	b ^= a
	b -= bits.RotateLeft32(a, 25)
	c ^= b
	c -= bits.RotateLeft32(b, 16)
	a ^= c
	a -= bits.RotateLeft32(c, 4)
	b ^= a
	b -= bits.RotateLeft32(a, 14)
	c ^= b
	c -= bits.RotateLeft32(b, 24)
	return a, b, c
}

// MixString adds the bytes of s into a, b, c.
func MixString(a, b, c uint32, s string) (uint32, uint32, uint32) {
	j := 0
	for i := 0; i < len(s); i++ {
		v := uint32(s[i]) << (8 * uint(j%4))
		switch j / 4 {
		case 0:
			a += v
		case 1:
			b += v
		default:
			c += v
		}
		j++
		if j == 12 {
			a, b, c = Mix(a, b, c)
			j = 0
		}
	}
	if j != 0 {
		a, b, c = Mix(a, b, c)
	}
	return a, b, c
}

// Tuple hashes the canonical (op, min, max, name) tuple used by
// range-backed rule options.
func Tuple(op, lo, hi uint32, name string) uint32 {
	a, b, c := MixString(op, lo, hi, name)
	_, _, c = Final(a, b, c)
	return c
}
