package cyphercell

import (
	"unicode/utf8"

	"github.com/awnumar/memguard/core"
)

// decode converts b to a string. Each maximal subpart of an ill-formed sequence is replaced by one U+FFFD, so
// "\xff\xff" yields two markers and a truncated "\xe2\x82" yields one. Any intermediate copy is wiped.
func decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	// every invalid byte expands to at most three, so out never reallocates
	out := make([]byte, 0, 3*len(b))
	defer func() {
		core.Wipe(out[:cap(out)])
	}()

	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
			i += invalidSpan(b[i:])

			continue
		}

		out = append(out, b[i:i+size]...)
		i += size
	}

	return string(out)
}

// invalidSpan returns the length of the maximal subpart of an ill-formed sequence starting at b[0]: the longest
// prefix that could still begin a well-formed sequence, or 1 if b[0] cannot start one.
func invalidSpan(b []byte) int {
	lo, hi := byte(0x80), byte(0xbf)

	var need int

	switch c := b[0]; {
	case c >= 0xc2 && c <= 0xdf:
		need = 1
	case c == 0xe0:
		need, lo = 2, 0xa0
	case c == 0xed:
		need, hi = 2, 0x9f
	case c >= 0xe1 && c <= 0xef:
		need = 2
	case c == 0xf0:
		need, lo = 3, 0x90
	case c >= 0xf1 && c <= 0xf3:
		need = 3
	case c == 0xf4:
		need, hi = 3, 0x8f
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) && b[n] >= lo && b[n] <= hi {
		lo, hi = 0x80, 0xbf
		n++
	}

	return n
}
