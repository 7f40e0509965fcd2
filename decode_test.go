package cyphercell

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		in       []byte
		expected string
	}{
		{in: []byte("plain"), expected: "plain"},
		{in: []byte("héllo € \U0001f600"), expected: "héllo € \U0001f600"},
		{in: []byte{'a', 0xff, 'b'}, expected: "a\uFFFDb"},
		{in: []byte{0xff, 0xff}, expected: "\uFFFD\uFFFD"},
		{in: []byte{0xe2, 0x82, 'A'}, expected: "\uFFFDA"},
		{in: []byte{0xe2, 0x82}, expected: "\uFFFD"},
		{in: []byte{0xf0, 0x9f, 0x98}, expected: "\uFFFD"},
		{in: []byte{0xc0, 0xaf}, expected: "\uFFFD\uFFFD"},
		{in: []byte{0xe0, 0x80, 0x80}, expected: "\uFFFD\uFFFD\uFFFD"},
		{in: []byte{0xed, 0xa0, 0x80}, expected: "\uFFFD\uFFFD\uFFFD"},
		{in: []byte{0xf4, 0x90, 0x80, 0x80}, expected: "\uFFFD\uFFFD\uFFFD\uFFFD"},
		{in: []byte{0x80, 'x'}, expected: "\uFFFDx"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(fmt.Sprintf("% x", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.expected, decode(tt.in))
		})
	}
}
