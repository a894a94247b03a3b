package compress_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/mongowire/mongowire/msg/compress"
)

func TestCompressors_roundTrip(t *testing.T) {
	t.Parallel()

	payload := append(
		[]byte("a payload with some repetition, repetition, repetition"),
		bytes.Repeat([]byte{3}, 1024)...,
	)

	tests := []struct {
		subject Compressor
		name    string
		id      uint8
	}{
		{NewSnappyCompressor(), "snappy", 1},
		{NewZLibCompressor(), "zlib", 2},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, test.name, test.subject.Name())
			require.Equal(t, test.id, test.subject.ID())

			var buf bytes.Buffer
			require.NoError(t, test.subject.Compress(payload, &buf))
			require.NotEqual(t, payload, buf.Bytes())

			out := make([]byte, len(payload))
			require.NoError(t, test.subject.Decompress(&buf, out))
			require.Equal(t, payload, out)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	c, ok := Lookup(1)
	require.True(t, ok)
	require.Equal(t, "snappy", c.Name())

	c, ok = Lookup(2)
	require.True(t, ok)
	require.Equal(t, "zlib", c.Name())

	_, ok = Lookup(9)
	require.False(t, ok)
}

func TestNegotiate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		offered    []string
		advertised []string
		expected   string
	}{
		{[]string{"snappy", "zlib"}, []string{"zlib", "snappy"}, "snappy"},
		{[]string{"zlib", "snappy"}, []string{"snappy", "zlib"}, "zlib"},
		{[]string{"snappy"}, []string{"zlib"}, ""},
		{[]string{"snappy"}, nil, ""},
		{nil, []string{"snappy"}, ""},
	}

	for _, test := range tests {
		c, ok := Negotiate(test.offered, test.advertised)
		if test.expected == "" {
			require.False(t, ok)
			continue
		}
		require.True(t, ok)
		require.Equal(t, test.expected, c.Name())
	}
}
