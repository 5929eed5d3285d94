// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package peerid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceIsSymmetricAndZeroForSelf(t *testing.T) {
	a := New(0xDEADBEEF)
	b := New(0xCAFEF00D)

	assert.Equal(t, uint64(0), a.Distance(a))
	assert.Equal(t, a.Distance(b), b.Distance(a))
}

func TestCommonBitsFullyEqual(t *testing.T) {
	a := New(0x1234567890ABCDEF)
	assert.Equal(t, 64, a.CommonBits(a))
}

func TestCommonBitsCountsLeadingZerosOfXOR(t *testing.T) {
	a := New(0)
	b := New(1) // XOR = 1, leading zeros = 63
	assert.Equal(t, 63, a.CommonBits(b))

	c := New(1 << 63) // XOR with 0 = top bit set, leading zeros = 0
	assert.Equal(t, 0, a.CommonBits(c))
}

func TestNewRandomIsNotTriviallyConstant(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 32; i++ {
		seen[NewRandom()] = true
	}
	// statistically negligible chance of collision across 32 samples of a
	// 64-bit space; this just guards against a broken/constant generator.
	require.True(t, len(seen) > 1)
}

func TestCBORRoundTrip(t *testing.T) {
	orig := NewRandom()
	data, err := orig.MarshalCBOR()
	require.NoError(t, err)

	var got ID
	require.NoError(t, got.UnmarshalCBOR(data))
	assert.Equal(t, orig, got)
}
