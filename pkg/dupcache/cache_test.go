// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package dupcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertIdempotence(t *testing.T) {
	c := New(10)
	assert.True(t, c.Insert(42))
	assert.False(t, c.Insert(42))
	assert.True(t, c.Contains(42))
}

func TestEvictionIsFIFO(t *testing.T) {
	c := New(2)
	assert.True(t, c.Insert(1))
	assert.True(t, c.Insert(2))
	assert.True(t, c.Insert(3)) // evicts 1

	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(2))
	assert.True(t, c.Contains(3))
	assert.Equal(t, 2, c.Len())
}

func TestReinsertAfterEviction(t *testing.T) {
	c := New(1)
	assert.True(t, c.Insert(1))
	assert.True(t, c.Insert(2)) // evicts 1
	assert.True(t, c.Insert(1)) // 1 was evicted, so this is a fresh insert
}
