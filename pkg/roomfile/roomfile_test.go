// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package roomfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stan3984/peas-rf-cp/pkg/peerid"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myroom"+Ext)
	id := peerid.New(0x1122334455667788)

	require.NoError(t, Write(path, id))
	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestReadToleratesTrailingBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myroom"+Ext)
	id := peerid.New(42)

	require.NoError(t, Write(path, id))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("extra-room-name"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myroom"+Ext)
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := Read(path)
	assert.Error(t, err)
}

func TestReadRejectsMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope"+Ext))
	assert.Error(t, err)
}
