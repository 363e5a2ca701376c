// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOpenInMemory verifies in-memory database creation works.
func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("key"), []byte("value"))
	})
	require.NoError(t, err)

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("key"))
		require.NoError(t, err)

		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("value"), val)
			return nil
		})
	})
	require.NoError(t, err)

	assert.True(t, db.InMemory())
	assert.Empty(t, db.Path())
}

// TestOpenWithPath verifies data survives a close and reopen.
func TestOpenWithPath(t *testing.T) {
	dir := t.TempDir()

	db, err := OpenWithPath(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, db.Path())
	assert.False(t, db.InMemory())

	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("persistent-key"), []byte("persistent-value"))
	})
	require.NoError(t, err)

	require.NoError(t, db.Close())

	db2, err := OpenWithPath(dir)
	require.NoError(t, err)
	defer db2.Close()

	err = db2.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("persistent-key"))
		require.NoError(t, err)

		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("persistent-value"), val)
			return nil
		})
	})
	require.NoError(t, err)
}

// TestOpen_RequiresPath verifies persistent mode rejects an empty path.
func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{InMemory: false})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

// TestWithTxn verifies commit and rollback behavior.
func TestWithTxn(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	err = db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte("committed"), []byte("yes"))
	})
	require.NoError(t, err)

	// A returned error must discard the write.
	boom := errors.New("boom")
	err = db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set([]byte("rolled-back"), []byte("no")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte("committed")); err != nil {
			return err
		}
		_, err := txn.Get([]byte("rolled-back"))
		assert.ErrorIs(t, err, badger.ErrKeyNotFound)
		return nil
	})
	require.NoError(t, err)
}

// TestWithTxn_ContextCancelled verifies a dead context stops the
// transaction before it starts.
func TestWithTxn_ContextCancelled(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = db.WithTxn(ctx, func(txn *badger.Txn) error {
		t.Fatal("transaction body must not run")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	err = db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		t.Fatal("transaction body must not run")
		return nil
	})
	require.Error(t, err)
}

// TestSync_InMemoryNoop verifies Sync is a no-op without a disk.
func TestSync_InMemoryNoop(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Sync())
}
