// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package journal

import (
	"context"
	"fmt"
	"strings"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianPlan/storage/badger"
)

// ListSessions returns the distinct session IDs recorded in the journal
// database at path, in key order. It opens the database, scans the
// "plan:" keyspace, and closes it again; do not call it while another
// process holds the database open.
func ListSessions(ctx context.Context, path string) ([]string, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	cfg := badger.DefaultConfig()
	cfg.Path = path
	cfg.GCInterval = 0 // scan and close, no GC needed

	db, err := badger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	defer db.Close()

	var sessions []string
	seen := make(map[string]struct{})

	prefix := []byte("plan:")
	err = db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			// Key format: plan:{session_id}:{seq_num:016d}. Validated
			// session IDs contain no colons, so the last colon always
			// separates the sequence number.
			key := string(it.Item().Key())
			rest := key[len(prefix):]
			idx := strings.LastIndexByte(rest, ':')
			if idx <= 0 {
				continue
			}
			session := rest[:idx]
			if _, ok := seen[session]; ok {
				continue
			}
			seen[session] = struct{}{}
			sessions = append(sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}

	return sessions, nil
}
