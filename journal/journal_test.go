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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestJournal opens an in-memory journal and closes it with the test.
func newTestJournal(t *testing.T) *BadgerJournal {
	t.Helper()

	cfg := DefaultConfig()
	cfg.SessionID = "test-session"
	cfg.InMemory = true
	cfg.SyncWrites = false

	j, err := NewBadgerJournal(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

// TestNewBadgerJournal_ValidatesConfig verifies construction fails fast
// on bad configuration.
func TestNewBadgerJournal_ValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing session id", Config{InMemory: true}},
		{"session id with key separator", Config{SessionID: "a:b", InMemory: true}},
		{"missing path", Config{SessionID: "s"}},
		{"negative size limit", Config{SessionID: "s", InMemory: true, MaxJournalBytes: -1}},
		{"negative ring size", Config{SessionID: "s", InMemory: true, RingSize: -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBadgerJournal(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

// TestJournal_AppendAndReplay verifies records come back in order with
// their contents intact.
func TestJournal_AppendAndReplay(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	issued := time.Now()
	plan := &PlanRecord{
		PlanID:    "plan-1",
		Goal:      "collect wood",
		Plan:      []string{"find trees", "chop wood"},
		Trigger:   TriggerInitial,
		CreatedAt: issued,
	}
	reward := &RewardRecord{
		PlanID:    "plan-1",
		Action:    "find trees",
		Reward:    -1.0,
		Replanned: true,
		CreatedAt: issued.Add(time.Second),
	}

	require.NoError(t, j.Append(ctx, plan))
	require.NoError(t, j.Append(ctx, reward))

	records, err := j.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	gotPlan, ok := records[0].(*PlanRecord)
	require.True(t, ok, "first record should be a PlanRecord, got %s", records[0].Kind())
	assert.Equal(t, "plan-1", gotPlan.PlanID)
	assert.Equal(t, "collect wood", gotPlan.Goal)
	assert.Equal(t, []string{"find trees", "chop wood"}, gotPlan.Plan)
	assert.Equal(t, TriggerInitial, gotPlan.Trigger)
	assert.WithinDuration(t, issued, gotPlan.At(), time.Second)

	gotReward, ok := records[1].(*RewardRecord)
	require.True(t, ok, "second record should be a RewardRecord, got %s", records[1].Kind())
	assert.Equal(t, "plan-1", gotReward.PlanID)
	assert.Equal(t, "find trees", gotReward.Action)
	assert.Equal(t, -1.0, gotReward.Reward)
	assert.True(t, gotReward.Replanned)

	stats := j.Stats()
	assert.Equal(t, int64(2), stats.TotalRecords)
	assert.Equal(t, uint64(2), stats.LastSeqNum)
	assert.False(t, stats.Degraded)
}

// TestJournal_SeqNumSurvivesReopen verifies appends continue at the
// right sequence number after a restart.
func TestJournal_SeqNumSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.SessionID = "restart"
	cfg.Path = dir

	j, err := NewBadgerJournal(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, j.Append(ctx, &PlanRecord{PlanID: "p", Goal: "explore", CreatedAt: time.Now()}))
	}
	require.NoError(t, j.Close())

	j2, err := NewBadgerJournal(cfg)
	require.NoError(t, err)
	defer j2.Close()

	assert.Equal(t, uint64(3), j2.Stats().LastSeqNum)

	require.NoError(t, j2.Append(ctx, &PlanRecord{PlanID: "p", Goal: "explore", CreatedAt: time.Now()}))

	records, err := j2.Replay(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

// TestJournal_SessionIsolation verifies two sessions sharing one
// database never see each other's records.
func TestJournal_SessionIsolation(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cfgA := DefaultConfig()
	cfgA.SessionID = "session-a"
	cfgA.Path = dir

	a, err := NewBadgerJournal(cfgA)
	require.NoError(t, err)
	require.NoError(t, a.Append(ctx, &PlanRecord{PlanID: "a1", Goal: "survive", CreatedAt: time.Now()}))
	require.NoError(t, a.Close())

	cfgB := cfgA
	cfgB.SessionID = "session-b"

	b, err := NewBadgerJournal(cfgB)
	require.NoError(t, err)
	defer b.Close()

	records, err := b.Replay(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, b.Stats().LastSeqNum)
}

// TestJournal_CorruptedEntryFailsReplay verifies a CRC mismatch stops
// replay in strict mode and is skipped in lenient mode.
func TestJournal_CorruptedEntryFailsReplay(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	// Plant an entry whose checksum cannot match its payload.
	err := j.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set(j.recordKey(1), []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02})
	})
	require.NoError(t, err)

	_, err = j.Replay(ctx)
	require.ErrorIs(t, err, ErrJournalCorrupted)

	// Lenient mode skips it and counts it.
	j.config.SkipCorrupted = true
	records, err := j.Replay(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(2), j.Stats().CorruptedCount) // both replays saw it
}

// TestJournal_SequenceGapFailsReplay verifies missing entries are
// detected.
func TestJournal_SequenceGapFailsReplay(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	first, err := j.encodeEntry(&PlanRecord{PlanID: "p1", Goal: "explore", CreatedAt: time.Now()})
	require.NoError(t, err)
	third, err := j.encodeEntry(&PlanRecord{PlanID: "p3", Goal: "explore", CreatedAt: time.Now()})
	require.NoError(t, err)

	err = j.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		if err := txn.Set(j.recordKey(1), first); err != nil {
			return err
		}
		return txn.Set(j.recordKey(3), third)
	})
	require.NoError(t, err)

	_, err = j.Replay(ctx)
	require.ErrorIs(t, err, ErrSequenceGap)

	// Lenient mode replays past the gap.
	j.config.SkipCorrupted = true
	records, err := j.Replay(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

// TestJournal_DegradedMode verifies an unopenable database degrades to
// the in-memory ring when allowed, and fails otherwise.
func TestJournal_DegradedMode(t *testing.T) {
	// A regular file where the database directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := DefaultConfig()
	cfg.SessionID = "degraded"
	cfg.Path = blocker

	_, err := NewBadgerJournal(cfg)
	require.Error(t, err, "strict mode must fail")

	cfg.AllowDegraded = true
	j, err := NewBadgerJournal(cfg)
	require.NoError(t, err)
	defer j.Close()

	assert.True(t, j.IsDegraded())
	assert.False(t, j.IsAvailable())

	ctx := context.Background()
	require.NoError(t, j.Append(ctx, &PlanRecord{PlanID: "p1", Goal: "survive", CreatedAt: time.Now()}))
	require.NoError(t, j.Sync())

	records, err := j.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, KindPlan, records[0].Kind())
	assert.True(t, j.Stats().Degraded)
}

// TestJournal_RingEviction verifies the degraded ring keeps only the
// most recent records.
func TestJournal_RingEviction(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := DefaultConfig()
	cfg.SessionID = "ring"
	cfg.Path = blocker
	cfg.AllowDegraded = true
	cfg.RingSize = 3

	j, err := NewBadgerJournal(cfg)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	ids := []string{"p1", "p2", "p3", "p4", "p5"}
	for _, id := range ids {
		require.NoError(t, j.Append(ctx, &PlanRecord{PlanID: id, Goal: "explore", CreatedAt: time.Now()}))
	}

	records, err := j.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	var got []string
	for _, rec := range records {
		got = append(got, rec.(*PlanRecord).PlanID)
	}
	assert.Equal(t, []string{"p3", "p4", "p5"}, got)

	assert.Equal(t, int64(5), j.Stats().TotalRecords)
}

// TestJournal_SizeLimit verifies appends are refused once the limit is
// reached.
func TestJournal_SizeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionID = "limited"
	cfg.InMemory = true
	cfg.SyncWrites = false
	cfg.MaxJournalBytes = 1

	j, err := NewBadgerJournal(cfg)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	rec := &PlanRecord{PlanID: "p", Goal: "explore", CreatedAt: time.Now()}

	require.NoError(t, j.Append(ctx, rec))
	require.ErrorIs(t, j.Append(ctx, rec), ErrJournalFull)
}

// TestJournal_ClosedRejectsOperations verifies the closed sentinel.
func TestJournal_ClosedRejectsOperations(t *testing.T) {
	j := newTestJournal(t)
	require.NoError(t, j.Close())

	ctx := context.Background()
	assert.ErrorIs(t, j.Append(ctx, &PlanRecord{PlanID: "p", CreatedAt: time.Now()}), ErrJournalClosed)

	_, err := j.Replay(ctx)
	assert.ErrorIs(t, err, ErrJournalClosed)
	assert.ErrorIs(t, j.Sync(), ErrJournalClosed)

	// Close is idempotent.
	assert.NoError(t, j.Close())
}

// TestJournal_AppendArgumentChecks verifies nil guards.
func TestJournal_AppendArgumentChecks(t *testing.T) {
	j := newTestJournal(t)

	assert.ErrorIs(t, j.Append(context.Background(), nil), ErrNilRecord)
	assert.ErrorIs(t, j.Append(nil, &PlanRecord{PlanID: "p"}), ErrNilContext) //nolint:staticcheck // nil context is the case under test
}

// TestJournal_ConcurrentAppends verifies appends from many goroutines
// produce a gap-free sequence.
func TestJournal_ConcurrentAppends(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 10; k++ {
				err := j.Append(ctx, &PlanRecord{PlanID: "p", Goal: "explore", CreatedAt: time.Now()})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	records, err := j.Replay(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 80)
	assert.Equal(t, uint64(80), j.Stats().LastSeqNum)
}
