// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package journal persists the planner's decision history: every issued
// plan and every reward observation, appended in order with integrity
// checksums. Operators replay a session's journal to see what was
// planned, when, and why it was replaced.
//
// The journal is strictly an audit surface. Planning never reads it and
// journal failures never affect planning output.
package journal

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianPlan/pkg/validation"
	"github.com/AleutianAI/AleutianPlan/storage/badger"
)

var tracer = otel.Tracer("aleutianplan.journal")

// Sentinel errors for the journal package.
var (
	// ErrJournalClosed is returned by operations on a closed journal.
	ErrJournalClosed = errors.New("journal is closed")

	// ErrJournalCorrupted is returned when an entry fails its CRC check.
	ErrJournalCorrupted = errors.New("journal entry corrupted (CRC mismatch)")

	// ErrJournalFull is returned when the journal exceeds MaxJournalBytes.
	ErrJournalFull = errors.New("journal size limit exceeded")

	// ErrSequenceGap is returned when replay detects missing entries.
	ErrSequenceGap = errors.New("journal sequence number gap detected")

	// ErrNilRecord is returned when appending a nil record.
	ErrNilRecord = errors.New("record must not be nil")

	// ErrNilContext is returned when a nil context is passed.
	ErrNilContext = errors.New("context must not be nil")
)

// Kind discriminates journal record types.
type Kind int

const (
	// KindPlan marks a record of an issued plan.
	KindPlan Kind = iota

	// KindReward marks a record of an observed reward.
	KindReward
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindPlan:
		return "plan"
	case KindReward:
		return "reward"
	default:
		return "unknown"
	}
}

// Trigger says why a plan was issued.
type Trigger string

const (
	// TriggerInitial marks a plan issued for a caller-provided goal.
	TriggerInitial Trigger = "initial"

	// TriggerReplan marks a plan issued in response to a negative reward.
	TriggerReplan Trigger = "replan"
)

// Record is one journal entry.
type Record interface {
	// Kind returns the record kind for logging and filtering.
	Kind() Kind

	// At returns when the record was created.
	At() time.Time
}

// PlanRecord captures one issued plan.
type PlanRecord struct {
	// PlanID identifies the plan across records.
	PlanID string

	// Goal is the goal text the plan was built for.
	Goal string

	// Plan is the ordered action sequence handed to the caller.
	Plan []string

	// Trigger says whether this was an initial plan or a replan.
	Trigger Trigger

	// CreatedAt is when the plan was issued.
	CreatedAt time.Time
}

// Kind implements Record.
func (r *PlanRecord) Kind() Kind { return KindPlan }

// At implements Record.
func (r *PlanRecord) At() time.Time { return r.CreatedAt }

// RewardRecord captures one reward observation after an executed action.
type RewardRecord struct {
	// PlanID identifies the plan the executed action came from.
	PlanID string

	// Action is the executed action the reward refers to.
	Action string

	// Reward is the scalar feedback from the environment.
	Reward float64

	// Replanned reports whether this observation triggered a replan.
	Replanned bool

	// CreatedAt is when the reward was reported.
	CreatedAt time.Time
}

// Kind implements Record.
func (r *RewardRecord) Kind() Kind { return KindReward }

// At implements Record.
func (r *RewardRecord) At() time.Time { return r.CreatedAt }

// registerRecordTypes registers the concrete record types for gob.
var recordTypesRegistered sync.Once

func registerRecordTypes() {
	recordTypesRegistered.Do(func() {
		gob.Register(&PlanRecord{})
		gob.Register(&RewardRecord{})
	})
}

// Config configures journal behavior.
type Config struct {
	// Path is the directory for BadgerDB files. Required for
	// persistent mode.
	Path string

	// SessionID scopes this journal to one planning session. Required;
	// used as the key prefix for isolation.
	SessionID string

	// SyncWrites makes every append durable before returning.
	// Default: true.
	SyncWrites bool

	// MaxJournalBytes refuses appends once exceeded. Zero disables the
	// limit. Default: 1GB.
	MaxJournalBytes int64

	// AllowDegraded permits startup even when BadgerDB cannot open.
	// A degraded journal keeps the most recent records in a bounded
	// in-memory ring instead; durability is lost but planning and
	// replay keep working. Default: false (strict).
	AllowDegraded bool

	// RingSize is the degraded-mode ring capacity. Default: 256.
	RingSize int

	// SkipCorrupted continues replay past corrupted entries and
	// sequence gaps instead of failing. Default: false.
	SkipCorrupted bool

	// InMemory uses an in-memory BadgerDB (for tests).
	InMemory bool

	// Logger for journal operations. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SyncWrites:      true,
		MaxJournalBytes: 1 << 30,
		RingSize:        256,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateSessionID(c.SessionID); err != nil {
		return fmt.Errorf("session_id: %w", err)
	}
	if !c.InMemory && c.Path == "" {
		return errors.New("path is required for persistent journal")
	}
	if c.MaxJournalBytes < 0 {
		return errors.New("max_journal_bytes must be non-negative")
	}
	if c.RingSize < 0 {
		return errors.New("ring_size must be non-negative")
	}
	return nil
}

// Journal is an append-only, replayable record log.
//
// Thread Safety: implementations must be safe for concurrent use.
type Journal interface {
	// Append writes one record with a CRC checksum.
	Append(ctx context.Context, rec Record) error

	// Replay returns all records for this session in append order.
	Replay(ctx context.Context) ([]Record, error)

	// IsAvailable reports whether the journal accepts durable writes.
	IsAvailable() bool

	// IsDegraded reports whether the journal runs on the in-memory ring.
	IsDegraded() bool

	// Sync flushes pending writes to disk.
	Sync() error

	// Close syncs and releases resources.
	Close() error

	// Stats returns journal statistics.
	Stats() Stats
}

// Stats contains journal counters.
type Stats struct {
	// TotalRecords is the number of records appended this process.
	TotalRecords int64

	// TotalBytes is the approximate size of appended data.
	TotalBytes int64

	// LastSeqNum is the most recent sequence number.
	LastSeqNum uint64

	// CorruptedCount is the number of corrupted entries seen on replay.
	CorruptedCount int64

	// Degraded reports in-memory ring mode.
	Degraded bool
}

// BadgerJournal implements Journal on BadgerDB.
//
// Key format: "plan:{session_id}:{seq_num:016d}"
// Value format: [4-byte CRC32][gob-encoded record]
//
// Thread Safety: safe for concurrent use.
type BadgerJournal struct {
	db     *badger.DB
	config Config
	logger *slog.Logger

	seqNum         atomic.Uint64
	totalBytes     atomic.Int64
	corruptedCount atomic.Int64
	degraded       atomic.Bool
	closed         atomic.Bool

	// Degraded-mode ring of the most recent records.
	ringMu sync.Mutex
	ring   []Record
}

// NewBadgerJournal opens a journal for the configured session.
//
// When BadgerDB cannot open and AllowDegraded is set, the journal comes
// up in ring mode instead of failing; otherwise the error is returned.
func NewBadgerJournal(config Config) (*BadgerJournal, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.RingSize == 0 {
		config.RingSize = 256
	}

	j := &BadgerJournal{
		config: config,
		logger: config.Logger.With(
			slog.String("component", "journal"),
			slog.String("session_id", config.SessionID)),
	}

	dbConfig := badger.Config{
		Path:              config.Path,
		InMemory:          config.InMemory,
		SyncWrites:        config.SyncWrites,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
		GCDiscardRatio:    0.5,
		Logger:            config.Logger,
	}

	db, err := badger.Open(dbConfig)
	if err != nil {
		if config.AllowDegraded {
			j.logger.Warn("BadgerDB unavailable, journal running on in-memory ring",
				slog.String("path", config.Path),
				slog.String("error", err.Error()))
			j.degraded.Store(true)
			return j, nil
		}
		return nil, fmt.Errorf("open badger: %w", err)
	}

	j.db = db

	if err := j.initSeqNum(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sequence number: %w", err)
	}

	j.logger.Info("journal opened",
		slog.String("path", config.Path),
		slog.Bool("sync_writes", config.SyncWrites),
		slog.Uint64("last_seq_num", j.seqNum.Load()))

	return j, nil
}

// initSeqNum scans for the highest existing sequence number so appends
// continue where the previous process stopped.
func (j *BadgerJournal) initSeqNum() error {
	prefix := j.keyPrefix()
	var maxSeq uint64

	err := j.db.WithReadTxn(context.Background(), func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible key with our prefix.
		seekKey := append([]byte(prefix), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seekKey)

		if it.ValidForPrefix([]byte(prefix)) {
			key := it.Item().Key()
			seqStr := string(key[len(prefix):])
			var seq uint64
			if _, err := fmt.Sscanf(seqStr, "%016d", &seq); err == nil {
				maxSeq = seq
			}
		}
		return nil
	})

	if err != nil {
		return err
	}

	j.seqNum.Store(maxSeq)
	return nil
}

// keyPrefix returns the key prefix for this session's records.
func (j *BadgerJournal) keyPrefix() string {
	return fmt.Sprintf("plan:%s:", j.config.SessionID)
}

// recordKey generates the key for one sequence number.
func (j *BadgerJournal) recordKey(seqNum uint64) []byte {
	return []byte(fmt.Sprintf("%s%016d", j.keyPrefix(), seqNum))
}

// encodeEntry encodes a record with a CRC32 checksum prefix.
func (j *BadgerJournal) encodeEntry(rec Record) ([]byte, error) {
	registerRecordTypes()

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(&rec); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}

	crc := crc32.ChecksumIEEE(buf.Bytes())

	result := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(result[:4], crc)
	copy(result[4:], buf.Bytes())

	return result, nil
}

// decodeEntry verifies the CRC32 checksum and decodes the record.
func (j *BadgerJournal) decodeEntry(data []byte) (Record, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: entry too short", ErrJournalCorrupted)
	}

	storedCRC := binary.BigEndian.Uint32(data[:4])
	gobData := data[4:]
	computedCRC := crc32.ChecksumIEEE(gobData)

	if storedCRC != computedCRC {
		return nil, fmt.Errorf("%w: stored=%08x computed=%08x", ErrJournalCorrupted, storedCRC, computedCRC)
	}

	registerRecordTypes()
	var rec Record
	dec := gob.NewDecoder(bytes.NewReader(gobData))
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}

	return rec, nil
}

// Append writes one record with a CRC checksum.
func (j *BadgerJournal) Append(ctx context.Context, rec Record) error {
	if ctx == nil {
		return ErrNilContext
	}
	if rec == nil {
		return ErrNilRecord
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if j.closed.Load() {
		return ErrJournalClosed
	}

	ctx, span := tracer.Start(ctx, "Journal.Append",
		trace.WithAttributes(
			attribute.String("session_id", j.config.SessionID),
			attribute.String("record_kind", rec.Kind().String()),
		),
	)
	defer span.End()

	if j.degraded.Load() {
		j.ringAppend(rec)
		j.seqNum.Add(1)
		span.SetAttributes(attribute.Bool("degraded", true))
		return nil
	}

	if j.config.MaxJournalBytes > 0 && j.totalBytes.Load() >= j.config.MaxJournalBytes {
		span.SetStatus(codes.Error, "journal full")
		return ErrJournalFull
	}

	data, err := j.encodeEntry(rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("encode entry: %w", err)
	}

	seqNum := j.seqNum.Add(1)

	key := j.recordKey(seqNum)
	err = j.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set(key, data)
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return fmt.Errorf("write entry: %w", err)
	}

	j.totalBytes.Add(int64(len(data)))

	span.SetAttributes(
		attribute.Int64("seq_num", int64(seqNum)),
		attribute.Int("entry_bytes", len(data)),
	)

	j.logger.Debug("record appended",
		slog.Uint64("seq_num", seqNum),
		slog.String("kind", rec.Kind().String()),
		slog.Int("bytes", len(data)))

	return nil
}

// ringAppend stores a record in the degraded-mode ring, evicting the
// oldest entry once the ring is full.
func (j *BadgerJournal) ringAppend(rec Record) {
	j.ringMu.Lock()
	defer j.ringMu.Unlock()

	if len(j.ring) == j.config.RingSize {
		copy(j.ring, j.ring[1:])
		j.ring[len(j.ring)-1] = rec
		return
	}
	j.ring = append(j.ring, rec)
}

// Replay returns all records for this session in append order.
//
// In degraded mode it returns the ring contents; persisted entries are
// CRC-validated and sequence-checked, failing on the first gap or
// corruption unless SkipCorrupted is set.
func (j *BadgerJournal) Replay(ctx context.Context) ([]Record, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if j.closed.Load() {
		return nil, ErrJournalClosed
	}

	ctx, span := tracer.Start(ctx, "Journal.Replay",
		trace.WithAttributes(attribute.String("session_id", j.config.SessionID)))
	defer span.End()

	if j.degraded.Load() {
		j.ringMu.Lock()
		records := make([]Record, len(j.ring))
		copy(records, j.ring)
		j.ringMu.Unlock()

		span.SetAttributes(attribute.Bool("degraded", true))
		return records, nil
	}

	var records []Record
	var lastSeq uint64
	corrupted := 0

	prefix := []byte(j.keyPrefix())
	err := j.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			key := item.Key()

			seqStr := string(key[len(prefix):])
			var seqNum uint64
			if _, err := fmt.Sscanf(seqStr, "%016d", &seqNum); err != nil {
				continue // Skip malformed keys
			}

			if lastSeq > 0 && seqNum != lastSeq+1 {
				if !j.config.SkipCorrupted {
					return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, lastSeq+1, seqNum)
				}
				j.logger.Warn("sequence gap detected",
					slog.Uint64("expected", lastSeq+1),
					slog.Uint64("got", seqNum))
			}
			lastSeq = seqNum

			err := item.Value(func(val []byte) error {
				rec, err := j.decodeEntry(val)
				if err != nil {
					if errors.Is(err, ErrJournalCorrupted) {
						corrupted++
						j.corruptedCount.Add(1)
						if j.config.SkipCorrupted {
							j.logger.Warn("skipping corrupted entry",
								slog.Uint64("seq_num", seqNum),
								slog.String("error", err.Error()))
							return nil
						}
					}
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replay failed")
		return nil, fmt.Errorf("replay: %w", err)
	}

	span.SetAttributes(
		attribute.Int("record_count", len(records)),
		attribute.Int("corrupted_count", corrupted),
	)

	j.logger.Info("replay completed",
		slog.Int("record_count", len(records)),
		slog.Int("corrupted", corrupted))

	return records, nil
}

// IsAvailable returns false once the journal is degraded or closed.
func (j *BadgerJournal) IsAvailable() bool {
	return !j.degraded.Load() && !j.closed.Load()
}

// IsDegraded reports in-memory ring mode.
func (j *BadgerJournal) IsDegraded() bool {
	return j.degraded.Load()
}

// Sync flushes pending writes.
func (j *BadgerJournal) Sync() error {
	if j.closed.Load() {
		return ErrJournalClosed
	}
	if j.degraded.Load() || j.db == nil {
		return nil
	}
	return j.db.Sync()
}

// Close syncs and releases resources. Safe to call more than once.
func (j *BadgerJournal) Close() error {
	if j.closed.Swap(true) {
		return nil
	}

	j.logger.Info("closing journal")

	if j.db != nil {
		if err := j.db.Sync(); err != nil {
			j.logger.Warn("sync before close failed", slog.String("error", err.Error()))
		}
		return j.db.Close()
	}

	return nil
}

// Stats returns journal statistics.
func (j *BadgerJournal) Stats() Stats {
	return Stats{
		TotalRecords:   int64(j.seqNum.Load()),
		TotalBytes:     j.totalBytes.Load(),
		LastSeqNum:     j.seqNum.Load(),
		CorruptedCount: j.corruptedCount.Load(),
		Degraded:       j.degraded.Load(),
	}
}

var _ Journal = (*BadgerJournal)(nil)
