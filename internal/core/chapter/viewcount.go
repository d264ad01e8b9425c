// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	stdctx "context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/chapterhub/internal/platform/constants"
)

// # View Counting

// ViewCounter records one read of a chapter.
type ViewCounter interface {
	Increment(context stdctx.Context, chapterID string) error
}

// DirectViewCounter writes every view straight to the relational store.
type DirectViewCounter struct {
	chapters ChapterRepository
}

// NewDirectViewCounter builds a write-through counter.
func NewDirectViewCounter(chapters ChapterRepository) *DirectViewCounter {
	return &DirectViewCounter{chapters: chapters}
}

// Increment adds one view.
func (counter *DirectViewCounter) Increment(context stdctx.Context, chapterID string) error {
	return counter.chapters.IncrementViewCount(context, chapterID, 1)
}

// # Buffered Counting

// CounterClient is the subset of the Redis API the buffered counter uses.
type CounterClient interface {
	IncrBy(context stdctx.Context, key string, value int64) *redis.IntCmd
	GetDel(context stdctx.Context, key string) *redis.StringCmd
	Scan(context stdctx.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisViewCounter accumulates views in Redis and periodically folds them
// into the relational store, turning one UPDATE per read into one per flush.
type RedisViewCounter struct {
	client   CounterClient
	chapters ChapterRepository
	logger   *slog.Logger
}

// NewRedisViewCounter builds a buffered counter.
func NewRedisViewCounter(client CounterClient, chapters ChapterRepository, logger *slog.Logger) *RedisViewCounter {
	return &RedisViewCounter{client: client, chapters: chapters, logger: logger}
}

// Increment adds one view to the chapter's buffer.
func (counter *RedisViewCounter) Increment(context stdctx.Context, chapterID string) error {
	if err := counter.client.IncrBy(context, constants.RedisPrefixChapterViews+chapterID, 1).Err(); err != nil {
		return fmt.Errorf("redis: failed to buffer view: %w", err)
	}
	return nil
}

/*
Flush moves every buffered delta into the relational store.

Each key is taken atomically with GETDEL. If the store rejects a delta, it is
pushed back into Redis so the views are retried on the next flush.

Returns:
  - int: Number of chapters flushed
  - error: Scan failure; per-key failures are logged
*/
func (counter *RedisViewCounter) Flush(context stdctx.Context) (int, error) {
	var cursor uint64
	flushed := 0

	for {
		keys, next, err := counter.client.Scan(context, cursor, constants.RedisPrefixChapterViews+"*", 100).Result()
		if err != nil {
			return flushed, fmt.Errorf("redis: failed to scan view buffers: %w", err)
		}

		for _, key := range keys {
			if counter.flushKey(context, key) {
				flushed++
			}
		}

		if next == 0 {
			return flushed, nil
		}
		cursor = next
	}
}

func (counter *RedisViewCounter) flushKey(context stdctx.Context, key string) bool {
	raw, err := counter.client.GetDel(context, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			counter.logger.Warn("view_buffer_read_failed", slog.String("key", key), slog.Any("error", err))
		}
		return false
	}

	delta, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || delta <= 0 {
		counter.logger.Warn("view_buffer_corrupt", slog.String("key", key), slog.String("value", raw))
		return false
	}

	chapterID := strings.TrimPrefix(key, constants.RedisPrefixChapterViews)
	if err := counter.chapters.IncrementViewCount(context, chapterID, delta); err != nil {
		counter.logger.Warn("view_flush_failed",
			slog.String("chapter_id", chapterID),
			slog.Int64("delta", delta),
			slog.Any("error", err),
		)
		if restoreErr := counter.client.IncrBy(context, key, delta).Err(); restoreErr != nil {
			counter.logger.Error("view_buffer_restore_failed", slog.String("chapter_id", chapterID), slog.Any("error", restoreErr))
		}
		return false
	}

	return true
}

// Run flushes on every tick until context is cancelled, then flushes once
// more on a fresh deadline so views buffered before shutdown are kept.
func (counter *RedisViewCounter) Run(context stdctx.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			counter.flushAndLog(context)
		case <-context.Done():
			final, cancel := stdctx.WithTimeout(stdctx.WithoutCancel(context), constants.ShutdownTimeout)
			defer cancel()
			counter.flushAndLog(final)
			return
		}
	}
}

func (counter *RedisViewCounter) flushAndLog(context stdctx.Context) {
	flushed, err := counter.Flush(context)
	if err != nil {
		counter.logger.Error("view_flush_aborted", slog.Any("error", err))
		return
	}
	if flushed > 0 {
		counter.logger.Debug("view_flush_completed", slog.Int("chapters", flushed))
	}
}
