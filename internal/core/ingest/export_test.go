// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"io/fs"
	"time"
)

// SetReaperFS replaces the filesystem calls and clock of reaper. Nil arguments keep the current hook.
func SetReaperFS(reaper *Reaper, remove func(string) error, stat func(string) (fs.FileInfo, error), sleep func(time.Duration)) {
	if remove != nil {
		reaper.remove = remove
	}
	if stat != nil {
		reaper.stat = stat
	}
	if sleep != nil {
		reaper.sleep = sleep
	}
}

// SetPipelineSleep replaces the pause between batch items.
func SetPipelineSleep(pipeline *Pipeline, sleep func(time.Duration)) {
	pipeline.sleep = sleep
}

// SetNormalizerClock fixes the timestamp used in asset names.
func SetNormalizerClock(normalizer *Normalizer, now func() time.Time) {
	normalizer.now = now
}

// HoldGate takes one decoder slot and returns its release.
func HoldGate(gate *DecoderGate) func() {
	gate.slots.TryAcquire(1)
	return func() { gate.slots.Release(1) }
}
