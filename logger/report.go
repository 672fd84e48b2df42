package logger

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// Pipeline counters aggregated across symbols and surfaced by the periodic
// runtime report.
var (
	errorCount     int64
	warnCount      int64
	framesRead     int64
	divergences    int64
	resyncs        int64
	journalFlushes int64
	s3Writes       int64
)

func recordWarn(component string) {
	_ = component
	atomic.AddInt64(&warnCount, 1)
}

func recordError(component string) {
	_ = component
	atomic.AddInt64(&errorCount, 1)
}

// IncrementFrameRead counts one frame delivered by the transport.
func IncrementFrameRead() {
	atomic.AddInt64(&framesRead, 1)
}

// IncrementDivergence counts one checksum mismatch.
func IncrementDivergence() {
	atomic.AddInt64(&divergences, 1)
}

// IncrementResync counts one resubscribe cycle, proactive or not.
func IncrementResync() {
	atomic.AddInt64(&resyncs, 1)
}

// IncrementJournalFlush counts one journal window written locally.
func IncrementJournalFlush() {
	atomic.AddInt64(&journalFlushes, 1)
}

// IncrementS3Write counts one journal blob uploaded to S3.
func IncrementS3Write() {
	atomic.AddInt64(&s3Writes, 1)
}

// StartReport begins periodic logging of pipeline statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(log)
			}
		}
	}()
}

func logReport(log *Log) {
	log.WithComponent("report").WithFields(Fields{
		"errors":          atomic.LoadInt64(&errorCount),
		"warns":           atomic.LoadInt64(&warnCount),
		"frames_read":     atomic.LoadInt64(&framesRead),
		"divergences":     atomic.LoadInt64(&divergences),
		"resyncs":         atomic.LoadInt64(&resyncs),
		"journal_flushes": atomic.LoadInt64(&journalFlushes),
		"s3_writes":       atomic.LoadInt64(&s3Writes),
		"goroutines":      runtime.NumGoroutine(),
	}).Info("runtime report")
}
