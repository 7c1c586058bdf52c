package storage

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// flushInterval is how long the background writer sleeps after each flush
// attempt, whether or not it got the lock. It mirrors the 250ms period of
// the original driver's writer thread.
const flushInterval = 250 * time.Millisecond

// BackgroundWriter periodically flushes dirty relations without ever
// waiting for the lock itself: each tick is a non-blocking TryRLock
// attempt, skipped entirely if an assertion holds the lock. A flush holds
// the shared lock, so an assertion arriving meanwhile waits for it to end.
type BackgroundWriter struct {
	engine *Engine
	log    hclog.Logger
	done   atomic.Bool
	wg     sync.WaitGroup
}

// NewBackgroundWriter constructs a writer for engine. Call Start to begin
// flushing and Stop to join it before a final synchronous write_back.
func NewBackgroundWriter(engine *Engine, log hclog.Logger) *BackgroundWriter {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &BackgroundWriter{engine: engine, log: log.Named("background-writer")}
}

// Start launches the writer goroutine.
func (w *BackgroundWriter) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *BackgroundWriter) run() {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("background writer panicked, poisoning engine", "panic", r)
			w.engine.Poison()
		}
	}()
	for !w.done.Load() {
		if w.engine.mu.TryRLock() {
			if err := w.engine.WriteBack(); err != nil {
				w.log.Warn("flush failed", "error", err)
			}
			w.engine.mu.RUnlock()
		}
		time.Sleep(flushInterval)
	}
}

// Stop signals the writer to exit and blocks until it has, then performs
// one final synchronous write_back under the exclusive lock so no
// in-flight mutation is lost.
func (w *BackgroundWriter) Stop() error {
	w.done.Store(true)
	w.wg.Wait()
	if err := w.engine.Lock(); err != nil {
		return err
	}
	defer w.engine.Unlock()
	return w.engine.WriteBack()
}
