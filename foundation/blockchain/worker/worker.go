// Package worker mines blocks in the background as transactions arrive.
package worker

import (
	"sync"

	"github.com/marketchain/marketchain/foundation/blockchain/state"
)

// Worker owns the goroutine that mines pending transactions into blocks.
type Worker struct {
	state     *state.State
	evHandler state.EventHandler

	wg           sync.WaitGroup
	shut         chan struct{}
	startMining  chan struct{}
	cancelMining chan chan struct{}
}

// Run registers a worker with the state and starts mining. Anything already
// pending is mined right away.
func Run(st *state.State, evHandler state.EventHandler) *Worker {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	w := Worker{
		state:        st,
		evHandler:    evHandler,
		shut:         make(chan struct{}),
		startMining:  make(chan struct{}, 1),
		cancelMining: make(chan chan struct{}, 1),
	}

	st.Worker = &w

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.miningOperations()
	}()

	if st.QueryMempoolLength() > 0 {
		w.SignalStartMining()
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown cancels any mining in progress and waits for the worker to stop.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	done := w.SignalCancelMining()
	done()

	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining asks for a mining pass. Signals collapse, so a pass
// already queued covers this one.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- struct{}{}:
		w.evHandler("worker: SignalStartMining: queued")
	default:
	}
}

// SignalCancelMining stops the block being mined. The mining goroutine then
// waits until done is called, so the caller can change the chain before the
// next pass starts.
func (w *Worker) SignalCancelMining() (done func()) {
	wait := make(chan struct{})

	select {
	case w.cancelMining <- wait:
		w.evHandler("worker: SignalCancelMining: queued")
	default:
	}

	return func() { close(wait) }
}

// =============================================================================

// isShutdown reports whether Shutdown has been called.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
