package worker

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/state"
	"golang.org/x/sync/errgroup"
)

// miningOperations runs a mining pass each time one is signaled.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			return
		}
	}
}

// runMiningOperation mines one block from the pending transactions. A cancel
// request stops the proof of work, and the pass then holds until the
// requester calls done.
func (w *Worker) runMiningOperation() {
	if w.state.QueryMempoolLength() == 0 {
		return
	}

	// Keep mining while transactions remain after this block.
	defer func() {
		if n := w.state.QueryMempoolLength(); n > 0 && !w.isShutdown() {
			w.SignalStartMining()
		}
	}()

	// A cancel left over from a block appended between passes is stale.
	select {
	case <-w.cancelMining:
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wait chan struct{}
	var g errgroup.Group

	g.Go(func() error {
		defer cancel()

		select {
		case wait = <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: cancel requested")
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: shutdown")
		case <-ctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return w.mine(ctx)
	})

	if err := g.Wait(); err != nil {
		w.evHandler("worker: runMiningOperation: ERROR: %s", err)
	}

	if wait != nil {
		<-wait
	}
}

// mine mines a block and reports the markets it touched and the
// transactions dropped while it was built.
func (w *Worker) mine(ctx context.Context) error {
	before := len(w.state.Rejected())
	start := time.Now()

	block, err := w.state.MineNewBlock(ctx)
	switch {
	case err == nil:
		w.evHandler("worker: mine: blk[%d]: markets[%s]: trans[%d]: took[%v]", block.Header.Number, strings.Join(markets(block), ","), len(block.Values()), time.Since(start))
	case errors.Is(err, state.ErrNoTransactions):
		w.evHandler("worker: mine: nothing left to mine")
	case ctx.Err() != nil:
		w.evHandler("worker: mine: cancelled after %v", time.Since(start))
		return nil
	default:
		return err
	}

	for _, txErr := range w.state.Rejected()[before:] {
		w.evHandler("worker: mine: dropped: %s", txErr)
	}

	return nil
}

// markets returns the sorted ids of the markets the block acts on.
func markets(block database.Block) []string {
	var ids []string
	for _, tx := range block.Values() {
		if id := tx.MarketID(); !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	return ids
}
