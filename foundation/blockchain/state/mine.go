package state

import (
	"context"
	"errors"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/ledger"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are no transactions that can be applied.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. The work is done without holding the
// state lock, so a block appended in the meantime makes this one stale and it
// is rejected.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	s.mu.RLock()
	tip := s.chain.LatestBlock()
	projected := s.ledger.Clone()
	s.mu.RUnlock()

	s.evHandler("state: MineNewBlock: MINING: select transactions")

	// Drop transactions that no longer apply so a block only carries
	// transactions that change the ledger. Dropped transactions are
	// recorded as rejected against the block being mined.
	var trans []database.SignedTx
	var dropped ledger.TxErrors
	for _, tx := range s.mempool.PickBest(int(s.genesis.TransPerBlock)) {
		if err := projected.Apply(tx); err != nil {
			s.evHandler("state: MineNewBlock: MINING: drop tx[%s]: %s", tx, err)
			dropped = append(dropped, ledger.TxError{Block: tip.Header.Number + 1, Tx: tx, Err: err})
			s.mempool.Delete(tx)
			continue
		}
		trans = append(trans, tx)
	}

	if len(dropped) > 0 {
		s.mu.Lock()
		s.rejected = append(s.rejected, dropped...)
		s.mu.Unlock()
	}

	if len(trans) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW")

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		Difficulty: s.genesis.Difficulty,
		PrevBlock:  tip,
		Trans:      trans,
		EvHandler:  s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	if err := s.updateLocalState(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// AppendBlock takes a block mined elsewhere, validates it against the tip of
// the chain and if that passes, applies it.
func (s *State) AppendBlock(block database.Block) error {
	s.evHandler("state: AppendBlock: started : block[%s]", block.Hash)
	defer s.evHandler("state: AppendBlock: completed")

	// If a mining operation is running it needs to stop immediately. The G
	// executing it will not return until done is called. That allows this
	// function to complete its state changes before a new mining operation
	// takes place.
	done := s.Worker.SignalCancelMining()
	defer func() {
		s.evHandler("state: AppendBlock: signal mining to terminate")
		done()
	}()

	return s.updateLocalState(block)
}

// =============================================================================

// updateLocalState appends the block to the chain and applies its
// transactions to the ledger.
func (s *State) updateLocalState(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: updateLocalState: append block[%d]", block.Header.Number)

	chain, err := s.chain.Append(block, s.genesis.Difficulty, s.evHandler)
	if err != nil {
		return err
	}
	s.chain = chain

	s.evHandler("state: updateLocalState: update ledger and remove from mempool")

	txErrs := s.ledger.ApplyBlock(block)
	for _, txErr := range txErrs {
		s.evHandler("state: updateLocalState: WARNING: %s", txErr)
		s.rejected = append(s.rejected, txErr)
	}

	for _, tx := range block.Values() {
		s.mined[tx.ID()] = struct{}{}
		s.mempool.Delete(tx)
	}

	s.evHandler("state: updateLocalState: block appended: blk[%d]: hash[%s]", block.Header.Number, block.Hash)
	s.onBlock(BlockAppended{Block: block, Rejected: txErrs})

	return nil
}
