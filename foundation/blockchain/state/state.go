// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"sync"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/genesis"
	"github.com/marketchain/marketchain/foundation/blockchain/ledger"
	"github.com/marketchain/marketchain/foundation/blockchain/mempool"
	"github.com/marketchain/marketchain/foundation/blockchain/mempool/selector"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// BlockAppended describes a block once it is part of the chain and applied
// to the ledger.
type BlockAppended struct {
	Block    database.Block
	Rejected ledger.TxErrors // Transactions in the block the ledger skipped.
}

// BlockHandler defines a function that is called each time a block is
// appended. It runs while the state is locked, so it must not block or call
// back into the state.
type BlockHandler func(BlockAppended)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// =============================================================================

// Config represents the configuration required to start the blockchain.
type Config struct {
	Genesis        genesis.Genesis
	SelectStrategy string
	EvHandler      EventHandler
	OnBlock        BlockHandler
}

// State manages the chain, the pending transactions and the market ledger
// derived from the chain.
type State struct {
	mu        sync.RWMutex
	evHandler EventHandler
	onBlock   BlockHandler

	genesis  genesis.Genesis
	mempool  *mempool.Mempool
	chain    database.Chain
	ledger   *ledger.Ledger
	mined    map[string]struct{}
	rejected ledger.TxErrors

	Worker Worker
}

// New constructs a new blockchain starting from the genesis block.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	onBlock := cfg.OnBlock
	if onBlock == nil {
		onBlock = func(BlockAppended) {}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = selector.StrategyFIFO
	}

	// Construct a mempool with the specified select strategy.
	mempool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	state := State{
		evHandler: ev,
		onBlock:   onBlock,
		genesis:   cfg.Genesis,
		mempool:   mempool,
		chain:     database.NewChain(),
		ledger:    ledger.New(),
		mined:     make(map[string]struct{}),
		Worker:    noWorker{},
	}

	// The Worker is a no-op here. A call to worker.Run will assign itself
	// and start background mining.

	return &state, nil
}

// Shutdown cleanly brings the blockchain down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	return nil
}

// =============================================================================

// noWorker is used until a worker registers itself. Mining only happens
// through direct calls to MineNewBlock.
type noWorker struct{}

func (noWorker) Shutdown()                         {}
func (noWorker) SignalStartMining()                {}
func (noWorker) SignalCancelMining() (done func()) { return func() {} }
