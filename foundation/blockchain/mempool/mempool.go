// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sort"
	"sync"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/mempool/selector"
)

// entry is a pending transaction with its position in submission order.
type entry struct {
	seq uint64
	tx  database.SignedTx
}

// Mempool represents a cache of pending transactions keyed by transaction id.
type Mempool struct {
	pool     map[string]entry
	seq      uint64
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() *Mempool {
	mp, _ := NewWithStrategy(selector.StrategyFIFO)
	return mp
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]entry),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a transaction to the mempool. Adding the same transaction
// again keeps its original position.
func (mp *Mempool) Upsert(tx database.SignedTx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	id := tx.ID()
	if _, exists := mp.pool[id]; !exists {
		mp.seq++
		mp.pool[id] = entry{seq: mp.seq, tx: tx}
	}

	return len(mp.pool)
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.SignedTx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.ID())
}

// Contains reports whether the transaction is pending.
func (mp *Mempool) Contains(tx database.SignedTx) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[tx.ID()]
	return exists
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]entry)
}

// Copy returns the pending transactions in submission order.
func (mp *Mempool) Copy() []database.SignedTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.ordered()
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []database.SignedTx {
	mp.mu.RLock()
	trans := mp.ordered()
	mp.mu.RUnlock()

	return mp.selectFn(trans, howMany)
}

// PickWith returns every pending transaction plus tx in the order the select
// strategy will mine them, as if tx had been submitted now.
func (mp *Mempool) PickWith(tx database.SignedTx) []database.SignedTx {
	mp.mu.RLock()
	trans := mp.ordered()
	_, exists := mp.pool[tx.ID()]
	mp.mu.RUnlock()

	if !exists {
		trans = append(trans, tx)
	}

	return mp.selectFn(trans, -1)
}

// =============================================================================

// ordered returns the transactions sorted by submission order. The caller
// must hold the lock.
func (mp *Mempool) ordered() []database.SignedTx {
	entries := make([]entry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	trans := make([]database.SignedTx, len(entries))
	for i, e := range entries {
		trans[i] = e.tx
	}

	return trans
}
