package state

import (
	"context"
	"slices"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/genesis"
	"github.com/marketchain/marketchain/foundation/blockchain/ledger"
	"github.com/marketchain/marketchain/foundation/blockchain/payout"
)

// Genesis returns the chain parameters.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// Mempool returns the pending transactions in submission order.
func (s *State) Mempool() []database.SignedTx {
	return s.mempool.Copy()
}

// Chain returns the current chain. The value is never changed by the state,
// new blocks produce a new chain.
func (s *State) Chain() database.Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain
}

// LatestBlock returns the tip of the chain.
func (s *State) LatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.LatestBlock()
}

// ValidateChain walks the full chain against the active difficulty.
func (s *State) ValidateChain() error {
	return s.Chain().Validate(s.genesis.Difficulty)
}

// Ledger returns a copy of the current market ledger.
func (s *State) Ledger() *ledger.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledger.Clone()
}

// Rejected returns the transactions in the chain that the ledger skipped and
// the pending transactions dropped while a block was being mined.
func (s *State) Rejected() ledger.TxErrors {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.rejected)
}

// Market returns a copy of the specified market.
func (s *State) Market(marketID string) (ledger.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledger.Market(marketID)
}

// CalculatePayouts returns the payouts for the specified resolved market.
func (s *State) CalculatePayouts(marketID string) (payout.Payouts, error) {
	market, err := s.Market(marketID)
	if err != nil {
		return nil, err
	}

	return payout.Calculate(market)
}

// CalculateAllPayouts returns the payouts for every resolved market keyed by
// market id.
func (s *State) CalculateAllPayouts(ctx context.Context) (map[string]payout.Payouts, error) {
	var resolved []ledger.Market
	for _, market := range s.Ledger().Markets() {
		if market.IsResolved() {
			resolved = append(resolved, market)
		}
	}

	return payout.CalculateAll(ctx, resolved)
}
