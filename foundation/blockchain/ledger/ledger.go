// Package ledger maintains the market state derived from the chain. Every
// change is made by applying a signed transaction; callers only ever get
// copies of the markets back.
package ledger

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/errs"
)

// Ledger manages the set of markets keyed by market id.
type Ledger struct {
	mu      sync.RWMutex
	markets map[string]Market
}

// New constructs an empty ledger, the state at genesis.
func New() *Ledger {
	return &Ledger{
		markets: make(map[string]Market),
	}
}

// Replay rebuilds the ledger from the genesis block by applying every
// transaction in block order. Rejected transactions are skipped and reported
// back; they never stop the replay.
func Replay(chain database.Chain) (*Ledger, TxErrors) {
	ldg := New()

	var txErrs TxErrors
	for _, block := range chain.Blocks() {
		txErrs = append(txErrs, ldg.ApplyBlock(block)...)
	}

	return ldg, txErrs
}

// Clone makes an independent deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ldg := New()
	for id, market := range l.markets {
		ldg.markets[id] = market.clone()
	}

	return ldg
}

// Copy makes a deep copy of the current markets keyed by id.
func (l *Ledger) Copy() map[string]Market {
	l.mu.RLock()
	defer l.mu.RUnlock()

	markets := make(map[string]Market, len(l.markets))
	for id, market := range l.markets {
		markets[id] = market.clone()
	}

	return markets
}

// Market returns a copy of the market for the specified id.
func (l *Ledger) Market(marketID string) (Market, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	market, exists := l.markets[marketID]
	if !exists {
		return Market{}, errs.NewValidation(fmt.Errorf("%w: %s", ErrMarketNotFound, marketID))
	}

	return market.clone(), nil
}

// Markets returns a copy of every market sorted by id.
func (l *Ledger) Markets() []Market {
	l.mu.RLock()
	defer l.mu.RUnlock()

	markets := make([]Market, 0, len(l.markets))
	for _, market := range l.markets {
		markets = append(markets, market.clone())
	}

	sort.Slice(markets, func(i, j int) bool {
		return markets[i].ID < markets[j].ID
	})

	return markets
}

// Len returns the number of markets.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.markets)
}

// =============================================================================

// ApplyBlock applies the transactions in the block in order and returns the
// ones that were rejected.
func (l *Ledger) ApplyBlock(block database.Block) TxErrors {
	var txErrs TxErrors
	for _, tx := range block.Values() {
		if err := l.Apply(tx); err != nil {
			txErrs = append(txErrs, TxError{Block: block.Header.Number, Tx: tx, Err: err})
		}
	}

	return txErrs
}

// Apply performs the business logic for a single transaction. A rejected
// transaction leaves the ledger unchanged and returns a ValidationError.
func (l *Ledger) Apply(tx database.SignedTx) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch payload := tx.Payload.(type) {
	case database.CreateMarket:
		return l.createMarket(tx, payload)

	case database.PlaceBet:
		return l.placeBet(tx, payload)

	case database.ResolveMarket:
		return l.resolveMarket(tx, payload)

	default:
		return errs.NewValidation(fmt.Errorf("%w: %T", ErrUnknownPayload, payload))
	}
}

func (l *Ledger) createMarket(tx database.SignedTx, p database.CreateMarket) error {
	if p.MarketID == "" {
		return errs.NewValidationf("market id is required")
	}

	if _, exists := l.markets[p.MarketID]; exists {
		return errs.NewValidation(fmt.Errorf("%w: %s", ErrMarketExists, p.MarketID))
	}

	l.markets[p.MarketID] = Market{
		ID:       p.MarketID,
		Question: p.Question,
		OptionA:  p.OptionA,
		OptionB:  p.OptionB,
		Creator:  tx.FromID,
		EndTime:  p.EndTime,
		Status:   StatusOpen,
		Stakes:   make(map[database.AccountID]Stake),
	}

	return nil
}

func (l *Ledger) placeBet(tx database.SignedTx, p database.PlaceBet) error {
	market, exists := l.markets[p.MarketID]
	if !exists {
		return errs.NewValidation(fmt.Errorf("%w: %s", ErrMarketNotFound, p.MarketID))
	}

	if market.Status != StatusOpen {
		return errs.NewValidation(fmt.Errorf("%w: %s is %s", ErrMarketClosed, p.MarketID, market.Status))
	}

	if tx.TimeStamp >= market.EndTime {
		return errs.NewValidation(fmt.Errorf("%w: bet at %d, market ended at %d", ErrBettingClosed, tx.TimeStamp, market.EndTime))
	}

	if !p.Option.IsValid() {
		return errs.NewValidation(fmt.Errorf("%w: %q", database.ErrInvalidOption, p.Option))
	}

	if p.Amount == 0 {
		return errs.NewValidation(ErrInvalidAmount)
	}

	if market.Total() > math.MaxUint64-p.Amount {
		return errs.NewValidation(ErrAmountOverflow)
	}

	market.Stakes[tx.FromID] = market.Stakes[tx.FromID].add(p.Option, p.Amount)
	l.markets[p.MarketID] = market

	return nil
}

func (l *Ledger) resolveMarket(tx database.SignedTx, p database.ResolveMarket) error {
	market, exists := l.markets[p.MarketID]
	if !exists {
		return errs.NewValidation(fmt.Errorf("%w: %s", ErrMarketNotFound, p.MarketID))
	}

	if market.Status == StatusResolved {
		return errs.NewValidation(fmt.Errorf("%w: %s", ErrAlreadyResolved, p.MarketID))
	}

	if tx.FromID != market.Creator {
		return errs.NewValidation(fmt.Errorf("%w: creator %s, sender %s", ErrNotCreator, market.Creator, tx.FromID))
	}

	if !p.WinningOption.IsValid() {
		return errs.NewValidation(fmt.Errorf("%w: %q", database.ErrInvalidOption, p.WinningOption))
	}

	market.Status = StatusResolved
	market.Winner = p.WinningOption
	l.markets[p.MarketID] = market

	return nil
}
