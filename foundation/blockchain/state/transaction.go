package state

import (
	"errors"
	"fmt"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/errs"
)

// Set of error variables for submitting transactions.
var (
	ErrDuplicateTx      = errors.New("transaction already submitted")
	ErrDisplacesPending = errors.New("transaction would invalidate a pending transaction")
)

// SubmitTx accepts a signed transaction for inclusion in a future block. The
// transaction is checked against the ledger as it will look once every
// pending transaction has been mined, so out of policy transactions are
// rejected here with a ValidationError.
func (s *State) SubmitTx(tx database.SignedTx) error {
	s.evHandler("state: SubmitTx: started: tx[%s]", tx)
	defer s.evHandler("state: SubmitTx: completed")

	if err := s.validateTransaction(tx); err != nil {
		s.evHandler("state: SubmitTx: REJECTED: tx[%s]: %s", tx, err)
		return err
	}

	n := s.mempool.Upsert(tx)
	s.evHandler("state: SubmitTx: mempool: len[%d]", n)

	s.Worker.SignalStartMining()

	return nil
}

// =============================================================================

// validateTransaction takes the signed transaction and validates it has
// a proper signature and can be applied on top of the pending transactions.
// The pending transactions are replayed in the order the select strategy
// will mine them, with tx in its place, so what passes here also passes
// when the block is built.
func (s *State) validateTransaction(tx database.SignedTx) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	s.mu.RLock()
	_, mined := s.mined[tx.ID()]
	projected := s.ledger.Clone()
	s.mu.RUnlock()

	if mined || s.mempool.Contains(tx) {
		return errs.NewValidation(fmt.Errorf("%w: %s", ErrDuplicateTx, tx.ID()))
	}

	// Pending transactions that already fail are not held against tx.
	baseline := projected.Clone()
	failing := make(map[string]bool)
	for _, pending := range s.mempool.PickBest(-1) {
		if err := baseline.Apply(pending); err != nil {
			s.evHandler("state: validateTransaction: pending tx[%s] no longer applies: %s", pending, err)
			failing[pending.ID()] = true
		}
	}

	id := tx.ID()
	for _, next := range s.mempool.PickWith(tx) {
		err := projected.Apply(next)
		switch {
		case next.ID() == id:
			if err != nil {
				return err
			}
		case err != nil && !failing[next.ID()]:
			return errs.NewValidation(fmt.Errorf("%w: tx[%s]: %s", ErrDisplacesPending, next, err))
		}
	}

	return nil
}
