package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
)

// Set of error variables for transaction application. They are returned
// wrapped inside an errs.ValidationError.
var (
	ErrMarketNotFound  = errors.New("market not found")
	ErrMarketExists    = errors.New("market already exists")
	ErrMarketClosed    = errors.New("market is not open")
	ErrBettingClosed   = errors.New("betting has closed")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrAmountOverflow  = errors.New("amount overflows the stake")
	ErrAlreadyResolved = errors.New("market already resolved")
	ErrNotCreator      = errors.New("only the market creator can resolve")
	ErrUnknownPayload  = errors.New("unknown transaction payload")
)

// TxError represents an error on a transaction that was skipped.
type TxError struct {
	Block uint64
	Tx    database.SignedTx
	Err   error
}

// Error implements the error interface.
func (txe TxError) Error() string {
	return fmt.Sprintf("blk[%d]: tx[%s]: %s", txe.Block, txe.Tx, txe.Err)
}

// Unwrap provides access to the underlying error.
func (txe TxError) Unwrap() error {
	return txe.Err
}

// TxErrors represents the set of transactions rejected during a replay, in
// chain order.
type TxErrors []TxError

// Error implements the error interface.
func (txes TxErrors) Error() string {
	var sb strings.Builder
	for _, txe := range txes {
		sb.WriteString(fmt.Sprintf("{ID: %s, ERROR: %s}", txe.Tx.ID(), txe.Err))
	}

	return sb.String()
}

// Err returns nil when no transaction was rejected so the result can be
// checked like any other error.
func (txes TxErrors) Err() error {
	if len(txes) == 0 {
		return nil
	}
	return txes
}
