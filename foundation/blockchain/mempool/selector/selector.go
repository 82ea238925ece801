// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO      = "fifo"
	StrategyTimeStamp = "timestamp"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO:      fifoSelect,
	StrategyTimeStamp: timeStampSelect,
}

// Func defines a function that takes the pending transactions in submission
// order and selects howMany of them in an order based on the functions
// strategy. Receiving -1 for howMany must return all the transactions in the
// strategies ordering. Implementations must not modify the input slice.
type Func func(transactions []database.SignedTx, howMany int) []database.SignedTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// limit trims the list to howMany transactions.
func limit(transactions []database.SignedTx, howMany int) []database.SignedTx {
	if howMany < 0 || howMany > len(transactions) {
		howMany = len(transactions)
	}

	final := make([]database.SignedTx, howMany)
	copy(final, transactions)

	return final
}
