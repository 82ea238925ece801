package selector

import (
	"sort"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
)

// timeStampSelect returns the transactions ordered by the timestamp the sender
// put on them. Transactions with the same timestamp keep submission order.
var timeStampSelect = func(transactions []database.SignedTx, howMany int) []database.SignedTx {
	sorted := make([]database.SignedTx, len(transactions))
	copy(sorted, transactions)

	sort.Stable(byTimeStamp(sorted))

	return limit(sorted, howMany)
}

// =============================================================================

// byTimeStamp provides sorting support by the transaction timestamp value.
type byTimeStamp []database.SignedTx

// Len returns the number of transactions in the list.
func (bt byTimeStamp) Len() int {
	return len(bt)
}

// Less helps to sort the list by timestamp in ascending order.
func (bt byTimeStamp) Less(i, j int) bool {
	return bt[i].TimeStamp < bt[j].TimeStamp
}

// Swap moves transactions in the order of the timestamp value.
func (bt byTimeStamp) Swap(i, j int) {
	bt[i], bt[j] = bt[j], bt[i]
}
