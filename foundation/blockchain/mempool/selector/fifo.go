package selector

import "github.com/marketchain/marketchain/foundation/blockchain/database"

// fifoSelect returns the transactions in the order they were submitted.
var fifoSelect = func(transactions []database.SignedTx, howMany int) []database.SignedTx {
	return limit(transactions, howMany)
}
