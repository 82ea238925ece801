package database

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/marketchain/marketchain/foundation/blockchain/signature"
)

// AccountID represents an account id that is used to sign transactions and is
// associated with transactions on the blockchain. An account owns no state of
// its own; it is only a reference inside transactions and markets.
type AccountID string

// ToAccountID parses an address into an account. Only the 0x prefixed
// checksummed form produced by PublicKeyToAccountID is accepted, since the
// ledger keys stakes by the exact string.
func ToAccountID(hex string) (AccountID, error) {
	if !common.IsHexAddress(hex) || common.HexToAddress(hex).Hex() != hex {
		return "", fmt.Errorf("%w: %q", ErrBadAccount, hex)
	}

	return AccountID(hex), nil
}

// PublicKeyToAccountID converts the public key to an account value.
func PublicKeyToAccountID(pk signature.PublicKey) AccountID {
	return AccountID(pk.Address())
}
