// Package signature provides helper functions for handling the blockchain
// hashing and the simulated signature needs.
package signature

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// ErrInvalidSignature is returned when a signature does not match the data
// and the public key it claims to come from.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrKeyPairMismatch is returned when a private key carries a public key
// that was not derived from it.
var ErrKeyPairMismatch = errors.New("public key does not belong to the private key")

// =============================================================================

// Hash returns a unique string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}

// Sign uses the specified private key to sign the data.
//
// This is a simulation. The signature is derived from the public half of the
// key, so anyone holding the public key can produce it. What it does provide
// is tamper evidence: changing a single byte of the value or the key
// invalidates the signature.
func Sign(value any, privateKey PrivateKey) (string, error) {
	if len(privateKey.D) != keyLength {
		return "", ErrInvalidKey
	}

	if !bytes.Equal(privateKey.PublicKey, crypto.Keccak256(privateKey.D)) {
		return "", ErrKeyPairMismatch
	}

	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	sig := crypto.Keccak256(privateKey.PublicKey, data)

	return hexutil.Encode(sig), nil
}

// VerifySignature recomputes the signature from the declared public key and
// compares it against the one provided. It fails closed.
func VerifySignature(value any, publicKey PublicKey, sig string) error {
	if len(publicKey) != keyLength {
		return ErrInvalidKey
	}

	data, err := stamp(value)
	if err != nil {
		return err
	}

	exp := hexutil.Encode(crypto.Keccak256(publicKey, data))
	if sig != exp {
		return ErrInvalidSignature
	}

	return nil
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the marketchain stamp embedded into the final hash.
func stamp(value any) ([]byte, error) {

	// Marshal the data.
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	// Hash the data into a 32 byte array. This will provide
	// a data length consistency with all data.
	txHash := crypto.Keccak256(v)

	// Signatures we produce are always unique to this chain.
	stamp := []byte("\x19Marketchain Signed Message:\n32")

	return crypto.Keccak256(stamp, txHash), nil
}
