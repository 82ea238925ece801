package signature

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// keyLength is the size in bytes of both halves of a key pair.
const keyLength = 32

// ErrInvalidKey is returned when key material has the wrong length.
var ErrInvalidKey = errors.New("invalid key length")

// PublicKey is the public half of a key pair. It is safe to share and is
// carried inside every transaction.
type PublicKey []byte

// String returns the hex encoding of the key.
func (pk PublicKey) String() string {
	return hexutil.Encode(pk)
}

// MarshalText implements the encoding.TextMarshaler interface so keys are
// written as hex in JSON.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return hexutil.Bytes(pk).MarshalText()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (pk *PublicKey) UnmarshalText(input []byte) error {
	var b hexutil.Bytes
	if err := b.UnmarshalText(input); err != nil {
		return err
	}
	*pk = PublicKey(b)
	return nil
}

// Address derives the 20 byte account address for the public key.
func (pk PublicKey) Address() string {
	return common.BytesToAddress(crypto.Keccak256(pk)[12:]).Hex()
}

// PrivateKey is a simulated key pair. The public key is derived from D and
// never changes for the life of the value.
type PrivateKey struct {
	D         []byte
	PublicKey PublicKey
}

// GenerateKey creates a new random key pair.
func GenerateKey() (PrivateKey, error) {
	d := make([]byte, keyLength)
	if _, err := rand.Read(d); err != nil {
		return PrivateKey{}, fmt.Errorf("reading entropy: %w", err)
	}

	return ToPrivateKey(d)
}

// ToPrivateKey constructs the key pair for the specified private bytes.
func ToPrivateKey(d []byte) (PrivateKey, error) {
	if len(d) != keyLength {
		return PrivateKey{}, ErrInvalidKey
	}

	pk := PrivateKey{
		D:         bytes.Clone(d),
		PublicKey: crypto.Keccak256(d),
	}

	return pk, nil
}

// HexToKey parses a hex encoded private key with or without the 0x prefix.
func HexToKey(hexKey string) (PrivateKey, error) {
	d, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return PrivateKey{}, fmt.Errorf("decoding key: %w", err)
	}

	return ToPrivateKey(d)
}

// Hex returns the hex encoding of the private bytes without the 0x prefix.
func (pk PrivateKey) Hex() string {
	return hex.EncodeToString(pk.D)
}

// Address derives the account address for the key pair.
func (pk PrivateKey) Address() string {
	return pk.PublicKey.Address()
}

// =============================================================================

// SaveKey writes the private key to the specified file in hex.
func SaveKey(file string, pk PrivateKey) error {
	return os.WriteFile(file, []byte(pk.Hex()), 0600)
}

// LoadKey reads a private key written by SaveKey.
func LoadKey(file string) (PrivateKey, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return PrivateKey{}, err
	}

	return HexToKey(strings.TrimSpace(string(content)))
}
