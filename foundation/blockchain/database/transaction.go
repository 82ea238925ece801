package database

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/marketchain/marketchain/foundation/blockchain/errs"
	"github.com/marketchain/marketchain/foundation/blockchain/signature"
	"github.com/marketchain/marketchain/foundation/validate"
)

// Set of error variables for building transactions.
var (
	ErrInvalidOption  = errors.New("option must be A or B")
	ErrMissingPayload = errors.New("transaction has no payload")
	ErrKeyMismatch    = errors.New("key does not belong to the sender")
	ErrBadEncoding    = errors.New("payload text is not valid utf-8")
	ErrBadAccount     = errors.New("sender is not a checksummed account")
)

// =============================================================================

// Kind identifies which state change a transaction carries.
type Kind string

// Set of transaction kinds the chain understands.
const (
	KindCreateMarket  Kind = "create_market"
	KindPlaceBet      Kind = "place_bet"
	KindResolveMarket Kind = "resolve_market"
)

// Option is one of the two outcomes of a market.
type Option string

// Set of market options.
const (
	OptionA Option = "A"
	OptionB Option = "B"
)

// ToOption parses the label into an option.
func ToOption(s string) (Option, error) {
	o := Option(s)
	if !o.IsValid() {
		return "", errs.NewConfig("option", fmt.Errorf("%q: %w", s, ErrInvalidOption))
	}

	return o, nil
}

// IsValid reports whether the option is A or B.
func (o Option) IsValid() bool {
	return o == OptionA || o == OptionB
}

// Other returns the opposing option.
func (o Option) Other() Option {
	if o == OptionA {
		return OptionB
	}
	return OptionA
}

// =============================================================================

// Payload is the kind specific part of a transaction. Only the types in this
// package implement it, so a type switch over CreateMarket, PlaceBet and
// ResolveMarket covers every case.
type Payload interface {
	Kind() Kind
	Market() string
	text() []string
}

// checkEncoding rejects payload text JSON can't encode byte for byte. The
// encoder replaces invalid utf-8 with U+FFFD, so two different payloads
// would share a signature and a hash.
func checkEncoding(payload Payload) error {
	for _, s := range payload.text() {
		if !utf8.ValidString(s) {
			return fmt.Errorf("%w: %q", ErrBadEncoding, s)
		}
	}
	return nil
}

// CreateMarket opens a new market. The sender becomes the creator.
type CreateMarket struct {
	MarketID string `json:"market_id" validate:"required,max=64"`
	Question string `json:"question" validate:"required,max=512"`
	OptionA  string `json:"option_a" validate:"required,max=64"`
	OptionB  string `json:"option_b" validate:"required,max=64,nefield=OptionA"`
	EndTime  uint64 `json:"end_time" validate:"required"`
}

// Kind implements the Payload interface.
func (CreateMarket) Kind() Kind { return KindCreateMarket }

// Market implements the Payload interface.
func (cm CreateMarket) Market() string { return cm.MarketID }

func (cm CreateMarket) text() []string {
	return []string{cm.MarketID, cm.Question, cm.OptionA, cm.OptionB}
}

// PlaceBet stakes an amount on one option. The sender is the bettor.
type PlaceBet struct {
	MarketID string `json:"market_id" validate:"required,max=64"`
	Option   Option `json:"option"`
	Amount   uint64 `json:"amount"`
}

// Kind implements the Payload interface.
func (PlaceBet) Kind() Kind { return KindPlaceBet }

// Market implements the Payload interface.
func (pb PlaceBet) Market() string { return pb.MarketID }

func (pb PlaceBet) text() []string {
	return []string{pb.MarketID, string(pb.Option)}
}

// ResolveMarket closes a market with the winning option. Only the creator
// of the market may resolve it.
type ResolveMarket struct {
	MarketID      string `json:"market_id" validate:"required,max=64"`
	WinningOption Option `json:"winning_option"`
}

// Kind implements the Payload interface.
func (ResolveMarket) Kind() Kind { return KindResolveMarket }

// Market implements the Payload interface.
func (rm ResolveMarket) Market() string { return rm.MarketID }

func (rm ResolveMarket) text() []string {
	return []string{rm.MarketID, string(rm.WinningOption)}
}

// =============================================================================

// Tx is one intended state change made by an account.
type Tx struct {
	Kind      Kind                `json:"kind"`
	FromID    AccountID           `json:"from"`
	PublicKey signature.PublicKey `json:"public_key"`
	TimeStamp uint64              `json:"timestamp"`
	Payload   Payload             `json:"payload"`
}

// NewTx constructs a new transaction for the owner of the key.
func NewTx(privateKey signature.PrivateKey, timeStamp uint64, payload Payload) (Tx, error) {
	if payload == nil {
		return Tx{}, errs.NewConfig("payload", ErrMissingPayload)
	}

	if err := checkEncoding(payload); err != nil {
		return Tx{}, errs.NewConfig("payload", err)
	}

	if err := validate.Check(payload); err != nil {
		return Tx{}, errs.NewConfig("payload", err)
	}

	switch p := payload.(type) {
	case PlaceBet:
		if _, err := ToOption(string(p.Option)); err != nil {
			return Tx{}, err
		}
	case ResolveMarket:
		if _, err := ToOption(string(p.WinningOption)); err != nil {
			return Tx{}, err
		}
	}

	tx := Tx{
		Kind:      payload.Kind(),
		FromID:    PublicKeyToAccountID(privateKey.PublicKey),
		PublicKey: privateKey.PublicKey,
		TimeStamp: timeStamp,
		Payload:   payload,
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey signature.PrivateKey) (SignedTx, error) {
	if PublicKeyToAccountID(privateKey.PublicKey) != tx.FromID {
		return SignedTx{}, ErrKeyMismatch
	}

	if tx.Payload == nil {
		return SignedTx{}, ErrMissingPayload
	}

	if err := checkEncoding(tx.Payload); err != nil {
		return SignedTx{}, err
	}

	sig, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:        tx,
		Signature: sig,
	}

	return signedTx, nil
}

// UnmarshalJSON decodes the payload into the concrete type named by kind.
func (tx *Tx) UnmarshalJSON(data []byte) error {
	var aux struct {
		Kind      Kind                `json:"kind"`
		FromID    AccountID           `json:"from"`
		PublicKey signature.PublicKey `json:"public_key"`
		TimeStamp uint64              `json:"timestamp"`
		Payload   json.RawMessage     `json:"payload"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var payload Payload
	switch aux.Kind {
	case KindCreateMarket:
		var p CreateMarket
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		payload = p
	case KindPlaceBet:
		var p PlaceBet
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		payload = p
	case KindResolveMarket:
		var p ResolveMarket
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		payload = p
	default:
		return fmt.Errorf("unknown transaction kind %q", aux.Kind)
	}

	*tx = Tx{
		Kind:      aux.Kind,
		FromID:    aux.FromID,
		PublicKey: aux.PublicKey,
		TimeStamp: aux.TimeStamp,
		Payload:   payload,
	}

	return nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients
// provide transactions for inclusion into the blockchain, and it is the
// form recorded inside a block.
type SignedTx struct {
	Tx
	Signature string `json:"sig"`
}

// NewCreateMarketTx builds and signs a transaction opening a new market.
func NewCreateMarketTx(privateKey signature.PrivateKey, timeStamp uint64, marketID string, question string, optionA string, optionB string, endTime uint64) (SignedTx, error) {
	return newSignedTx(privateKey, timeStamp, CreateMarket{
		MarketID: marketID,
		Question: question,
		OptionA:  optionA,
		OptionB:  optionB,
		EndTime:  endTime,
	})
}

// NewPlaceBetTx builds and signs a transaction staking amount on option.
func NewPlaceBetTx(privateKey signature.PrivateKey, timeStamp uint64, marketID string, option Option, amount uint64) (SignedTx, error) {
	return newSignedTx(privateKey, timeStamp, PlaceBet{
		MarketID: marketID,
		Option:   option,
		Amount:   amount,
	})
}

// NewResolveMarketTx builds and signs a transaction resolving a market.
func NewResolveMarketTx(privateKey signature.PrivateKey, timeStamp uint64, marketID string, winningOption Option) (SignedTx, error) {
	return newSignedTx(privateKey, timeStamp, ResolveMarket{
		MarketID:      marketID,
		WinningOption: winningOption,
	})
}

func newSignedTx(privateKey signature.PrivateKey, timeStamp uint64, payload Payload) (SignedTx, error) {
	tx, err := NewTx(privateKey, timeStamp, payload)
	if err != nil {
		return SignedTx{}, err
	}

	return tx.Sign(privateKey)
}

// Validate verifies the transaction has a proper signature that conforms to
// our standards and is associated with the data claimed to be signed. The
// signature is recomputed from the declared public key, which must also be
// the key behind the sender address.
func (tx SignedTx) Validate() error {
	if tx.Payload == nil {
		return errs.NewValidation(ErrMissingPayload)
	}

	if tx.Kind != tx.Payload.Kind() {
		return errs.NewValidationf("kind %q does not match payload %q", tx.Kind, tx.Payload.Kind())
	}

	if err := checkEncoding(tx.Payload); err != nil {
		return errs.NewValidation(err)
	}

	if _, err := ToAccountID(string(tx.FromID)); err != nil {
		return errs.NewValidation(err)
	}

	if PublicKeyToAccountID(tx.PublicKey) != tx.FromID {
		return errs.NewValidation(ErrKeyMismatch)
	}

	if err := signature.VerifySignature(tx.Tx, tx.PublicKey, tx.Signature); err != nil {
		return errs.NewValidation(err)
	}

	return nil
}

// Verify reports whether the transaction passes Validate.
func (tx SignedTx) Verify() bool {
	return tx.Validate() == nil
}

// ID returns the unique hash of the signed transaction.
func (tx SignedTx) ID() string {
	return signature.Hash(tx)
}

// Hash implements the merkle Hashable interface for providing a hash
// of a block transaction.
func (tx SignedTx) Hash() ([]byte, error) {
	return hex.DecodeString(tx.ID()[2:])
}

// MarketID returns the id of the market the transaction acts on.
func (tx Tx) MarketID() string {
	if tx.Payload == nil {
		return ""
	}
	return tx.Payload.Market()
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s:%s:%d", tx.FromID, tx.Kind, tx.TimeStamp)
}

// UnmarshalJSON decodes both the transaction and its signature. Without it
// the promoted Tx.UnmarshalJSON would drop the signature.
func (tx *SignedTx) UnmarshalJSON(data []byte) error {
	var aux struct {
		Signature string `json:"sig"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if err := tx.Tx.UnmarshalJSON(data); err != nil {
		return err
	}
	tx.Signature = aux.Signature

	return nil
}
