package database_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/errs"
	"github.com/marketchain/marketchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	alicePK = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	bobPK   = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

func key(t *testing.T, hexKey string) signature.PrivateKey {
	pk, err := signature.HexToKey(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}
	return pk
}

// rawCreateTx signs a create market transaction without the checks the
// constructors apply, the way a hand built transaction would arrive.
func rawCreateTx(t *testing.T, pk signature.PrivateKey, question string) database.SignedTx {
	tx := database.Tx{
		Kind:      database.KindCreateMarket,
		FromID:    database.PublicKeyToAccountID(pk.PublicKey),
		PublicKey: pk.PublicKey,
		TimeStamp: 100,
		Payload: database.CreateMarket{
			MarketID: "game1",
			Question: question,
			OptionA:  "Yes",
			OptionB:  "No",
			EndTime:  160,
		},
	}

	sig, err := signature.Sign(tx, pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %v", err)
	}

	return database.SignedTx{Tx: tx, Signature: sig}
}

// =============================================================================

func Test_SignedTx(t *testing.T) {
	alice := key(t, alicePK)

	type table struct {
		name string
		tx   func() (database.SignedTx, error)
		kind database.Kind
	}

	tt := []table{
		{
			name: "create",
			tx: func() (database.SignedTx, error) {
				return database.NewCreateMarketTx(alice, 100, "game1", "Will Team A win?", "Yes", "No", 160)
			},
			kind: database.KindCreateMarket,
		},
		{
			name: "bet",
			tx: func() (database.SignedTx, error) {
				return database.NewPlaceBetTx(alice, 101, "game1", database.OptionA, 100)
			},
			kind: database.KindPlaceBet,
		},
		{
			name: "resolve",
			tx: func() (database.SignedTx, error) {
				return database.NewResolveMarketTx(alice, 102, "game1", database.OptionB)
			},
			kind: database.KindResolveMarket,
		},
	}

	t.Log("Given the need to sign and verify transactions.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				tx, err := tst.tx()
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to build the transaction: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to build the transaction.", success, testID)

				if tx.Kind != tst.kind {
					t.Fatalf("\t%s\tTest %d:\tShould get back kind %s, got %s.", failed, testID, tst.kind, tx.Kind)
				}

				if tx.FromID != database.PublicKeyToAccountID(alice.PublicKey) {
					t.Fatalf("\t%s\tTest %d:\tShould have the signer as the sender.", failed, testID)
				}

				if err := tx.Validate(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to verify the transaction: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to verify the transaction.", success, testID)

				data, err := json.Marshal(tx)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to marshal the transaction: %v", failed, testID, err)
				}

				var decoded database.SignedTx
				if err := json.Unmarshal(data, &decoded); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the transaction: %v", failed, testID, err)
				}

				if !decoded.Verify() {
					t.Fatalf("\t%s\tTest %d:\tShould be able to verify a decoded transaction.", failed, testID)
				}

				if decoded.ID() != tx.ID() {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, decoded.ID())
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tx.ID())
					t.Fatalf("\t%s\tTest %d:\tShould get back the same id after decoding.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould survive a JSON round trip.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Tamper(t *testing.T) {
	alice := key(t, alicePK)
	bob := key(t, bobPK)

	tx, err := database.NewPlaceBetTx(alice, 101, "game1", database.OptionA, 100)
	if err != nil {
		t.Fatalf("Should be able to build the transaction: %v", err)
	}

	type table struct {
		name   string
		mutate func(tx database.SignedTx) database.SignedTx
	}

	tt := []table{
		{
			name: "amount",
			mutate: func(tx database.SignedTx) database.SignedTx {
				p := tx.Payload.(database.PlaceBet)
				p.Amount = 1000
				tx.Payload = p
				return tx
			},
		},
		{
			name: "option",
			mutate: func(tx database.SignedTx) database.SignedTx {
				p := tx.Payload.(database.PlaceBet)
				p.Option = database.OptionB
				tx.Payload = p
				return tx
			},
		},
		{
			name: "timestamp",
			mutate: func(tx database.SignedTx) database.SignedTx {
				tx.TimeStamp++
				return tx
			},
		},
		{
			name: "sender",
			mutate: func(tx database.SignedTx) database.SignedTx {
				tx.FromID = database.PublicKeyToAccountID(bob.PublicKey)
				return tx
			},
		},
		{
			name: "publickey",
			mutate: func(tx database.SignedTx) database.SignedTx {
				tx.PublicKey = bob.PublicKey
				tx.FromID = database.PublicKeyToAccountID(bob.PublicKey)
				return tx
			},
		},
		{
			name: "kind",
			mutate: func(tx database.SignedTx) database.SignedTx {
				tx.Kind = database.KindCreateMarket
				return tx
			},
		},
		{
			name: "signature",
			mutate: func(tx database.SignedTx) database.SignedTx {
				tx.Signature = signature.ZeroHash
				return tx
			},
		},
	}

	t.Log("Given the need to detect changes to a signed transaction.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				bad := tst.mutate(tx)

				err := bad.Validate()
				if err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould not be able to verify a changed transaction.", failed, testID)
				}

				if !errs.IsValidation(err) {
					t.Fatalf("\t%s\tTest %d:\tShould get back a validation error: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould not be able to verify a changed transaction.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}

	if !tx.Verify() {
		t.Fatalf("Should not have changed the original transaction.")
	}
}

func Test_BadTx(t *testing.T) {
	alice := key(t, alicePK)

	if _, err := database.NewPlaceBetTx(alice, 101, "game1", "C", 100); !errs.IsConfig(err) || !errors.Is(err, database.ErrInvalidOption) {
		t.Fatalf("Should get a config error for a bad option: %v", err)
	}

	if _, err := database.NewResolveMarketTx(alice, 101, "game1", ""); !errs.IsConfig(err) {
		t.Fatalf("Should get a config error for a missing winning option: %v", err)
	}

	if _, err := database.NewCreateMarketTx(alice, 100, "", "question", "Yes", "No", 160); !errs.IsConfig(err) {
		t.Fatalf("Should get a config error for a missing market id: %v", err)
	}

	if _, err := database.NewCreateMarketTx(alice, 100, "game1", "question", "Yes", "Yes", 160); !errs.IsConfig(err) {
		t.Fatalf("Should get a config error for identical labels: %v", err)
	}

	if _, err := database.NewTx(alice, 100, nil); !errors.Is(err, database.ErrMissingPayload) {
		t.Fatalf("Should get an error for a missing payload: %v", err)
	}

	tx, err := database.NewTx(alice, 100, database.PlaceBet{MarketID: "game1", Option: database.OptionA, Amount: 1})
	if err != nil {
		t.Fatalf("Should be able to build the transaction: %v", err)
	}

	if _, err := tx.Sign(key(t, bobPK)); !errors.Is(err, database.ErrKeyMismatch) {
		t.Fatalf("Should not be able to sign with another account's key: %v", err)
	}
}

func Test_Option(t *testing.T) {
	if database.OptionA.Other() != database.OptionB || database.OptionB.Other() != database.OptionA {
		t.Fatalf("Should get back the opposing option.")
	}

	if _, err := database.ToOption("A"); err != nil {
		t.Fatalf("Should be able to parse option A: %v", err)
	}

	if _, err := database.ToOption("yes"); err == nil {
		t.Fatalf("Should not be able to parse an unknown label.")
	}
}

func Test_Encoding(t *testing.T) {
	alice := key(t, alicePK)

	t.Log("Given the need to commit to the exact bytes of a transaction.")
	{
		_, err := database.NewCreateMarketTx(alice, 100, "game1", "Q\xff", "Yes", "No", 160)
		if !errs.IsConfig(err) || !errors.Is(err, database.ErrBadEncoding) {
			t.Fatalf("\t%s\tShould not be able to build a transaction with invalid utf-8: %v", failed, err)
		}
		t.Logf("\t%s\tShould not be able to build a transaction with invalid utf-8.", success)

		tx := rawCreateTx(t, alice, "Q\xff")
		if err := tx.Validate(); !errs.IsValidation(err) || !errors.Is(err, database.ErrBadEncoding) {
			t.Fatalf("\t%s\tShould not be able to verify a transaction with invalid utf-8: %v", failed, err)
		}

		tampered := tx
		p := tampered.Payload.(database.CreateMarket)
		p.Question = "Q\xfe"
		tampered.Payload = p

		if tampered.Verify() {
			t.Fatalf("\t%s\tShould not be able to verify a transaction with a changed byte.", failed)
		}
		t.Logf("\t%s\tShould not be able to verify a transaction with invalid utf-8.", success)

		if _, err := tx.Tx.Sign(alice); !errors.Is(err, database.ErrBadEncoding) {
			t.Fatalf("\t%s\tShould not be able to sign a transaction with invalid utf-8: %v", failed, err)
		}
		t.Logf("\t%s\tShould not be able to sign a transaction with invalid utf-8.", success)
	}
}

func Test_Account(t *testing.T) {
	alice := key(t, alicePK)
	address := alice.Address()

	if _, err := database.ToAccountID(address); err != nil {
		t.Fatalf("Should be able to parse a derived account: %v", err)
	}

	for _, bad := range []string{strings.ToLower(address), address[2:], "0x1234", ""} {
		if _, err := database.ToAccountID(bad); !errors.Is(err, database.ErrBadAccount) {
			t.Fatalf("Should not be able to parse %q: %v", bad, err)
		}
	}

	tx, err := database.NewPlaceBetTx(alice, 101, "game1", database.OptionA, 100)
	if err != nil {
		t.Fatalf("Should be able to build the transaction: %v", err)
	}

	tx.FromID = database.AccountID(strings.ToLower(address))
	if err := tx.Validate(); !errs.IsValidation(err) || !errors.Is(err, database.ErrBadAccount) {
		t.Fatalf("Should not be able to verify a sender that is not checksummed: %v", err)
	}
}

func Test_BorrowedPublicKey(t *testing.T) {
	alice := key(t, alicePK)
	bob := key(t, bobPK)

	borrowed := signature.PrivateKey{
		D:         bob.D,
		PublicKey: alice.PublicKey,
	}

	tx, err := database.NewTx(borrowed, 110, database.ResolveMarket{MarketID: "game1", WinningOption: database.OptionA})
	if err != nil {
		t.Fatalf("Should be able to build the transaction: %v", err)
	}

	if _, err := tx.Sign(borrowed); !errors.Is(err, signature.ErrKeyPairMismatch) {
		t.Fatalf("Should not be able to sign with another account's public key: %v", err)
	}
}
