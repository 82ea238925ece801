package ledger_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/errs"
	"github.com/marketchain/marketchain/foundation/blockchain/ledger"
	"github.com/marketchain/marketchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	alicePK   = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	bobPK     = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	charliePK = "a5b1c2d3e4f5061728394a5b6c7d8e9fa0b1c2d3e4f5061728394a5b6c7d8e9f"
)

func key(t *testing.T, hexKey string) signature.PrivateKey {
	pk, err := signature.HexToKey(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}
	return pk
}

func mustTx(t *testing.T) func(database.SignedTx, error) database.SignedTx {
	return func(tx database.SignedTx, err error) database.SignedTx {
		if err != nil {
			t.Fatalf("Should be able to build the transaction: %v", err)
		}
		return tx
	}
}

func scenario(t *testing.T) []database.SignedTx {
	must := mustTx(t)

	alice := key(t, alicePK)
	bob := key(t, bobPK)
	charlie := key(t, charliePK)

	return []database.SignedTx{
		must(database.NewCreateMarketTx(alice, 100, "game1", "Will Team A win?", "Yes", "No", 160)),
		must(database.NewPlaceBetTx(alice, 101, "game1", database.OptionA, 100)),
		must(database.NewPlaceBetTx(bob, 102, "game1", database.OptionB, 50)),
		must(database.NewPlaceBetTx(charlie, 103, "game1", database.OptionB, 100)),
		must(database.NewResolveMarketTx(alice, 200, "game1", database.OptionA)),
	}
}

// =============================================================================

func Test_Apply(t *testing.T) {
	alice := key(t, alicePK)
	bob := key(t, bobPK)

	t.Log("Given the need to apply a market's life cycle.")
	{
		ldg := ledger.New()
		for i, tx := range scenario(t) {
			if err := ldg.Apply(tx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply %s: %v", failed, i, tx, err)
			}
		}
		t.Logf("\t%s\tShould be able to apply every transaction.", success)

		market, err := ldg.Market("game1")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to find the market: %v", failed, err)
		}

		if !market.IsResolved() || market.Winner != database.OptionA {
			t.Fatalf("\t%s\tShould have a resolved market with winner A: %+v", failed, market)
		}

		if market.Creator != database.PublicKeyToAccountID(alice.PublicKey) {
			t.Fatalf("\t%s\tShould have the sender of the create as the creator.", failed)
		}

		if market.Pool(database.OptionA) != 100 || market.Pool(database.OptionB) != 150 {
			t.Fatalf("\t%s\tShould have pools of 100 and 150, got %d and %d.", failed, market.Pool(database.OptionA), market.Pool(database.OptionB))
		}

		if got := market.Stakes[database.PublicKeyToAccountID(bob.PublicKey)]; got != (ledger.Stake{B: 50}) {
			t.Fatalf("\t%s\tShould have Bob's stake on B, got %+v.", failed, got)
		}
		t.Logf("\t%s\tShould have the expected market state.", success)
	}
}

func Test_Rejects(t *testing.T) {
	must := mustTx(t)

	alice := key(t, alicePK)
	bob := key(t, bobPK)

	create := must(database.NewCreateMarketTx(alice, 100, "game1", "Will Team A win?", "Yes", "No", 160))

	type table struct {
		name string
		prep []database.SignedTx
		tx   database.SignedTx
		err  error
	}

	tt := []table{
		{
			name: "duplicate",
			prep: []database.SignedTx{create},
			tx:   must(database.NewCreateMarketTx(bob, 101, "game1", "Other?", "Yes", "No", 300)),
			err:  ledger.ErrMarketExists,
		},
		{
			name: "bet no market",
			tx:   must(database.NewPlaceBetTx(bob, 101, "game9", database.OptionA, 10)),
			err:  ledger.ErrMarketNotFound,
		},
		{
			name: "bet at end time",
			prep: []database.SignedTx{create},
			tx:   must(database.NewPlaceBetTx(bob, 160, "game1", database.OptionA, 10)),
			err:  ledger.ErrBettingClosed,
		},
		{
			name: "bet zero",
			prep: []database.SignedTx{create},
			tx:   must(database.NewPlaceBetTx(bob, 101, "game1", database.OptionA, 0)),
			err:  ledger.ErrInvalidAmount,
		},
		{
			name: "bet resolved",
			prep: []database.SignedTx{create, must(database.NewResolveMarketTx(alice, 110, "game1", database.OptionB))},
			tx:   must(database.NewPlaceBetTx(bob, 120, "game1", database.OptionA, 10)),
			err:  ledger.ErrMarketClosed,
		},
		{
			name: "resolve no market",
			tx:   must(database.NewResolveMarketTx(alice, 101, "game9", database.OptionA)),
			err:  ledger.ErrMarketNotFound,
		},
		{
			name: "resolve twice",
			prep: []database.SignedTx{create, must(database.NewResolveMarketTx(alice, 110, "game1", database.OptionB))},
			tx:   must(database.NewResolveMarketTx(alice, 111, "game1", database.OptionA)),
			err:  ledger.ErrAlreadyResolved,
		},
		{
			name: "resolve not creator",
			prep: []database.SignedTx{create},
			tx:   must(database.NewResolveMarketTx(bob, 110, "game1", database.OptionA)),
			err:  ledger.ErrNotCreator,
		},
	}

	t.Log("Given the need to reject out of policy transactions.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				ldg := ledger.New()
				for _, tx := range tst.prep {
					if err := ldg.Apply(tx); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to apply %s: %v", failed, testID, tx, err)
					}
				}

				before := ldg.Copy()

				err := ldg.Apply(tst.tx)
				if !errs.IsValidation(err) || !errors.Is(err, tst.err) {
					t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
					t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.err)
					t.Fatalf("\t%s\tTest %d:\tShould get back a validation error.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back a validation error.", success, testID)

				if !reflect.DeepEqual(before, ldg.Copy()) {
					t.Fatalf("\t%s\tTest %d:\tShould not change the ledger on a rejected transaction.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould not change the ledger on a rejected transaction.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_BothSides(t *testing.T) {
	must := mustTx(t)

	alice := key(t, alicePK)
	bob := key(t, bobPK)

	ldg := ledger.New()
	trans := []database.SignedTx{
		must(database.NewCreateMarketTx(alice, 100, "game1", "Will Team A win?", "Yes", "No", 160)),
		must(database.NewPlaceBetTx(bob, 101, "game1", database.OptionA, 10)),
		must(database.NewPlaceBetTx(bob, 102, "game1", database.OptionB, 5)),
		must(database.NewPlaceBetTx(bob, 103, "game1", database.OptionA, 7)),
	}

	for _, tx := range trans {
		if err := ldg.Apply(tx); err != nil {
			t.Fatalf("Should be able to apply %s: %v", tx, err)
		}
	}

	market, err := ldg.Market("game1")
	if err != nil {
		t.Fatalf("Should be able to find the market: %v", err)
	}

	if got := market.Stakes[database.PublicKeyToAccountID(bob.PublicKey)]; got != (ledger.Stake{A: 17, B: 5}) {
		t.Fatalf("Should track both sides separately, got %+v.", got)
	}
}

func Test_Forged(t *testing.T) {
	must := mustTx(t)

	alice := key(t, alicePK)
	bob := key(t, bobPK)

	ldg := ledger.New()
	if err := ldg.Apply(must(database.NewCreateMarketTx(alice, 100, "game1", "Will Team A win?", "Yes", "No", 160))); err != nil {
		t.Fatalf("Should be able to create the market: %v", err)
	}

	tx := must(database.NewResolveMarketTx(bob, 110, "game1", database.OptionA))
	tx.FromID = database.PublicKeyToAccountID(alice.PublicKey)

	if err := ldg.Apply(tx); !errs.IsValidation(err) {
		t.Fatalf("Should not be able to apply a forged transaction: %v", err)
	}

	if market, _ := ldg.Market("game1"); market.IsResolved() {
		t.Fatalf("Should not have resolved the market.")
	}
}

func Test_Copies(t *testing.T) {
	must := mustTx(t)

	alice := key(t, alicePK)
	bob := key(t, bobPK)

	ldg := ledger.New()
	for _, tx := range scenario(t)[:3] {
		if err := ldg.Apply(tx); err != nil {
			t.Fatalf("Should be able to apply %s: %v", tx, err)
		}
	}

	market, err := ldg.Market("game1")
	if err != nil {
		t.Fatalf("Should be able to find the market: %v", err)
	}
	market.Stakes[database.PublicKeyToAccountID(bob.PublicKey)] = ledger.Stake{B: 1_000}
	market.Status = ledger.StatusResolved

	clone := ldg.Clone()
	if err := clone.Apply(must(database.NewResolveMarketTx(alice, 150, "game1", database.OptionA))); err != nil {
		t.Fatalf("Should be able to resolve the cloned market: %v", err)
	}

	fresh, err := ldg.Market("game1")
	if err != nil {
		t.Fatalf("Should be able to find the market: %v", err)
	}

	if fresh.IsResolved() || fresh.Pool(database.OptionB) != 50 {
		t.Fatalf("Should not be able to change the ledger through a copy: %+v", fresh)
	}

	if _, err := ldg.Market("game9"); !errors.Is(err, ledger.ErrMarketNotFound) {
		t.Fatalf("Should get not found for an unknown market: %v", err)
	}
}

func Test_Replay(t *testing.T) {
	must := mustTx(t)

	alice := key(t, alicePK)
	bob := key(t, bobPK)

	trans := scenario(t)
	late := must(database.NewPlaceBetTx(bob, 170, "game1", database.OptionA, 10))

	chain := database.NewChain()
	for _, batch := range [][]database.SignedTx{trans[:2], {trans[2], late, trans[3]}, trans[4:]} {
		block, err := database.POW(context.Background(), database.POWArgs{
			Difficulty: 1,
			PrevBlock:  chain.LatestBlock(),
			Trans:      batch,
			TimeStamp:  1_000,
		})
		if err != nil {
			t.Fatalf("Should be able to mine a block: %v", err)
		}

		if chain, err = chain.Append(block, 1, nil); err != nil {
			t.Fatalf("Should be able to append the block: %v", err)
		}
	}

	t.Log("Given the need to rebuild the ledger from the chain.")
	{
		ldg1, txErrs := ledger.Replay(chain)
		if len(txErrs) != 1 {
			t.Fatalf("\t%s\tShould get back one rejected transaction, got %d: %v", failed, len(txErrs), txErrs.Err())
		}

		if txErrs[0].Block != 2 || txErrs[0].Tx.ID() != late.ID() || !errors.Is(txErrs[0], ledger.ErrBettingClosed) {
			t.Fatalf("\t%s\tShould report the late bet in block 2: %v", failed, txErrs[0])
		}
		t.Logf("\t%s\tShould skip and report the late bet.", success)

		ldg2, _ := ledger.Replay(chain)
		if !reflect.DeepEqual(ldg1.Markets(), ldg2.Markets()) {
			t.Fatalf("\t%s\tShould get the same ledger from every replay.", failed)
		}
		t.Logf("\t%s\tShould get the same ledger from every replay.", success)

		market, err := ldg1.Market("game1")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to find the market: %v", failed, err)
		}

		if market.Creator != database.PublicKeyToAccountID(alice.PublicKey) || market.Pool(database.OptionA) != 100 || market.Pool(database.OptionB) != 150 {
			t.Fatalf("\t%s\tShould have the expected market state: %+v", failed, market)
		}
		t.Logf("\t%s\tShould have the expected market state.", success)
	}

	if _, txErrs := ledger.Replay(database.NewChain()); txErrs.Err() != nil {
		t.Fatalf("Should be able to replay a chain with only genesis: %v", txErrs)
	}
}
