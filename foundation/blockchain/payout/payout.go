// Package payout computes how a resolved market's pools are paid back to
// the bettors.
package payout

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/errs"
	"github.com/marketchain/marketchain/foundation/blockchain/ledger"
	"golang.org/x/sync/errgroup"
)

// ErrNotResolved is returned when payouts are requested for an open market.
var ErrNotResolved = errors.New("market is not resolved")

// Payouts maps every bettor of a market to the amount paid back to them.
type Payouts map[database.AccountID]uint64

// Total returns the sum of all payouts.
func (p Payouts) Total() uint64 {
	var total uint64
	for _, amount := range p {
		total += amount
	}
	return total
}

// Accounts returns the bettors sorted by address.
func (p Payouts) Accounts() []database.AccountID {
	accounts := make([]database.AccountID, 0, len(p))
	for accountID := range p {
		accounts = append(accounts, accountID)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i] < accounts[j]
	})

	return accounts
}

// Calculate computes the payouts for a resolved market. A winning stake is
// returned with a proportional share of the losing pool:
//
//	payout = stake * (winningPool + losingPool) / winningPool
//
// Intermediates are 256 bits wide and the result is rounded down, so the
// total never exceeds the two pools. Bettors with nothing on the winning side
// get 0. If nobody backed the winner every payout is 0.
func Calculate(market ledger.Market) (Payouts, error) {
	if !market.IsResolved() {
		return nil, errs.NewValidation(fmt.Errorf("%w: %s", ErrNotResolved, market.ID))
	}

	winningPool := market.Pool(market.Winner)
	losingPool := market.Pool(market.Winner.Other())

	payouts := make(Payouts, len(market.Stakes))
	if winningPool == 0 {
		for accountID := range market.Stakes {
			payouts[accountID] = 0
		}
		return payouts, nil
	}

	total := new(uint256.Int).Add(uint256.NewInt(winningPool), uint256.NewInt(losingPool))
	winners := uint256.NewInt(winningPool)

	for accountID, stake := range market.Stakes {
		amount := new(uint256.Int).Mul(uint256.NewInt(stake.On(market.Winner)), total)
		amount.Div(amount, winners)

		if !amount.IsUint64() {
			return nil, fmt.Errorf("payout for %s overflows: %s", accountID, amount.Dec())
		}
		payouts[accountID] = amount.Uint64()
	}

	return payouts, nil
}

// CalculateAll computes the payouts for a set of resolved markets
// concurrently. The markets are copies, so nothing is shared between the
// workers. The first failure cancels the rest.
func CalculateAll(ctx context.Context, markets []ledger.Market) (map[string]Payouts, error) {
	results := make([]Payouts, len(markets))

	g, ctx := errgroup.WithContext(ctx)
	for i, market := range markets {
		i, market := i, market
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			payouts, err := Calculate(market)
			if err != nil {
				return err
			}

			results[i] = payouts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make(map[string]Payouts, len(markets))
	for i, market := range markets {
		all[market.ID] = results[i]
	}

	return all, nil
}
