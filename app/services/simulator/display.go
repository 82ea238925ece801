package main

import (
	"fmt"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/ledger"
	"github.com/marketchain/marketchain/foundation/blockchain/payout"
	"github.com/marketchain/marketchain/foundation/nameservice"
	"github.com/pterm/pterm"
)

// printChain renders one row per block.
func printChain(chain database.Chain, ns *nameservice.NameService) {
	pterm.DefaultSection.Println("Chain")

	data := pterm.TableData{{"Block", "Nonce", "Hash", "Transactions"}}
	for _, block := range chain.Blocks() {
		var trans string
		for i, tx := range block.Values() {
			if i > 0 {
				trans += "\n"
			}
			trans += fmt.Sprintf("%s %s by %s", tx.Kind, tx.MarketID(), ns.Lookup(tx.FromID))
		}

		data = append(data, []string{
			fmt.Sprint(block.Header.Number),
			fmt.Sprint(block.Header.Nonce),
			block.Hash,
			trans,
		})
	}

	pterm.DefaultTable.WithHasHeader().WithRowSeparator("-").WithData(data).Render()
}

// printPayouts renders the stakes and payout of every bettor in the market.
func printPayouts(market ledger.Market, payouts payout.Payouts, ns *nameservice.NameService) {
	pterm.DefaultSection.Println("Payouts")

	pterm.Info.Printfln("%s winner: %s (%s)", market.Question, market.Winner, market.Label(market.Winner))
	pterm.Info.Printfln("pools: %s[%d] %s[%d]", market.OptionA, market.Pool(database.OptionA), market.OptionB, market.Pool(database.OptionB))

	data := pterm.TableData{{"Bettor", "On " + market.OptionA, "On " + market.OptionB, "Payout"}}
	for _, accountID := range payouts.Accounts() {
		stake := market.Stakes[accountID]
		data = append(data, []string{
			ns.Lookup(accountID),
			fmt.Sprint(stake.A),
			fmt.Sprint(stake.B),
			pterm.LightGreen(payouts[accountID]),
		})
	}

	pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	pterm.Success.Printfln("paid out %d of %d", payouts.Total(), market.Total())
}
