package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/signature"
	"github.com/marketchain/marketchain/foundation/validate"
	"github.com/spf13/cobra"
)

var (
	marketID  string
	timeStamp uint64
	question  string
	optionA   string
	optionB   string
	duration  time.Duration
	option    string
	amount    uint64
	winner    string
)

var createMarketCmd = &cobra.Command{
	Use:   "create-market",
	Short: "Sign a transaction that opens a new market",
	Run: func(cmd *cobra.Command, args []string) {
		run(func(pk signature.PrivateKey, ts uint64) (database.SignedTx, error) {
			endTime := ts + uint64(duration/time.Second)
			return database.NewCreateMarketTx(pk, ts, marketID, question, optionA, optionB, endTime)
		})
	},
}

var placeBetCmd = &cobra.Command{
	Use:   "place-bet",
	Short: "Sign a transaction that stakes an amount on one option",
	Run: func(cmd *cobra.Command, args []string) {
		run(func(pk signature.PrivateKey, ts uint64) (database.SignedTx, error) {
			opt, err := database.ToOption(option)
			if err != nil {
				return database.SignedTx{}, err
			}
			return database.NewPlaceBetTx(pk, ts, marketID, opt, amount)
		})
	},
}

var resolveMarketCmd = &cobra.Command{
	Use:   "resolve-market",
	Short: "Sign a transaction that resolves a market you created",
	Run: func(cmd *cobra.Command, args []string) {
		run(func(pk signature.PrivateKey, ts uint64) (database.SignedTx, error) {
			opt, err := database.ToOption(winner)
			if err != nil {
				return database.SignedTx{}, err
			}
			return database.NewResolveMarketTx(pk, ts, marketID, opt)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{createMarketCmd, placeBetCmd, resolveMarketCmd} {
		rootCmd.AddCommand(cmd)
		cmd.Flags().StringVarP(&marketID, "market", "m", "", "Unique id of the market.")
		cmd.Flags().Uint64VarP(&timeStamp, "timestamp", "t", 0, "Unix time of the transaction, now if not set.")
		cmd.MarkFlagRequired("market")
	}

	createMarketCmd.Flags().StringVarP(&question, "question", "q", "", "Question the market answers.")
	createMarketCmd.Flags().StringVar(&optionA, "option-a", "Yes", "Label of option A.")
	createMarketCmd.Flags().StringVar(&optionB, "option-b", "No", "Label of option B.")
	createMarketCmd.Flags().DurationVarP(&duration, "duration", "d", time.Hour, "How long bets are accepted.")
	createMarketCmd.MarkFlagRequired("question")

	placeBetCmd.Flags().StringVarP(&option, "option", "o", "", "Option to bet on, A or B.")
	placeBetCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to stake.")
	placeBetCmd.MarkFlagRequired("option")

	resolveMarketCmd.Flags().StringVarP(&winner, "winner", "w", "", "Winning option, A or B.")
	resolveMarketCmd.MarkFlagRequired("winner")
}

// =============================================================================

// run loads the wallet key, builds the transaction and prints it.
func run(build func(pk signature.PrivateKey, ts uint64) (database.SignedTx, error)) {
	privateKey, err := signature.LoadKey(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	ts := timeStamp
	if ts == 0 {
		ts = uint64(time.Now().UTC().Unix())
	}

	tx, err := build(privateKey, ts)
	if err != nil {
		for _, line := range fieldLines(err) {
			log.Print(line)
		}
		log.Fatal(err)
	}

	if err := writeTx(os.Stdout, tx); err != nil {
		log.Fatal(err)
	}
}

// fieldLines lists the invalid flags behind err, one line per field.
func fieldLines(err error) []string {
	fields := validate.GetFieldErrors(err).Fields()

	lines := make([]string, 0, len(fields))
	for field, msg := range fields {
		lines = append(lines, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(lines)

	return lines
}

// writeTx writes the signed transaction as indented JSON.
func writeTx(w io.Writer, tx database.SignedTx) error {
	data, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
