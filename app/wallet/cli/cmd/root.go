// Package cmd contains wallet app
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/marketchain/marketchain/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private"+nameservice.KeyExt, "Path to the private key.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Simple wallet for the market chain",
}

// Execute runs the wallet.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	name := accountName
	if !strings.HasSuffix(name, nameservice.KeyExt) {
		name += nameservice.KeyExt
	}

	return filepath.Join(accountPath, name)
}
