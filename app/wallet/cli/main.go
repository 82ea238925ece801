package main

import "github.com/marketchain/marketchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
