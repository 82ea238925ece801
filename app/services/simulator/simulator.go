package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/genesis"
	"github.com/marketchain/marketchain/foundation/blockchain/signature"
	"github.com/marketchain/marketchain/foundation/blockchain/state"
	"github.com/marketchain/marketchain/foundation/nameservice"
	"github.com/pterm/pterm"
)

// recheckInterval bounds the wait for a block event, since the worker can
// empty the mempool by dropping transactions without appending a block.
const recheckInterval = 250 * time.Millisecond

// simulator drives the scenario against the state.
type simulator struct {
	state    *state.State
	ns       *nameservice.NameService
	autoMine bool
	blocks   <-chan state.BlockAppended
}

// submit builds each transaction and hands it to the state.
func (s simulator) submit(steps ...func() (database.SignedTx, error)) error {
	for _, step := range steps {
		tx, err := step()
		if err != nil {
			return fmt.Errorf("building transaction: %w", err)
		}

		if err := s.state.SubmitTx(tx); err != nil {
			return fmt.Errorf("submitting %s: %w", tx, err)
		}

		pterm.Info.Printfln("submitted %s by %s", tx.Kind, s.ns.Lookup(tx.FromID))
	}

	return nil
}

// mine gets every pending transaction into the chain, either by mining
// directly or by waiting on the worker.
func (s simulator) mine(ctx context.Context) error {
	spinner, _ := pterm.DefaultSpinner.Start("Mining...")

	for s.state.QueryMempoolLength() > 0 {
		if s.autoMine {
			select {
			case ba, open := <-s.blocks:
				if !open {
					spinner.Fail("events closed")
					return errors.New("events closed")
				}
				spinner.UpdateText(fmt.Sprintf("block %d appended: trans[%d] rejected[%d]", ba.Block.Header.Number, len(ba.Block.Values()), len(ba.Rejected)))
			case <-time.After(recheckInterval):
			case <-ctx.Done():
				spinner.Fail("mining stopped")
				return ctx.Err()
			}
			continue
		}

		block, err := s.state.MineNewBlock(ctx)
		if err != nil {
			if errors.Is(err, state.ErrNoTransactions) {
				break
			}
			spinner.Fail("mining failed")
			return err
		}
		spinner.UpdateText(fmt.Sprintf("mined block %d", block.Header.Number))
	}

	latest := s.state.LatestBlock()
	spinner.Success(fmt.Sprintf("block %d: %s", latest.Header.Number, latest.Hash))

	return nil
}

// =============================================================================

// loadAccounts loads the key for each name from the folder, generating and
// saving the ones that don't exist yet.
func loadAccounts(folder string, names []string) (map[string]signature.PrivateKey, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, err
	}

	keys := make(map[string]signature.PrivateKey, len(names))
	for _, name := range names {
		path := filepath.Join(folder, name+nameservice.KeyExt)

		pk, err := signature.LoadKey(path)
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist):
			if pk, err = signature.GenerateKey(); err != nil {
				return nil, err
			}
			if err := signature.SaveKey(path, pk); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}

		keys[name] = pk
	}

	return keys, nil
}

// loadGenesis reads the genesis file when one is configured, otherwise it
// builds the parameters from the configured values.
func loadGenesis(path string, difficulty int, transPerBlock int) (genesis.Genesis, error) {
	if path != "" {
		return genesis.Load(path)
	}
	return genesis.New(difficulty, transPerBlock)
}
