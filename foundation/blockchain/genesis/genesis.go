// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
	"github.com/marketchain/marketchain/foundation/blockchain/errs"
)

// Set of default chain parameters.
const (
	DefaultDifficulty    = 2
	DefaultTransPerBlock = 10
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time `json:"date"`            // When the chain was started.
	TransPerBlock uint16    `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	Difficulty    uint16    `json:"difficulty"`      // How difficult it needs to be to solve the work problem.
}

// Default returns the parameters used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:          time.Now().UTC(),
		TransPerBlock: DefaultTransPerBlock,
		Difficulty:    DefaultDifficulty,
	}
}

// New constructs the chain parameters, rejecting values that can't be mined.
func New(difficulty int, transPerBlock int) (Genesis, error) {
	if difficulty < 0 || difficulty > database.MaxDifficulty {
		return Genesis{}, errs.NewConfig("difficulty", fmt.Errorf("%d is not between 0 and %d", difficulty, database.MaxDifficulty))
	}

	if transPerBlock <= 0 || transPerBlock > 1<<16-1 {
		return Genesis{}, errs.NewConfig("trans_per_block", fmt.Errorf("%d is not a positive block size", transPerBlock))
	}

	gen := Genesis{
		Date:          time.Now().UTC(),
		TransPerBlock: uint16(transPerBlock),
		Difficulty:    uint16(difficulty),
	}

	return gen, nil
}

// Validate checks the parameters can drive a chain.
func (g Genesis) Validate() error {
	_, err := New(int(g.Difficulty), int(g.TransPerBlock))
	return err
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
