// Package database handles the lower level support for the blockchain: the
// transactions, the blocks, the proof of work and the chain value that ties
// them together. Everything is held in memory.
package database

import (
	"fmt"

	"github.com/marketchain/marketchain/foundation/blockchain/errs"
)

// Chain is an ordered sequence of blocks starting with the genesis block.
// A Chain is a value: Append returns a new Chain and never changes the
// receiver, so a snapshot can be validated or replayed while another
// goroutine keeps appending.
type Chain struct {
	blocks []Block
}

// NewChain constructs a chain holding only the genesis block.
func NewChain() Chain {
	return Chain{
		blocks: []Block{GenesisBlock()},
	}
}

// ChainFromBlocks constructs a chain from blocks without validating them.
// Call Validate before trusting the result.
func ChainFromBlocks(blocks []Block) Chain {
	cpy := make([]Block, len(blocks))
	copy(cpy, blocks)

	return Chain{
		blocks: cpy,
	}
}

// Append validates the block as the next block of the chain and returns a
// new chain that includes it.
func (c Chain) Append(block Block, difficulty uint16, evHandler func(v string, args ...any)) (Chain, error) {
	if err := block.ValidateBlock(c.LatestBlock(), difficulty, evHandler); err != nil {
		return c, err
	}

	blocks := make([]Block, len(c.blocks), len(c.blocks)+1)
	copy(blocks, c.blocks)

	return Chain{blocks: append(blocks, block)}, nil
}

// Validate walks the entire chain and returns an IntegrityError for the
// first block that fails.
func (c Chain) Validate(difficulty uint16) error {
	if difficulty > MaxDifficulty {
		return errs.NewConfig("difficulty", fmt.Errorf("%d is above %d", difficulty, MaxDifficulty))
	}

	if len(c.blocks) == 0 || !c.blocks[0].isGenesis() {
		return errs.NewIntegrity(0, ErrBadGenesis)
	}

	for i := 1; i < len(c.blocks); i++ {
		if err := c.blocks[i].ValidateBlock(c.blocks[i-1], difficulty, nil); err != nil {
			return err
		}
	}

	return nil
}

// IsValid reports whether Validate passes.
func (c Chain) IsValid(difficulty uint16) bool {
	return c.Validate(difficulty) == nil
}

// LatestBlock returns the tip of the chain.
func (c Chain) LatestBlock() Block {
	if len(c.blocks) == 0 {
		return GenesisBlock()
	}
	return c.blocks[len(c.blocks)-1]
}

// Len returns the number of blocks including genesis.
func (c Chain) Len() int {
	return len(c.blocks)
}

// Blocks returns a copy of the blocks in order.
func (c Chain) Blocks() []Block {
	cpy := make([]Block, len(c.blocks))
	copy(cpy, c.blocks)
	return cpy
}
