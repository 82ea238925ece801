package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marketchain/marketchain/foundation/blockchain/errs"
	"github.com/marketchain/marketchain/foundation/blockchain/merkle"
	"github.com/marketchain/marketchain/foundation/blockchain/signature"
)

// MaxDifficulty is the number of hex digits in a hash. A difficulty above it
// can never be solved.
const MaxDifficulty = 64

// Set of error variables for block validation.
var (
	ErrHashMismatch   = errors.New("stored hash does not match block contents")
	ErrHashNotSolved  = errors.New("block hash does not satisfy the difficulty")
	ErrParentMismatch = errors.New("previous hash does not match parent block")
	ErrMerkleMismatch = errors.New("merkle root does not match transactions")
	ErrBadNumber      = errors.New("block is not the next number")
	ErrBadGenesis     = errors.New("genesis block does not match the agreed definition")
	ErrNoTrans        = errors.New("block has no transactions")
	ErrTimeStamp      = errors.New("block timestamp is before parent block")
	ErrDifficulty     = errors.New("block difficulty is below the active difficulty")
)

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64 `json:"number"`          // Block number in the chain, genesis is 0.
	PrevBlockHash string `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64 `json:"timestamp"`       // Time the block was mined.
	Nonce         uint64 `json:"nonce"`           // Value identified to solve the hash solution.
	Difficulty    uint16 `json:"difficulty"`      // Number of 0's needed to solve the hash solution.
	TransRoot     string `json:"trans_root"`      // Merkle root of the transactions, in order.
}

// Block represents a group of transactions batched together. Once mined
// a block is never changed.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[SignedTx]
	Hash   string
}

// GenesisBlock returns the fixed first block every chain starts with.
func GenesisBlock() Block {
	return Block{
		Header: BlockHeader{
			Number:        0,
			PrevBlockHash: signature.ZeroHash,
			TransRoot:     signature.ZeroHash,
		},
		Hash: signature.ZeroHash,
	}
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Difficulty uint16
	PrevBlock  Block
	Trans      []SignedTx
	TimeStamp  uint64
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the POW puzzle. There is no upper bound on the work: the search
// only ends when it succeeds or the context is cancelled.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	if args.Difficulty > MaxDifficulty {
		return Block{}, errs.NewConfig("difficulty", fmt.Errorf("%d is above %d", args.Difficulty, MaxDifficulty))
	}

	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	// Construct a merkle tree from the transactions for this block. The root
	// of this tree will be part of the block to be mined.
	tree, err := merkle.NewTree(args.Trans)
	if err != nil {
		if errors.Is(err, merkle.ErrNoContent) {
			return Block{}, ErrNoTrans
		}
		return Block{}, err
	}

	timeStamp := args.TimeStamp
	if timeStamp == 0 {
		timeStamp = uint64(time.Now().UTC().Unix())
	}
	if timeStamp < args.PrevBlock.Header.TimeStamp {
		timeStamp = args.PrevBlock.Header.TimeStamp
	}

	nb := Block{
		Header: BlockHeader{
			Number:        args.PrevBlock.Header.Number + 1,
			PrevBlockHash: args.PrevBlock.ComputeHash(),
			TimeStamp:     timeStamp,
			Nonce:         0,
			Difficulty:    args.Difficulty,
			TransRoot:     tree.RootHex(),
		},
		Trans: tree,
	}

	if err := nb.performPOW(ctx, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Header.Number, b.Header.Difficulty)
	defer ev("database: PerformPOW: MINING: completed")

	for _, tx := range b.Trans.Values() {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		hash := b.ComputeHash()
		if !isHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		b.Hash = hash

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// ComputeHash recomputes the hash for the block from its header. The header
// carries the merkle root, so the transactions and their order are covered.
func (b Block) ComputeHash() string {
	if b.Header.Number == 0 {
		return signature.ZeroHash
	}

	return signature.Hash(b.Header)
}

// Values returns the transactions in the block in order.
func (b Block) Values() []SignedTx {
	if b.Trans == nil {
		return nil
	}
	return b.Trans.Values()
}

// ValidateBlock takes a block and validates it to be the next block after
// the previous block. Nothing trusted from storage is reused: the merkle root,
// both hashes and the proof of work are recomputed. Transaction text must be
// valid utf-8 so the hashes commit to the exact bytes.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint16, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	fail := func(err error) error {
		return errs.NewIntegrity(b.Header.Number, err)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fail(fmt.Errorf("%w: got %d, exp %d", ErrBadNumber, b.Header.Number, nextNumber))
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if prevHash := previousBlock.ComputeHash(); b.Header.PrevBlockHash != prevHash {
		return fail(fmt.Errorf("%w: got %s, exp %s", ErrParentMismatch, b.Header.PrevBlockHash, prevHash))
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transactions are encoded and match the merkle root", b.Header.Number)

	values := b.Values()
	if len(values) == 0 {
		return fail(ErrNoTrans)
	}

	for i, tx := range values {
		if tx.Payload == nil {
			return fail(fmt.Errorf("tx[%d]: %w", i, ErrMissingPayload))
		}
		if err := checkEncoding(tx.Payload); err != nil {
			return fail(fmt.Errorf("tx[%d]: %w", i, err))
		}
	}

	tree, err := merkle.NewTree(values)
	if err != nil {
		return fail(err)
	}
	if root := tree.RootHex(); b.Header.TransRoot != root {
		return fail(fmt.Errorf("%w: got %s, exp %s", ErrMerkleMismatch, root, b.Header.TransRoot))
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: stored hash matches block contents", b.Header.Number)

	hash := b.ComputeHash()
	if b.Hash != hash {
		return fail(fmt.Errorf("%w: got %s, exp %s", ErrHashMismatch, b.Hash, hash))
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Header.Number)

	if b.Header.Difficulty < difficulty {
		return fail(fmt.Errorf("%w: got %d, exp %d", ErrDifficulty, b.Header.Difficulty, difficulty))
	}
	if !isHashSolved(b.Header.Difficulty, hash) {
		return fail(fmt.Errorf("%w: %s", ErrHashNotSolved, hash))
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", b.Header.Number)

	if b.Header.TimeStamp < previousBlock.Header.TimeStamp {
		parentTime := time.Unix(int64(previousBlock.Header.TimeStamp), 0)
		blockTime := time.Unix(int64(b.Header.TimeStamp), 0)
		return fail(fmt.Errorf("%w: parent %s, block %s", ErrTimeStamp, parentTime, blockTime))
	}

	return nil
}

// isGenesis checks the block matches the fixed genesis definition exactly.
func (b Block) isGenesis() bool {
	return b.Header == GenesisBlock().Header && len(b.Values()) == 0 && b.Hash == signature.ZeroHash
}

// =============================================================================

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint16, hash string) bool {
	hash = strings.TrimPrefix(hash, "0x")
	if len(hash) != 64 || int(difficulty) > len(hash) {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}
