// Package chain provides the block hash entropy source used to anchor
// shuffles, and a local hash-chained block producer implementing it.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/fairpoker/internal/protocol"
)

// DefaultRetention matches the number of recent block hashes readable from
// an EVM contract.
const DefaultRetention = 256

var (
	ErrBlockNotMined = errors.New("block not mined")
	ErrBlockPruned   = errors.New("block hash outside retention window")
)

// Source exposes the head block number and the hashes of recent blocks.
type Source interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockHash(ctx context.Context, number uint64) (protocol.Hash, error)
}

// Block is a single entry of the local chain.
type Block struct {
	Number     uint64        `json:"number"`
	Hash       protocol.Hash `json:"hash"`
	ParentHash protocol.Hash `json:"parent_hash"`
	Time       time.Time     `json:"time"`
}

// LocalChain is an in-process chain of keccak-linked blocks. Hashes older
// than the retention window are no longer served.
type LocalChain struct {
	mu        sync.RWMutex
	blocks    []Block
	retention uint64
	salt      protocol.Hash
	clock     quartz.Clock
	logger    *log.Logger
}

// Option configures a LocalChain.
type Option func(*LocalChain)

// WithRetention sets how many blocks behind the head remain readable.
func WithRetention(blocks uint64) Option {
	return func(c *LocalChain) { c.retention = blocks }
}

// WithSalt mixes a fixed value into every block hash, making a chain
// reproducible for a given clock.
func WithSalt(salt protocol.Hash) Option {
	return func(c *LocalChain) { c.salt = salt }
}

// NewLocalChain creates a chain holding only its genesis block.
func NewLocalChain(clock quartz.Clock, logger *log.Logger, opts ...Option) *LocalChain {
	c := &LocalChain{
		retention: DefaultRetention,
		clock:     clock,
		logger:    logger.WithPrefix("chain"),
	}
	c.salt = protocol.Keccak256(protocol.Uint256(uint64(clock.Now().UnixNano())))
	for _, opt := range opts {
		opt(c)
	}

	genesis := Block{Number: 0, Time: clock.Now()}
	genesis.Hash = c.hashBlock(genesis)
	c.blocks = append(c.blocks, genesis)
	return c
}

func (c *LocalChain) hashBlock(b Block) protocol.Hash {
	return protocol.Keccak256(
		b.ParentHash[:],
		protocol.Uint256(b.Number),
		protocol.Uint256(uint64(b.Time.UnixNano())),
		c.salt[:],
	)
}

// Mine appends one block and returns it.
func (c *LocalChain) Mine() Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mineLocked()
}

// MineN appends n blocks and returns the new head.
func (c *LocalChain) MineN(n int) Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	head := c.blocks[len(c.blocks)-1]
	for i := 0; i < n; i++ {
		head = c.mineLocked()
	}
	return head
}

func (c *LocalChain) mineLocked() Block {
	parent := c.blocks[len(c.blocks)-1]
	b := Block{
		Number:     parent.Number + 1,
		ParentHash: parent.Hash,
		Time:       c.clock.Now(),
	}
	b.Hash = c.hashBlock(b)
	c.blocks = append(c.blocks, b)
	c.logger.Debug("Mined block", "number", b.Number, "hash", b.Hash.Short())
	return b
}

// Head returns the latest block.
func (c *LocalChain) Head() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// BlockNumber returns the head block number.
func (c *LocalChain) BlockNumber(ctx context.Context) (uint64, error) {
	return c.Head().Number, nil
}

// BlockHash returns the hash of a mined block still inside the retention
// window.
func (c *LocalChain) BlockHash(ctx context.Context, number uint64) (protocol.Hash, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	head := c.blocks[len(c.blocks)-1].Number
	if number > head {
		return protocol.Hash{}, fmt.Errorf("%w: block %d, head %d", ErrBlockNotMined, number, head)
	}
	if head-number > c.retention {
		return protocol.Hash{}, fmt.Errorf("%w: block %d, head %d", ErrBlockPruned, number, head)
	}
	return c.blocks[number].Hash, nil
}

// Verify checks number continuity, parent linkage and every block hash.
func (c *LocalChain) Verify() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.blocks) == 0 || c.blocks[0].Number != 0 || !c.blocks[0].ParentHash.IsZero() {
		return fmt.Errorf("invalid genesis block")
	}
	for i, b := range c.blocks {
		if c.hashBlock(b) != b.Hash {
			return fmt.Errorf("block %d: hash mismatch", i)
		}
		if i == 0 {
			continue
		}
		prev := c.blocks[i-1]
		if b.Number != prev.Number+1 {
			return fmt.Errorf("block %d: number %d does not follow %d", i, b.Number, prev.Number)
		}
		if b.ParentHash != prev.Hash {
			return fmt.Errorf("block %d: parent hash mismatch", i)
		}
	}
	return nil
}

// Start mines a block every interval until ctx is cancelled. The ticker is
// registered before Start returns.
func (c *LocalChain) Start(ctx context.Context, interval time.Duration) quartz.Waiter {
	c.logger.Info("Starting block producer", "interval", interval)
	return c.clock.TickerFunc(ctx, interval, func() error {
		c.Mine()
		return nil
	}, "chain", "mine")
}

// Run is Start followed by waiting for the producer to stop.
func (c *LocalChain) Run(ctx context.Context, interval time.Duration) error {
	err := c.Start(ctx, interval).Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
