package permit2

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/HarukiKondo/permit2/eip712"
	"github.com/HarukiKondo/permit2/storage"
)

// CanonicalAddress is the verifying-contract identity digests bind to when
// no other is configured. Same address on every chain.
var CanonicalAddress = common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")

// Core is the authorization engine: allowance-based delegated spending and
// one-time signature-based transfers over a shared storage substrate. All
// state transitions are serialized by a single mutex, so a concurrent loser
// fails its precondition check instead of corrupting state. Core holds no
// funds; movement is always delegated to the Ledger in the same critical
// section as validation.
type Core struct {
	mu sync.Mutex

	ledger Ledger
	clock  Clock
	events EventSink
	cv     ContractVerifier
	hasher *eip712.Hasher

	allowances allowanceStore
	nonces     nonceBitmap
}

// Option configures a Core.
type Option func(*coreConfig)

type coreConfig struct {
	clock    Clock
	events   EventSink
	cv       ContractVerifier
	kv       storage.KV
	chain    eip712.ChainContext
	contract common.Address
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(cfg *coreConfig) { cfg.clock = c }
}

// WithEvents installs an event sink.
func WithEvents(e EventSink) Option {
	return func(cfg *coreConfig) { cfg.events = e }
}

// WithContractVerifier installs the contract-signature capability. Without
// it every signer is treated as a plain key holder.
func WithContractVerifier(cv ContractVerifier) Option {
	return func(cfg *coreConfig) { cfg.cv = cv }
}

// WithStorage replaces the default in-memory substrate.
func WithStorage(kv storage.KV) Option {
	return func(cfg *coreConfig) { cfg.kv = kv }
}

// WithChainContext binds digests to the given chain identity.
func WithChainContext(chain eip712.ChainContext) Option {
	return func(cfg *coreConfig) { cfg.chain = chain }
}

// WithVerifyingContract overrides the canonical verifying-contract address.
func WithVerifyingContract(addr common.Address) Option {
	return func(cfg *coreConfig) { cfg.contract = addr }
}

// New creates a Core. The ledger is mandatory; everything else defaults to
// in-memory storage, the system clock, chain ID 1, and no-op events.
func New(ledger Ledger, opts ...Option) (*Core, error) {
	if ledger == nil {
		return nil, errors.New("permit2: ledger collaborator is required")
	}

	cfg := coreConfig{
		clock:    systemClock{},
		events:   NoopEvents{},
		cv:       keyOnlyVerifier{},
		kv:       storage.NewMemory(),
		chain:    eip712.StaticChain(big.NewInt(1)),
		contract: CanonicalAddress,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Core{
		ledger:     ledger,
		clock:      cfg.clock,
		events:     cfg.events,
		cv:         cfg.cv,
		hasher:     eip712.NewHasher(cfg.chain, cfg.contract),
		allowances: allowanceStore{kv: cfg.kv},
		nonces:     nonceBitmap{kv: cfg.kv},
	}, nil
}

// DomainSeparator returns the digest domain currently in effect.
func (c *Core) DomainSeparator() common.Hash {
	return c.hasher.DomainSeparator()
}

// Allowance reads the (owner, token, spender) record. Never-written keys
// read as the zero record.
func (c *Core) Allowance(owner, token, spender common.Address) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowances.get(owner, token, spender)
}

// NonceBitmapWord reads one 256-bit word of the owner's unordered-nonce
// bitmap.
func (c *Core) NonceBitmapWord(owner common.Address, wordPos *uint256.Int) (*uint256.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces.word(owner, wordPos)
}
