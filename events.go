package permit2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventSink receives one callback per observable state transition, after
// the transition has committed. Implementations must not call back into
// the core; they run under its lock.
type EventSink interface {
	// Approval reports a direct owner set of an allowance record.
	Approval(owner, token, spender common.Address, amount *uint256.Int, expiration uint64)
	// Permit reports a signature-validated set of an allowance record.
	// Nonce is the record's nonce after the set.
	Permit(owner, token, spender common.Address, amount *uint256.Int, expiration uint64, nonce uint64)
	// Lockdown reports one zeroed (token, spender) pair.
	Lockdown(owner, token, spender common.Address)
	// NonceInvalidation reports an ordered-nonce jump on one record.
	NonceInvalidation(owner, token, spender common.Address, newNonce, oldNonce uint64)
	// UnorderedNonceInvalidation reports exactly the bits newly flipped in
	// one bitmap word. Bits that were already set are not included.
	UnorderedNonceInvalidation(owner common.Address, wordPos, mask *uint256.Int)
}

// NoopEvents discards every event. It is the default sink.
type NoopEvents struct{}

func (NoopEvents) Approval(common.Address, common.Address, common.Address, *uint256.Int, uint64) {}

func (NoopEvents) Permit(common.Address, common.Address, common.Address, *uint256.Int, uint64, uint64) {
}

func (NoopEvents) Lockdown(common.Address, common.Address, common.Address) {}

func (NoopEvents) NonceInvalidation(common.Address, common.Address, common.Address, uint64, uint64) {}

func (NoopEvents) UnorderedNonceInvalidation(common.Address, *uint256.Int, *uint256.Int) {}
