package permit2

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Ledger is the value-transfer capability the core consumes. The core never
// reads or mutates balances directly; every successful authorization ends
// in exactly one MoveFunds call per transfer entry.
type Ledger interface {
	// MoveFunds moves amount of token from one account to another. A
	// non-nil error aborts the authorization that requested it.
	MoveFunds(token, from, to common.Address, amount *uint256.Int) error
}

// Clock is the single time source for every expiration comparison.
type Clock interface {
	Now() uint64
}

// ContractVerifier decides signature validity for contract-style signers.
// HasCode selects the verification path: accounts with code are verified
// through IsValidSignature and never through key recovery, so a key-based
// forgery cannot be mistaken for a contract-approved signature.
type ContractVerifier interface {
	HasCode(signer common.Address) bool
	IsValidSignature(signer common.Address, digest common.Hash, signature []byte) bool
}

type systemClock struct{}

func (systemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// keyOnlyVerifier treats every signer as a plain key holder. It is the
// default when no contract verifier is injected.
type keyOnlyVerifier struct{}

func (keyOnlyVerifier) HasCode(common.Address) bool { return false }

func (keyOnlyVerifier) IsValidSignature(common.Address, common.Hash, []byte) bool { return false }
