// Package eip712 builds the domain-separated structured-data digests for
// every authorization message the core accepts. Digests are computed as
// keccak256(0x19 0x01 || domainSeparator || structHash), with per-message
// typehashes fixed at init from their canonical type strings.
package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ChainContext reports the chain identity the domain separator binds to.
// The hasher re-reads it on every digest so a chain split (changed ID)
// transparently invalidates signatures from the old context.
type ChainContext interface {
	ChainID() *big.Int
}

type staticChain struct {
	id *big.Int
}

func (s staticChain) ChainID() *big.Int { return s.id }

// StaticChain returns a ChainContext with a fixed chain ID.
func StaticChain(id *big.Int) ChainContext {
	return staticChain{id: new(big.Int).Set(id)}
}

// TokenPermissions is the signed (token, amount) pair of a one-time
// transfer permit. Amount is the ceiling the signature authorizes.
type TokenPermissions struct {
	Token  common.Address `json:"token"`
	Amount *uint256.Int   `json:"amount"`
}

// PermitTransferFrom is a one-time signed transfer authorization consuming
// an unordered nonce from the owner's bitmap.
type PermitTransferFrom struct {
	Permitted TokenPermissions `json:"permitted"`
	Nonce     *uint256.Int     `json:"nonce"`
	Deadline  uint64           `json:"deadline"`
}

// PermitBatchTransferFrom authorizes transfers of several tokens under a
// single shared nonce and deadline.
type PermitBatchTransferFrom struct {
	Permitted []TokenPermissions `json:"permitted"`
	Nonce     *uint256.Int       `json:"nonce"`
	Deadline  uint64             `json:"deadline"`
}

// PermitDetails carries the allowance fields a PermitSingle or PermitBatch
// message sets: amount is at most 160 bits, expiration and nonce at most
// 48 bits, matching the packed allowance record.
type PermitDetails struct {
	Token      common.Address `json:"token"`
	Amount     *uint256.Int   `json:"amount"`
	Expiration uint64         `json:"expiration"`
	Nonce      uint64         `json:"nonce"`
}

// PermitSingle establishes one allowance record via signature. Nonce
// ordering against the stored record is enforced by the engine, not here.
type PermitSingle struct {
	Details     PermitDetails  `json:"details"`
	Spender     common.Address `json:"spender"`
	SigDeadline uint64         `json:"sigDeadline"`
}

// PermitBatch establishes several allowance records under one signature
// deadline. Each entry carries its own ordered nonce.
type PermitBatch struct {
	Details     []PermitDetails `json:"details"`
	Spender     common.Address  `json:"spender"`
	SigDeadline uint64          `json:"sigDeadline"`
}
