package permit2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/HarukiKondo/permit2/eip712"
)

// Signed message types are defined next to their hashing rules in the
// eip712 package; aliases keep the caller-facing surface in one import.
type (
	TokenPermissions        = eip712.TokenPermissions
	PermitTransferFrom      = eip712.PermitTransferFrom
	PermitBatchTransferFrom = eip712.PermitBatchTransferFrom
	PermitDetails           = eip712.PermitDetails
	PermitSingle            = eip712.PermitSingle
	PermitBatch             = eip712.PermitBatch
)

// SignatureTransferDetails names the recipient and amount a caller asks to
// move under a one-time transfer permit. RequestedAmount may be anything up
// to the signed ceiling; partial spend is the common case.
type SignatureTransferDetails struct {
	To              common.Address `json:"to"`
	RequestedAmount *uint256.Int   `json:"requestedAmount"`
}

// AllowanceTransferDetails is one entry of a batched allowance transfer.
type AllowanceTransferDetails struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
	Token  common.Address `json:"token"`
}

// TokenSpenderPair identifies one allowance record of an owner, used by
// lockdown.
type TokenSpenderPair struct {
	Token   common.Address `json:"token"`
	Spender common.Address `json:"spender"`
}
