package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// apitypes bridge for wallet integrations. Wallets that sign through
// eth_signTypedData_v4 consume these structures; the digests they produce
// match the Hasher for the same chain and verifying contract.

// TypedDataDomain returns the signing domain in apitypes form. The protocol
// domain has no version field.
func TypedDataDomain(chainID *big.Int, verifyingContract string) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              "Permit2",
		ChainId:           (*math.HexOrDecimal256)(chainID),
		VerifyingContract: verifyingContract,
	}
}

// PermitSingleTypes returns the type definitions for a single allowance
// permit message.
func PermitSingleTypes() apitypes.Types {
	return apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		"PermitSingle": {
			{Name: "details", Type: "PermitDetails"},
			{Name: "spender", Type: "address"},
			{Name: "sigDeadline", Type: "uint256"},
		},
		"PermitDetails": {
			{Name: "token", Type: "address"},
			{Name: "amount", Type: "uint160"},
			{Name: "expiration", Type: "uint48"},
			{Name: "nonce", Type: "uint48"},
		},
	}
}

// PermitTransferFromTypes returns the type definitions for a one-time
// transfer permit message.
func PermitTransferFromTypes() apitypes.Types {
	return apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		"PermitTransferFrom": {
			{Name: "permitted", Type: "TokenPermissions"},
			{Name: "spender", Type: "address"},
			{Name: "nonce", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
		},
		"TokenPermissions": {
			{Name: "token", Type: "address"},
			{Name: "amount", Type: "uint256"},
		},
	}
}

// PermitSingleMessage renders a PermitSingle as an apitypes message map.
func PermitSingleMessage(p PermitSingle) map[string]interface{} {
	return map[string]interface{}{
		"details": map[string]interface{}{
			"token":      p.Details.Token.Hex(),
			"amount":     p.Details.Amount.ToBig(),
			"expiration": new(big.Int).SetUint64(p.Details.Expiration),
			"nonce":      new(big.Int).SetUint64(p.Details.Nonce),
		},
		"spender":     p.Spender.Hex(),
		"sigDeadline": new(big.Int).SetUint64(p.SigDeadline),
	}
}

// PermitTransferFromMessage renders a PermitTransferFrom as an apitypes
// message map. The spender is the caller the owner authorizes to submit it.
func PermitTransferFromMessage(p PermitTransferFrom, spender string) map[string]interface{} {
	return map[string]interface{}{
		"permitted": map[string]interface{}{
			"token":  p.Permitted.Token.Hex(),
			"amount": p.Permitted.Amount.ToBig(),
		},
		"spender":  spender,
		"nonce":    p.Nonce.ToBig(),
		"deadline": new(big.Int).SetUint64(p.Deadline),
	}
}
