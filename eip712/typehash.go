package eip712

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Canonical type strings. The nested struct definition is appended to each
// top-level definition, and a batch variant embeds the singular element
// descriptor as its nested type. Witness variants are left open: the
// caller-supplied witness type stub completes the parameter list, so their
// typehashes cannot be precomputed.
const (
	domainTypeString = "EIP712Domain(string name,uint256 chainId,address verifyingContract)"

	permitDetailsTypeString    = "PermitDetails(address token,uint160 amount,uint48 expiration,uint48 nonce)"
	tokenPermissionsTypeString = "TokenPermissions(address token,uint256 amount)"

	permitSingleTypeString = "PermitSingle(PermitDetails details,address spender,uint256 sigDeadline)" + permitDetailsTypeString
	permitBatchTypeString  = "PermitBatch(PermitDetails[] details,address spender,uint256 sigDeadline)" + permitDetailsTypeString

	permitTransferFromTypeString      = "PermitTransferFrom(TokenPermissions permitted,address spender,uint256 nonce,uint256 deadline)" + tokenPermissionsTypeString
	permitBatchTransferFromTypeString = "PermitBatchTransferFrom(TokenPermissions[] permitted,address spender,uint256 nonce,uint256 deadline)" + tokenPermissionsTypeString

	witnessTransferTypeStringPrefix      = "PermitWitnessTransferFrom(TokenPermissions permitted,address spender,uint256 nonce,uint256 deadline,"
	witnessBatchTransferTypeStringPrefix = "PermitBatchWitnessTransferFrom(TokenPermissions[] permitted,address spender,uint256 nonce,uint256 deadline,"
)

var (
	domainTypehash = crypto.Keccak256Hash([]byte(domainTypeString))
	hashedName     = crypto.Keccak256Hash([]byte("Permit2"))

	permitDetailsTypehash    = crypto.Keccak256Hash([]byte(permitDetailsTypeString))
	tokenPermissionsTypehash = crypto.Keccak256Hash([]byte(tokenPermissionsTypeString))

	permitSingleTypehash = crypto.Keccak256Hash([]byte(permitSingleTypeString))
	permitBatchTypehash  = crypto.Keccak256Hash([]byte(permitBatchTypeString))

	permitTransferFromTypehash      = crypto.Keccak256Hash([]byte(permitTransferFromTypeString))
	permitBatchTransferFromTypehash = crypto.Keccak256Hash([]byte(permitBatchTransferFromTypeString))
)

// ValidWitnessTypeStub reports whether a caller-supplied witness type stub
// is syntactically usable: it must name the witness parameter, close the
// top-level parameter list, and carry at least one type definition. A stub
// that is well-formed but different from what the owner signed changes the
// digest and is caught by signature verification instead.
func ValidWitnessTypeStub(stub string) bool {
	if stub == "" {
		return false
	}
	if !strings.Contains(stub, " witness)") {
		return false
	}
	return strings.HasSuffix(stub, ")")
}

// witnessTransferTypehash completes the open witness type string with the
// caller's stub and hashes it.
func witnessTransferTypehash(stub string) common.Hash {
	return crypto.Keccak256Hash([]byte(witnessTransferTypeStringPrefix + stub))
}

func witnessBatchTransferTypehash(stub string) common.Hash {
	return crypto.Keccak256Hash([]byte(witnessBatchTransferTypeStringPrefix + stub))
}
