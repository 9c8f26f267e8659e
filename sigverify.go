package permit2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// secp256k1HalfN bounds the accepted s values; signatures with s above the
// half order are malleable duplicates and rejected outright.
var secp256k1HalfN = new(big.Int).Rsh(crypto.S256().Params().N, 1)

// verifySignature checks that signature authorizes digest on behalf of
// claimedSigner. Two wire encodings are accepted: the standard 65-byte
// (r, s, v) form and the compact 64-byte form where the top bit of s
// carries the recovery parity. Contract-style signers are dispatched to the
// injected ContractVerifier and never to key recovery.
func verifySignature(digest common.Hash, signature []byte, claimedSigner common.Address, cv ContractVerifier) error {
	if cv.HasCode(claimedSigner) {
		if !cv.IsValidSignature(claimedSigner, digest, signature) {
			return errDetail(ErrInvalidContractSignature, "signer %s", claimedSigner)
		}
		return nil
	}

	var r, s [32]byte
	var v byte
	switch len(signature) {
	case 65:
		copy(r[:], signature[:32])
		copy(s[:], signature[32:64])
		v = signature[64]
	case 64:
		// Compact encoding: s carries the recovery parity in its top bit.
		copy(r[:], signature[:32])
		copy(s[:], signature[32:64])
		v = 27 + s[0]>>7
		s[0] &= 0x7f
	default:
		return errDetail(ErrInvalidSignatureLength, "%d bytes", len(signature))
	}

	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return errDetail(ErrInvalidSignature, "recovery id %d", v)
	}

	sBig := new(big.Int).SetBytes(s[:])
	if sBig.Sign() == 0 || sBig.Cmp(secp256k1HalfN) > 0 {
		return errDetail(ErrInvalidSignature, "s out of range")
	}
	if new(big.Int).SetBytes(r[:]).Sign() == 0 {
		return errDetail(ErrInvalidSignature, "zero r")
	}

	normalized := make([]byte, 65)
	copy(normalized[:32], r[:])
	copy(normalized[32:64], s[:])
	normalized[64] = v

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return errDetail(ErrInvalidSignature, "recovery failed: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != claimedSigner {
		return errDetail(ErrInvalidSigner, "recovered %s, claimed %s", crypto.PubkeyToAddress(*pub), claimedSigner)
	}
	return nil
}
