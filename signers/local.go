// Package signers provides key-holder implementations for producing permit
// signatures. Signing is a client-side act; the authorization core itself
// only ever verifies.
package signers

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Local signs digests with an in-process ECDSA private key.
type Local struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewLocal creates a signer from a hex-encoded private key, with or
// without a 0x prefix.
func NewLocal(privateKeyHex string) (*Local, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Local{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// GenerateLocal creates a signer with a fresh random key.
func GenerateLocal() (*Local, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Local{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the signer's account address.
func (s *Local) Address() common.Address {
	return s.addr
}

// SignDigest produces a standard 65-byte (r, s, v) signature with
// v in {27, 28}.
func (s *Local) SignDigest(digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return nil, err
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// SignDigestCompact produces the 64-byte compact encoding, folding the
// recovery parity into the top bit of s.
func (s *Local) SignDigestCompact(digest common.Hash) ([]byte, error) {
	sig, err := s.SignDigest(digest)
	if err != nil {
		return nil, err
	}
	compact := make([]byte, 64)
	copy(compact, sig[:64])
	if sig[64] == 28 {
		compact[32] |= 0x80
	}
	return compact, nil
}
