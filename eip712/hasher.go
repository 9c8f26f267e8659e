package eip712

import (
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Hasher produces digests bound to one verifying-contract identity and the
// chain reported by its ChainContext. The domain separator is cached and
// recomputed only when the reported chain ID changes.
type Hasher struct {
	chain    ChainContext
	contract common.Address

	mu            sync.Mutex
	cachedChainID *big.Int
	cachedDomain  common.Hash
}

// NewHasher creates a Hasher for the given chain context and
// verifying-contract address.
func NewHasher(chain ChainContext, contract common.Address) *Hasher {
	return &Hasher{chain: chain, contract: contract}
}

// DomainSeparator returns the current domain separator, recomputing it if
// the chain context reports a different chain ID than last observed.
func (h *Hasher) DomainSeparator() common.Hash {
	id := h.chain.ChainID()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cachedChainID != nil && h.cachedChainID.Cmp(id) == 0 {
		return h.cachedDomain
	}

	var enc []byte
	enc = append(enc, domainTypehash.Bytes()...)
	enc = append(enc, hashedName.Bytes()...)
	enc = append(enc, common.BigToHash(id).Bytes()...)
	enc = append(enc, addressWord(h.contract)...)

	h.cachedChainID = new(big.Int).Set(id)
	h.cachedDomain = crypto.Keccak256Hash(enc)
	return h.cachedDomain
}

// digest assembles keccak256(0x19 0x01 || domainSeparator || structHash).
func (h *Hasher) digest(structHash common.Hash) common.Hash {
	sep := h.DomainSeparator()
	enc := make([]byte, 0, 66)
	enc = append(enc, 0x19, 0x01)
	enc = append(enc, sep.Bytes()...)
	enc = append(enc, structHash.Bytes()...)
	return crypto.Keccak256Hash(enc)
}

// PermitSingleDigest hashes a single allowance permit.
func (h *Hasher) PermitSingleDigest(p PermitSingle) common.Hash {
	var enc []byte
	enc = append(enc, permitSingleTypehash.Bytes()...)
	enc = append(enc, hashPermitDetails(p.Details).Bytes()...)
	enc = append(enc, addressWord(p.Spender)...)
	enc = append(enc, uint64Word(p.SigDeadline)...)
	return h.digest(crypto.Keccak256Hash(enc))
}

// PermitBatchDigest hashes a batch allowance permit. An empty details slice
// is well-defined: the array hash is the keccak of zero bytes.
func (h *Hasher) PermitBatchDigest(p PermitBatch) common.Hash {
	var detailHashes []byte
	for _, d := range p.Details {
		detailHashes = append(detailHashes, hashPermitDetails(d).Bytes()...)
	}

	var enc []byte
	enc = append(enc, permitBatchTypehash.Bytes()...)
	enc = append(enc, crypto.Keccak256(detailHashes)...)
	enc = append(enc, addressWord(p.Spender)...)
	enc = append(enc, uint64Word(p.SigDeadline)...)
	return h.digest(crypto.Keccak256Hash(enc))
}

// TransferDigest hashes a one-time transfer permit. The spender is bound
// into the struct hash so a permit signed for one caller cannot be
// submitted by another.
func (h *Hasher) TransferDigest(p PermitTransferFrom, spender common.Address) common.Hash {
	return h.digest(h.transferStructHash(permitTransferFromTypehash, p, spender))
}

// WitnessTransferDigest hashes a one-time transfer permit with a witness
// payload bound in. The stub must already have passed ValidWitnessTypeStub.
func (h *Hasher) WitnessTransferDigest(p PermitTransferFrom, spender common.Address, witness common.Hash, stub string) common.Hash {
	var enc []byte
	enc = append(enc, witnessTransferTypehash(stub).Bytes()...)
	enc = append(enc, hashTokenPermissions(p.Permitted).Bytes()...)
	enc = append(enc, addressWord(spender)...)
	enc = append(enc, uint256Word(p.Nonce)...)
	enc = append(enc, uint64Word(p.Deadline)...)
	enc = append(enc, witness.Bytes()...)
	return h.digest(crypto.Keccak256Hash(enc))
}

// BatchTransferDigest hashes a batch transfer permit sharing one nonce and
// deadline across all permitted entries.
func (h *Hasher) BatchTransferDigest(p PermitBatchTransferFrom, spender common.Address) common.Hash {
	return h.digest(h.batchTransferStructHash(permitBatchTransferFromTypehash, p, spender, nil))
}

// BatchWitnessTransferDigest hashes a batch transfer permit with a witness.
func (h *Hasher) BatchWitnessTransferDigest(p PermitBatchTransferFrom, spender common.Address, witness common.Hash, stub string) common.Hash {
	return h.digest(h.batchTransferStructHash(witnessBatchTransferTypehash(stub), p, spender, &witness))
}

func (h *Hasher) transferStructHash(typehash common.Hash, p PermitTransferFrom, spender common.Address) common.Hash {
	var enc []byte
	enc = append(enc, typehash.Bytes()...)
	enc = append(enc, hashTokenPermissions(p.Permitted).Bytes()...)
	enc = append(enc, addressWord(spender)...)
	enc = append(enc, uint256Word(p.Nonce)...)
	enc = append(enc, uint64Word(p.Deadline)...)
	return crypto.Keccak256Hash(enc)
}

func (h *Hasher) batchTransferStructHash(typehash common.Hash, p PermitBatchTransferFrom, spender common.Address, witness *common.Hash) common.Hash {
	var permittedHashes []byte
	for _, tp := range p.Permitted {
		permittedHashes = append(permittedHashes, hashTokenPermissions(tp).Bytes()...)
	}

	var enc []byte
	enc = append(enc, typehash.Bytes()...)
	enc = append(enc, crypto.Keccak256(permittedHashes)...)
	enc = append(enc, addressWord(spender)...)
	enc = append(enc, uint256Word(p.Nonce)...)
	enc = append(enc, uint64Word(p.Deadline)...)
	if witness != nil {
		enc = append(enc, witness.Bytes()...)
	}
	return crypto.Keccak256Hash(enc)
}

func hashPermitDetails(d PermitDetails) common.Hash {
	var enc []byte
	enc = append(enc, permitDetailsTypehash.Bytes()...)
	enc = append(enc, addressWord(d.Token)...)
	enc = append(enc, uint256Word(d.Amount)...)
	enc = append(enc, uint64Word(d.Expiration)...)
	enc = append(enc, uint64Word(d.Nonce)...)
	return crypto.Keccak256Hash(enc)
}

func hashTokenPermissions(tp TokenPermissions) common.Hash {
	var enc []byte
	enc = append(enc, tokenPermissionsTypehash.Bytes()...)
	enc = append(enc, addressWord(tp.Token)...)
	enc = append(enc, uint256Word(tp.Amount)...)
	return crypto.Keccak256Hash(enc)
}

// ABI word encoders: every field is left-padded to 32 bytes.

func addressWord(a common.Address) []byte {
	var w [32]byte
	copy(w[12:], a.Bytes())
	return w[:]
}

func uint64Word(v uint64) []byte {
	var w [32]byte
	binary.BigEndian.PutUint64(w[24:], v)
	return w[:]
}

func uint256Word(v *uint256.Int) []byte {
	if v == nil {
		v = new(uint256.Int)
	}
	w := v.Bytes32()
	return w[:]
}
