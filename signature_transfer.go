package permit2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/HarukiKondo/permit2/eip712"
)

// PermitTransferFrom executes a one-time signed transfer. The spender is
// the authenticated caller the owner signed the permit for; details names
// where the funds go and how much of the signed ceiling to move.
func (c *Core) PermitTransferFrom(spender common.Address, permit PermitTransferFrom, details SignatureTransferDetails, owner common.Address, signature []byte) error {
	digest := c.hasher.TransferDigest(permit, spender)
	return c.signatureTransfer(permit, []SignatureTransferDetails{details}, owner, signature, digest)
}

// PermitWitnessTransferFrom is PermitTransferFrom with caller-defined
// witness data bound into the signed digest. The stub completes the open
// witness type string; a malformed stub is rejected before hashing, and a
// stub or witness differing from what the owner signed fails verification.
func (c *Core) PermitWitnessTransferFrom(spender common.Address, permit PermitTransferFrom, details SignatureTransferDetails, owner common.Address, witness common.Hash, witnessTypeStub string, signature []byte) error {
	if !ValidWitnessTypeStub(witnessTypeStub) {
		return errDetail(ErrInvalidTypehashStub, "%q", witnessTypeStub)
	}
	if witness == (common.Hash{}) {
		return errDetail(ErrInvalidWitness, "zero witness hash")
	}
	digest := c.hasher.WitnessTransferDigest(permit, spender, witness, witnessTypeStub)
	return c.signatureTransfer(permit, []SignatureTransferDetails{details}, owner, signature, digest)
}

// PermitBatchTransferFrom executes a batch of one-time signed transfers
// sharing a single nonce and deadline. The details slice must pair up with
// the permitted entries one to one.
func (c *Core) PermitBatchTransferFrom(spender common.Address, permit PermitBatchTransferFrom, details []SignatureTransferDetails, owner common.Address, signature []byte) error {
	digest := c.hasher.BatchTransferDigest(permit, spender)
	return c.batchSignatureTransfer(permit, details, owner, signature, digest)
}

// PermitBatchWitnessTransferFrom is the witness-extended batch variant.
func (c *Core) PermitBatchWitnessTransferFrom(spender common.Address, permit PermitBatchTransferFrom, details []SignatureTransferDetails, owner common.Address, witness common.Hash, witnessTypeStub string, signature []byte) error {
	if !ValidWitnessTypeStub(witnessTypeStub) {
		return errDetail(ErrInvalidTypehashStub, "%q", witnessTypeStub)
	}
	if witness == (common.Hash{}) {
		return errDetail(ErrInvalidWitness, "zero witness hash")
	}
	digest := c.hasher.BatchWitnessTransferDigest(permit, spender, witness, witnessTypeStub)
	return c.batchSignatureTransfer(permit, details, owner, signature, digest)
}

// signatureTransfer validates a single-entry permit and executes it.
func (c *Core) signatureTransfer(permit PermitTransferFrom, details []SignatureTransferDetails, owner common.Address, signature []byte, digest common.Hash) error {
	batch := PermitBatchTransferFrom{
		Permitted: []TokenPermissions{permit.Permitted},
		Nonce:     permit.Nonce,
		Deadline:  permit.Deadline,
	}
	return c.executeSignatureTransfer(batch, details, owner, signature, digest)
}

func (c *Core) batchSignatureTransfer(permit PermitBatchTransferFrom, details []SignatureTransferDetails, owner common.Address, signature []byte, digest common.Hash) error {
	if len(details) != len(permit.Permitted) {
		return errDetail(ErrLengthMismatch, "%d transfer details for %d permitted entries", len(details), len(permit.Permitted))
	}
	return c.executeSignatureTransfer(permit, details, owner, signature, digest)
}

// executeSignatureTransfer runs the shared validation pipeline: deadline,
// signature, nonce, per-entry amount ceilings, then the nonce mark and the
// ledger moves. The nonce word is restored only if the ledger fails before
// any funds have moved; once an entry's move has completed the nonce stays
// burned, so resubmitting the permit cannot re-move those entries.
func (c *Core) executeSignatureTransfer(permit PermitBatchTransferFrom, details []SignatureTransferDetails, owner common.Address, signature []byte, digest common.Hash) error {
	if c.clock.Now() > permit.Deadline {
		return errDetail(ErrSignatureExpired, "deadline %d", permit.Deadline)
	}
	if err := verifySignature(digest, signature, owner, c.cv); err != nil {
		return err
	}
	nonce := permit.Nonce
	if nonce == nil {
		nonce = new(uint256.Int)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	used, err := c.nonces.isUsed(owner, nonce)
	if err != nil {
		return err
	}
	if used {
		return errDetail(ErrNonceAlreadyUsed, "nonce %s", nonce)
	}

	for i, d := range details {
		requested := d.RequestedAmount
		if requested == nil {
			requested = new(uint256.Int)
		}
		permitted := permit.Permitted[i].Amount
		if permitted == nil {
			permitted = new(uint256.Int)
		}
		if requested.Gt(permitted) {
			return errDetail(ErrInvalidAmount, "entry %d: requested %s exceeds permitted %s", i, requested, permitted)
		}
	}

	wordPos, priorWord, err := c.nonces.use(owner, nonce)
	if err != nil {
		return err
	}

	moved := false
	for i, d := range details {
		requested := d.RequestedAmount
		if requested == nil || requested.IsZero() {
			continue
		}
		if err := c.ledger.MoveFunds(permit.Permitted[i].Token, owner, d.To, requested); err != nil {
			if !moved {
				if putErr := c.nonces.putWord(owner, wordPos, priorWord); putErr != nil {
					return putErr
				}
			}
			return errDetail(ErrTransferFailed, "entry %d: %v", i, err)
		}
		moved = true
	}
	return nil
}

// InvalidateUnorderedNonces ORs mask into the owner's bitmap word at
// wordPos. Bits already set are ignored; the event reports exactly the
// bits that flipped. Masks are word-width by construction, which pins the
// behavior for indices at and above the word boundary: they simply address
// the next word.
func (c *Core) InvalidateUnorderedNonces(owner common.Address, wordPos, mask *uint256.Int) error {
	if mask == nil {
		mask = new(uint256.Int)
	}
	if wordPos == nil {
		wordPos = new(uint256.Int)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	flipped, err := c.nonces.invalidate(owner, wordPos, mask)
	if err != nil {
		return err
	}
	c.events.UnorderedNonceInvalidation(owner, wordPos, flipped)
	return nil
}

// IsNonceUsed reports whether an unordered nonce has been consumed.
func (c *Core) IsNonceUsed(owner common.Address, nonce *uint256.Int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces.isUsed(owner, nonce)
}

// ValidWitnessTypeStub re-exports the stub syntax check for callers
// assembling witness permits.
func ValidWitnessTypeStub(stub string) bool {
	return eip712.ValidWitnessTypeStub(stub)
}
