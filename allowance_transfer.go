package permit2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// maxOrderedNonceJump bounds InvalidateOrderedNonces so a typo cannot burn
// the record's whole nonce space.
const maxOrderedNonceJump = uint64(1) << 16

// Approve sets the (owner, token, spender) allowance directly. The owner
// argument is the authenticated caller; no signature is involved. The
// record's nonce advances by one like any other state-changing set.
func (c *Core) Approve(owner, token, spender common.Address, amount *uint256.Int, expiration uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.allowances.set(owner, token, spender, amount, expiration); err != nil {
		return err
	}
	c.events.Approval(owner, token, spender, amount, expiration)
	return nil
}

// Permit sets one allowance record from a signed PermitSingle. The permit's
// ordered nonce must equal the record's stored nonce exactly; anything else
// is a stale or replayed message.
func (c *Core) Permit(owner common.Address, permit PermitSingle, signature []byte) error {
	if c.clock.Now() > permit.SigDeadline {
		return errDetail(ErrSignatureExpired, "deadline %d", permit.SigDeadline)
	}
	digest := c.hasher.PermitSingleDigest(permit)
	if err := verifySignature(digest, signature, owner, c.cv); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyPermitDetails(owner, permit.Spender, permit.Details)
}

// PermitBatch sets several allowance records from one signed PermitBatch.
// All-or-nothing: any entry failing its nonce check or width validation
// restores every record the call already touched.
func (c *Core) PermitBatch(owner common.Address, permit PermitBatch, signature []byte) error {
	if c.clock.Now() > permit.SigDeadline {
		return errDetail(ErrSignatureExpired, "deadline %d", permit.SigDeadline)
	}
	digest := c.hasher.PermitBatchDigest(permit)
	if err := verifySignature(digest, signature, owner, c.cv); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	undo := newRecordUndo(&c.allowances)
	for _, details := range permit.Details {
		if err := undo.capture(owner, details.Token, permit.Spender); err != nil {
			undo.restore()
			return err
		}
		if err := c.applyPermitDetails(owner, permit.Spender, details); err != nil {
			undo.restore()
			return err
		}
	}
	return nil
}

// applyPermitDetails checks the ordered nonce and writes one record.
// Caller holds the lock.
func (c *Core) applyPermitDetails(owner, spender common.Address, details PermitDetails) error {
	rec, err := c.allowances.get(owner, details.Token, spender)
	if err != nil {
		return err
	}
	if details.Nonce != rec.Nonce {
		return errDetail(ErrInvalidNonce, "permit nonce %d, record nonce %d", details.Nonce, rec.Nonce)
	}
	next, err := c.allowances.set(owner, details.Token, spender, details.Amount, details.Expiration)
	if err != nil {
		return err
	}
	c.events.Permit(owner, details.Token, spender, next.Amount, next.Expiration, next.Nonce)
	return nil
}

// TransferFrom spends the caller's allowance and instructs the ledger to
// move amount of token from owner to to. Spend and move happen in one
// critical section; a ledger failure restores the record.
func (c *Core) TransferFrom(spender, owner, to common.Address, amount *uint256.Int, token common.Address) error {
	if amount == nil {
		amount = new(uint256.Int)
	}
	if amount.BitLen() > 160 {
		return errDetail(ErrInvalidAmount, "amount exceeds 160 bits")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prior, err := c.allowances.spend(owner, token, spender, amount, c.clock.Now())
	if err != nil {
		return err
	}
	if err := c.ledger.MoveFunds(token, owner, to, amount); err != nil {
		if putErr := c.allowances.put(owner, token, spender, prior); putErr != nil {
			return putErr
		}
		return errDetail(ErrTransferFailed, "%v", err)
	}
	return nil
}

// BatchTransferFrom applies several allowance transfers. Every entry is
// validated and spent before the first ledger move, so a precondition
// failure anywhere leaves no trace. A ledger fault mid-batch restores only
// the records of entries whose move has not happened; entries already moved
// keep their spends, so the batch can never move more than was granted.
func (c *Core) BatchTransferFrom(spender common.Address, transfers []AllowanceTransferDetails) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	undo := newRecordUndo(&c.allowances)
	for _, tr := range transfers {
		amount := tr.Amount
		if amount == nil {
			amount = new(uint256.Int)
		}
		if amount.BitLen() > 160 {
			undo.restore()
			return errDetail(ErrInvalidAmount, "amount exceeds 160 bits")
		}
		if err := undo.capture(tr.From, tr.Token, spender); err != nil {
			undo.restore()
			return err
		}
		if _, err := c.allowances.spend(tr.From, tr.Token, spender, amount, now); err != nil {
			undo.restore()
			return err
		}
	}

	for i, tr := range transfers {
		amount := tr.Amount
		if amount == nil {
			amount = new(uint256.Int)
		}
		if err := c.ledger.MoveFunds(tr.Token, tr.From, tr.To, amount); err != nil {
			undo.restoreFrom(i)
			return errDetail(ErrTransferFailed, "entry %d: %v", i, err)
		}
	}
	return nil
}

// Lockdown zeroes the amount of each listed (token, spender) pair, leaving
// expiration and nonce untouched. One event per pair.
func (c *Core) Lockdown(owner common.Address, pairs []TokenSpenderPair) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range pairs {
		if err := c.allowances.lockdown(owner, p.Token, p.Spender); err != nil {
			return err
		}
		c.events.Lockdown(owner, p.Token, p.Spender)
	}
	return nil
}

// InvalidateOrderedNonces jumps the record's ordered nonce forward to
// newNonce, cancelling any permit signed against a skipped nonce. The jump
// must move forward and by no more than 2^16.
func (c *Core) InvalidateOrderedNonces(owner, token, spender common.Address, newNonce uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.allowances.get(owner, token, spender)
	if err != nil {
		return err
	}
	if newNonce <= rec.Nonce {
		return errDetail(ErrInvalidNonce, "new nonce %d not after %d", newNonce, rec.Nonce)
	}
	if newNonce-rec.Nonce > maxOrderedNonceJump {
		return errDetail(ErrExcessiveInvalidation, "jump of %d", newNonce-rec.Nonce)
	}
	oldNonce := rec.Nonce
	next, err := NewRecord(rec.Amount, rec.Expiration, newNonce)
	if err != nil {
		return err
	}
	if err := c.allowances.put(owner, token, spender, next); err != nil {
		return err
	}
	c.events.NonceInvalidation(owner, token, spender, newNonce, oldNonce)
	return nil
}

// recordUndo snapshots allowance records before mutation so batched calls
// can restore them. Snapshots align one to one with batch entries; restore
// replays in reverse, so a key captured twice lands back on its first
// captured state. restoreFrom(i) unwinds only entries i onward, leaving the
// spends of earlier entries in place.
type recordUndo struct {
	store   *allowanceStore
	entries []recordSnapshot
}

type recordSnapshot struct {
	owner, token, spender common.Address
	rec                   Record
}

func newRecordUndo(store *allowanceStore) *recordUndo {
	return &recordUndo{store: store}
}

func (u *recordUndo) capture(owner, token, spender common.Address) error {
	rec, err := u.store.get(owner, token, spender)
	if err != nil {
		return err
	}
	u.entries = append(u.entries, recordSnapshot{owner: owner, token: token, spender: spender, rec: rec})
	return nil
}

func (u *recordUndo) restore() {
	u.restoreFrom(0)
}

func (u *recordUndo) restoreFrom(from int) {
	for i := len(u.entries) - 1; i >= from; i-- {
		e := u.entries[i]
		// Best effort: the substrate that just served reads is not
		// expected to fail writes of the same keys.
		_ = u.store.put(e.owner, e.token, e.spender, e.rec)
	}
}
