package permit2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/HarukiKondo/permit2/storage"
)

// Field widths of the packed allowance word: amount occupies bits 0..159,
// expiration bits 160..207, nonce bits 208..255.
const (
	allowanceKeyPrefix = 'a'
	maxUint48          = uint64(1)<<48 - 1
)

// MaxAllowanceAmount is the 160-bit sentinel meaning "unlimited". An
// unlimited amount is sticky: spends never decrement it.
var MaxAllowanceAmount = func() *uint256.Int {
	max := new(uint256.Int).Lsh(uint256.NewInt(1), 160)
	return max.SubUint64(max, 1)
}()

// Record is one (owner, token, spender) allowance: amount bounded to 160
// bits, expiration and nonce to 48. A zero Record is the implicit state of
// every never-written key.
type Record struct {
	Amount     *uint256.Int `json:"amount"`
	Expiration uint64       `json:"expiration"`
	Nonce      uint64       `json:"nonce"`
}

// NewRecord builds a width-checked Record.
func NewRecord(amount *uint256.Int, expiration, nonce uint64) (Record, error) {
	if amount == nil {
		amount = new(uint256.Int)
	}
	if amount.BitLen() > 160 {
		return Record{}, errDetail(ErrInvalidAmount, "amount exceeds 160 bits")
	}
	if expiration > maxUint48 {
		return Record{}, errDetail(ErrInvalidExpiration, "expiration exceeds 48 bits")
	}
	if nonce > maxUint48 {
		return Record{}, errDetail(ErrInvalidNonce, "nonce exceeds 48 bits")
	}
	return Record{Amount: new(uint256.Int).Set(amount), Expiration: expiration, Nonce: nonce}, nil
}

// Unlimited reports whether the record's amount is the unlimited sentinel.
func (r Record) Unlimited() bool {
	return r.Amount != nil && r.Amount.Eq(MaxAllowanceAmount)
}

// Pack lays the record out as one 32-byte word.
func (r Record) Pack() [32]byte {
	w := new(uint256.Int)
	if r.Amount != nil {
		w.Set(r.Amount)
	}
	packed := new(uint256.Int).Lsh(uint256.NewInt(r.Nonce), 208)
	packed.Or(packed, new(uint256.Int).Lsh(uint256.NewInt(r.Expiration), 160))
	packed.Or(packed, w)
	return packed.Bytes32()
}

// unpackRecord reverses Pack. A nil or empty word is the zero record.
func unpackRecord(b []byte) Record {
	if len(b) == 0 {
		return Record{Amount: new(uint256.Int)}
	}
	w := new(uint256.Int).SetBytes(b)

	mask160 := new(uint256.Int).Lsh(uint256.NewInt(1), 160)
	mask160.SubUint64(mask160, 1)
	amount := new(uint256.Int).And(w, mask160)

	shifted := new(uint256.Int).Rsh(w, 160)
	expiration := shifted.Uint64() & maxUint48
	nonce := new(uint256.Int).Rsh(w, 208).Uint64()

	return Record{Amount: amount, Expiration: expiration, Nonce: nonce}
}

// allowanceStore keeps one packed word per (owner, token, spender). It does
// not lock; the core serializes all access.
type allowanceStore struct {
	kv storage.KV
}

func allowanceKey(owner, token, spender common.Address) []byte {
	key := make([]byte, 0, 1+3*common.AddressLength)
	key = append(key, allowanceKeyPrefix)
	key = append(key, owner.Bytes()...)
	key = append(key, token.Bytes()...)
	key = append(key, spender.Bytes()...)
	return key
}

func (s *allowanceStore) get(owner, token, spender common.Address) (Record, error) {
	b, err := s.kv.Get(allowanceKey(owner, token, spender))
	if err != nil {
		return Record{}, err
	}
	return unpackRecord(b), nil
}

func (s *allowanceStore) put(owner, token, spender common.Address, rec Record) error {
	packed := rec.Pack()
	return s.kv.Put(allowanceKey(owner, token, spender), packed[:])
}

// set overwrites amount and expiration and advances the nonce by exactly
// one. Dirty writes are allowed: the prior contents are irrelevant.
func (s *allowanceStore) set(owner, token, spender common.Address, amount *uint256.Int, expiration uint64) (Record, error) {
	prior, err := s.get(owner, token, spender)
	if err != nil {
		return Record{}, err
	}
	if prior.Nonce == maxUint48 {
		return Record{}, errDetail(ErrInvalidNonce, "record nonce space exhausted")
	}
	rec, err := NewRecord(amount, expiration, prior.Nonce+1)
	if err != nil {
		return Record{}, err
	}
	return rec, s.put(owner, token, spender, rec)
}

// lockdown zeroes the amount and only the amount.
func (s *allowanceStore) lockdown(owner, token, spender common.Address) error {
	rec, err := s.get(owner, token, spender)
	if err != nil {
		return err
	}
	rec.Amount = new(uint256.Int)
	return s.put(owner, token, spender, rec)
}

// spend validates expiration and amount, then decrements unless the amount
// is unlimited. It returns the prior record so a batched caller can restore
// it if a sibling entry fails. The nonce does not move on spend.
func (s *allowanceStore) spend(owner, token, spender common.Address, requested *uint256.Int, now uint64) (Record, error) {
	prior, err := s.get(owner, token, spender)
	if err != nil {
		return Record{}, err
	}
	if prior.Expiration != 0 && prior.Expiration < now {
		return Record{}, errDetail(ErrAllowanceExpired, "expired at %d, now %d", prior.Expiration, now)
	}
	if prior.Unlimited() {
		return prior, nil
	}
	if requested.Gt(prior.Amount) {
		return Record{}, errDetail(ErrInsufficientAllowance, "requested %s, remaining %s", requested, prior.Amount)
	}

	next := prior
	next.Amount = new(uint256.Int).Sub(prior.Amount, requested)
	if err := s.put(owner, token, spender, next); err != nil {
		return Record{}, err
	}
	return prior, nil
}
