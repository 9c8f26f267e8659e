package permit2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/HarukiKondo/permit2/storage"
)

const nonceKeyPrefix = 'n'

// nonceBitmap is the sparse set of consumed unordered nonces, one 256-bit
// word per (owner, wordPos). A nonce n lives at word n>>8, bit n&0xff; bits
// are only ever set, never cleared. The core serializes all access.
type nonceBitmap struct {
	kv storage.KV
}

func nonceKey(owner common.Address, wordPos *uint256.Int) []byte {
	key := make([]byte, 0, 1+common.AddressLength+32)
	key = append(key, nonceKeyPrefix)
	key = append(key, owner.Bytes()...)
	w := wordPos.Bytes32()
	key = append(key, w[:]...)
	return key
}

func splitNonce(nonce *uint256.Int) (wordPos *uint256.Int, bit *uint256.Int) {
	wordPos = new(uint256.Int).Rsh(nonce, 8)
	bitPos := uint(nonce.Uint64() & 0xff)
	bit = new(uint256.Int).Lsh(uint256.NewInt(1), bitPos)
	return wordPos, bit
}

func (b *nonceBitmap) word(owner common.Address, wordPos *uint256.Int) (*uint256.Int, error) {
	raw, err := b.kv.Get(nonceKey(owner, wordPos))
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(raw), nil
}

func (b *nonceBitmap) putWord(owner common.Address, wordPos, word *uint256.Int) error {
	w := word.Bytes32()
	return b.kv.Put(nonceKey(owner, wordPos), w[:])
}

func (b *nonceBitmap) isUsed(owner common.Address, nonce *uint256.Int) (bool, error) {
	wordPos, bit := splitNonce(nonce)
	word, err := b.word(owner, wordPos)
	if err != nil {
		return false, err
	}
	return new(uint256.Int).And(word, bit).Sign() != 0, nil
}

// use consumes a single nonce, failing if its bit is already set. It
// returns the word's position and prior value so the caller can restore it
// if the operation it guards ultimately aborts.
func (b *nonceBitmap) use(owner common.Address, nonce *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	wordPos, bit := splitNonce(nonce)
	word, err := b.word(owner, wordPos)
	if err != nil {
		return nil, nil, err
	}
	if new(uint256.Int).And(word, bit).Sign() != 0 {
		return nil, nil, errDetail(ErrNonceAlreadyUsed, "nonce %s", nonce)
	}
	prior := new(uint256.Int).Set(word)
	if err := b.putWord(owner, wordPos, word.Or(word, bit)); err != nil {
		return nil, nil, err
	}
	return wordPos, prior, nil
}

// invalidate ORs mask into the stored word and returns the mask of bits
// that actually flipped. Re-setting bits is an idempotent no-op; the word
// is not rewritten when nothing flips.
func (b *nonceBitmap) invalidate(owner common.Address, wordPos, mask *uint256.Int) (*uint256.Int, error) {
	word, err := b.word(owner, wordPos)
	if err != nil {
		return nil, err
	}
	flipped := new(uint256.Int).And(mask, new(uint256.Int).Not(word))
	if flipped.Sign() == 0 {
		return flipped, nil
	}
	if err := b.putWord(owner, wordPos, word.Or(word, mask)); err != nil {
		return nil, err
	}
	return flipped, nil
}
