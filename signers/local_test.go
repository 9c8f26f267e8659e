package signers_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/HarukiKondo/permit2/signers"
)

func TestNewLocal(t *testing.T) {
	// Well-known anvil dev key.
	const key = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	s, err := signers.NewLocal(key)
	require.NoError(t, err)
	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", s.Address().Hex())

	t.Run("prefix is optional", func(t *testing.T) {
		s2, err := signers.NewLocal(key[2:])
		require.NoError(t, err)
		require.Equal(t, s.Address(), s2.Address())
	})

	t.Run("rejects malformed keys", func(t *testing.T) {
		_, err := signers.NewLocal("0xzz")
		require.Error(t, err)
	})
}

func TestSignDigest(t *testing.T) {
	s, err := signers.GenerateLocal()
	require.NoError(t, err)
	digest := crypto.Keccak256Hash([]byte("message"))

	sig, err := s.SignDigest(digest)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	require.Contains(t, []byte{27, 28}, sig[64])

	recovery := make([]byte, 65)
	copy(recovery, sig)
	recovery[64] -= 27
	pub, err := crypto.SigToPub(digest.Bytes(), recovery)
	require.NoError(t, err)
	require.Equal(t, s.Address(), crypto.PubkeyToAddress(*pub))
}

func TestSignDigestCompact(t *testing.T) {
	s, err := signers.GenerateLocal()
	require.NoError(t, err)
	digest := crypto.Keccak256Hash([]byte("message"))

	standard, err := s.SignDigest(digest)
	require.NoError(t, err)
	compact, err := s.SignDigestCompact(digest)
	require.NoError(t, err)
	require.Len(t, compact, 64)

	// r is shared; s differs only in the parity bit.
	require.Equal(t, standard[:32], compact[:32])
	sPart := make([]byte, 32)
	copy(sPart, compact[32:])
	if standard[64] == 28 {
		require.Equal(t, byte(0x80), sPart[0]&0x80)
	} else {
		require.Zero(t, sPart[0]&0x80)
	}
	sPart[0] &= 0x7f
	require.Equal(t, standard[32:64], sPart)
}
