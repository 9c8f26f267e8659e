package permit2

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/HarukiKondo/permit2/storage"
)

var (
	recOwner   = common.HexToAddress("0x5000000000000000000000000000000000000001")
	recToken   = common.HexToAddress("0x5000000000000000000000000000000000000002")
	recSpender = common.HexToAddress("0x5000000000000000000000000000000000000003")
)

func TestNewRecordWidthChecks(t *testing.T) {
	t.Run("accepts maximum widths", func(t *testing.T) {
		rec, err := NewRecord(MaxAllowanceAmount, maxUint48, maxUint48)
		require.NoError(t, err)
		require.True(t, rec.Unlimited())
	})

	t.Run("rejects amount above 160 bits", func(t *testing.T) {
		over := new(uint256.Int).AddUint64(MaxAllowanceAmount, 1)
		_, err := NewRecord(over, 0, 0)
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects expiration above 48 bits", func(t *testing.T) {
		_, err := NewRecord(uint256.NewInt(1), maxUint48+1, 0)
		require.ErrorIs(t, err, ErrInvalidExpiration)
	})

	t.Run("rejects nonce above 48 bits", func(t *testing.T) {
		_, err := NewRecord(uint256.NewInt(1), 0, maxUint48+1)
		require.ErrorIs(t, err, ErrInvalidNonce)
	})
}

func TestRecordPacking(t *testing.T) {
	rec, err := NewRecord(uint256.NewInt(123456), 1_700_003_600, 42)
	require.NoError(t, err)

	packed := rec.Pack()
	got := unpackRecord(packed[:])
	require.Equal(t, rec.Amount, got.Amount)
	require.Equal(t, rec.Expiration, got.Expiration)
	require.Equal(t, rec.Nonce, got.Nonce)

	t.Run("fields do not bleed at width boundaries", func(t *testing.T) {
		rec, err := NewRecord(MaxAllowanceAmount, maxUint48, maxUint48)
		require.NoError(t, err)
		packed := rec.Pack()
		got := unpackRecord(packed[:])
		require.True(t, got.Amount.Eq(MaxAllowanceAmount))
		require.Equal(t, maxUint48, got.Expiration)
		require.Equal(t, maxUint48, got.Nonce)
	})

	t.Run("absent key unpacks to the zero record", func(t *testing.T) {
		got := unpackRecord(nil)
		require.True(t, got.Amount.IsZero())
		require.Zero(t, got.Expiration)
		require.Zero(t, got.Nonce)
	})
}

func TestAllowanceStoreSet(t *testing.T) {
	s := allowanceStore{kv: storage.NewMemory()}

	rec, err := s.set(recOwner, recToken, recSpender, uint256.NewInt(100), 500)
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec.Nonce)

	t.Run("dirty write allowed, nonce keeps climbing", func(t *testing.T) {
		rec, err := s.set(recOwner, recToken, recSpender, uint256.NewInt(7), 0)
		require.NoError(t, err)
		require.Equal(t, uint64(2), rec.Nonce)
		require.Equal(t, uint256.NewInt(7), rec.Amount)
	})
}

func TestAllowanceStoreSpend(t *testing.T) {
	now := uint64(1_700_000_000)

	t.Run("decrements a bounded amount", func(t *testing.T) {
		s := allowanceStore{kv: storage.NewMemory()}
		_, err := s.set(recOwner, recToken, recSpender, uint256.NewInt(100), 0)
		require.NoError(t, err)

		prior, err := s.spend(recOwner, recToken, recSpender, uint256.NewInt(60), now)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(100), prior.Amount)

		rec, err := s.get(recOwner, recToken, recSpender)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(40), rec.Amount)
		require.Equal(t, uint64(1), rec.Nonce, "spend must not advance the nonce")
	})

	t.Run("unlimited amount is sticky", func(t *testing.T) {
		s := allowanceStore{kv: storage.NewMemory()}
		_, err := s.set(recOwner, recToken, recSpender, MaxAllowanceAmount, 0)
		require.NoError(t, err)

		_, err = s.spend(recOwner, recToken, recSpender, uint256.NewInt(1_000_000), now)
		require.NoError(t, err)

		rec, err := s.get(recOwner, recToken, recSpender)
		require.NoError(t, err)
		require.True(t, rec.Unlimited())
	})

	t.Run("expiration in the past fails, zero means unset", func(t *testing.T) {
		s := allowanceStore{kv: storage.NewMemory()}
		_, err := s.set(recOwner, recToken, recSpender, uint256.NewInt(100), now-1)
		require.NoError(t, err)
		_, err = s.spend(recOwner, recToken, recSpender, uint256.NewInt(1), now)
		require.ErrorIs(t, err, ErrAllowanceExpired)

		_, err = s.set(recOwner, recToken, recSpender, uint256.NewInt(100), 0)
		require.NoError(t, err)
		_, err = s.spend(recOwner, recToken, recSpender, uint256.NewInt(1), now)
		require.NoError(t, err)
	})

	t.Run("expiration equal to now is still live", func(t *testing.T) {
		s := allowanceStore{kv: storage.NewMemory()}
		_, err := s.set(recOwner, recToken, recSpender, uint256.NewInt(100), now)
		require.NoError(t, err)
		_, err = s.spend(recOwner, recToken, recSpender, uint256.NewInt(1), now)
		require.NoError(t, err)
	})

	t.Run("overdraw fails without touching state", func(t *testing.T) {
		s := allowanceStore{kv: storage.NewMemory()}
		_, err := s.set(recOwner, recToken, recSpender, uint256.NewInt(50), 0)
		require.NoError(t, err)

		_, err = s.spend(recOwner, recToken, recSpender, uint256.NewInt(51), now)
		require.ErrorIs(t, err, ErrInsufficientAllowance)

		rec, err := s.get(recOwner, recToken, recSpender)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(50), rec.Amount)
	})
}

func TestAllowanceStoreLockdown(t *testing.T) {
	s := allowanceStore{kv: storage.NewMemory()}
	_, err := s.set(recOwner, recToken, recSpender, uint256.NewInt(100), 777)
	require.NoError(t, err)

	require.NoError(t, s.lockdown(recOwner, recToken, recSpender))

	rec, err := s.get(recOwner, recToken, recSpender)
	require.NoError(t, err)
	require.True(t, rec.Amount.IsZero())
	require.Equal(t, uint64(777), rec.Expiration, "lockdown must not touch expiration")
	require.Equal(t, uint64(1), rec.Nonce, "lockdown must not touch the nonce")
}
