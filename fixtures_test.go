package permit2_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	permit2 "github.com/HarukiKondo/permit2"
	"github.com/HarukiKondo/permit2/eip712"
	"github.com/HarukiKondo/permit2/signers"
)

var (
	tokenX   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenY   = common.HexToAddress("0x1000000000000000000000000000000000000002")
	spenderS = common.HexToAddress("0x2000000000000000000000000000000000000001")
	payeeP   = common.HexToAddress("0x3000000000000000000000000000000000000001")
)

// move is one ledger transfer as observed by the mock.
type move struct {
	token, from, to common.Address
	amount          *uint256.Int
}

// mockLedger records every requested move and can be told to fail from a
// given call onward.
type mockLedger struct {
	moves  []move
	failAt int // fail the n-th call (1-based); 0 never fails
}

func (l *mockLedger) MoveFunds(token, from, to common.Address, amount *uint256.Int) error {
	if l.failAt > 0 && len(l.moves)+1 >= l.failAt {
		return errors.New("ledger rejected the transfer")
	}
	l.moves = append(l.moves, move{token: token, from: from, to: to, amount: new(uint256.Int).Set(amount)})
	return nil
}

type mockClock struct {
	now uint64
}

func (c *mockClock) Now() uint64 { return c.now }

// contractWallet approves exactly the digests registered with it, for any
// address it claims code for.
type contractWallet struct {
	addr     common.Address
	approved map[common.Hash]bool
}

func (w *contractWallet) HasCode(a common.Address) bool { return a == w.addr }

func (w *contractWallet) IsValidSignature(a common.Address, digest common.Hash, _ []byte) bool {
	return a == w.addr && w.approved[digest]
}

// eventRecorder captures sink callbacks for assertion.
type eventRecorder struct {
	approvals   int
	permits     int
	lockdowns   []permit2.TokenSpenderPair
	nonceJumps  [][2]uint64
	bitmapMasks []*uint256.Int
}

func (r *eventRecorder) Approval(common.Address, common.Address, common.Address, *uint256.Int, uint64) {
	r.approvals++
}

func (r *eventRecorder) Permit(common.Address, common.Address, common.Address, *uint256.Int, uint64, uint64) {
	r.permits++
}

func (r *eventRecorder) Lockdown(_, token, spender common.Address) {
	r.lockdowns = append(r.lockdowns, permit2.TokenSpenderPair{Token: token, Spender: spender})
}

func (r *eventRecorder) NonceInvalidation(_, _, _ common.Address, newNonce, oldNonce uint64) {
	r.nonceJumps = append(r.nonceJumps, [2]uint64{newNonce, oldNonce})
}

func (r *eventRecorder) UnorderedNonceInvalidation(_ common.Address, _, mask *uint256.Int) {
	r.bitmapMasks = append(r.bitmapMasks, new(uint256.Int).Set(mask))
}

// testEnv bundles a core with its collaborators and an owner key.
type testEnv struct {
	core   *permit2.Core
	ledger *mockLedger
	clock  *mockClock
	events *eventRecorder
	owner  *signers.Local
}

func newTestEnv(t *testing.T, opts ...permit2.Option) *testEnv {
	t.Helper()

	ledger := &mockLedger{}
	clock := &mockClock{now: 1_700_000_000}
	events := &eventRecorder{}
	owner, err := signers.GenerateLocal()
	require.NoError(t, err)

	all := append([]permit2.Option{
		permit2.WithClock(clock),
		permit2.WithEvents(events),
		permit2.WithChainContext(eip712.StaticChain(big.NewInt(1))),
	}, opts...)
	core, err := permit2.New(ledger, all...)
	require.NoError(t, err)

	return &testEnv{core: core, ledger: ledger, clock: clock, events: events, owner: owner}
}

// hasher mirroring the test env's digest domain, for producing signatures.
func testDigestHasher() *eip712.Hasher {
	return eip712.NewHasher(eip712.StaticChain(big.NewInt(1)), permit2.CanonicalAddress)
}

func signTransferPermit(t *testing.T, owner *signers.Local, permit permit2.PermitTransferFrom, spender common.Address) []byte {
	t.Helper()
	sig, err := owner.SignDigest(testDigestHasher().TransferDigest(permit, spender))
	require.NoError(t, err)
	return sig
}

func signPermitSingle(t *testing.T, owner *signers.Local, permit permit2.PermitSingle) []byte {
	t.Helper()
	sig, err := owner.SignDigest(testDigestHasher().PermitSingleDigest(permit))
	require.NoError(t, err)
	return sig
}
