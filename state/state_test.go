package state

import (
	"testing"

	"github.com/nathaniel-cmd/bitcoin-dao/bank"
	"github.com/nathaniel-cmd/bitcoin-dao/config"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	dao_types "github.com/nathaniel-cmd/bitcoin-dao/types"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	t      *testing.T
	db     *StateDB
	ledger *bank.Ledger
	st     *State
}

func newTestEnv(t *testing.T) *testEnv {
	logger := cmtlog.NewNopLogger()
	ledger := bank.NewLedger(logger)
	db, err := NewStateDB(t.TempDir(), ledger, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := db.NewState()
	st.SetChainId("test-chain")
	return &testEnv{t: t, db: db, ledger: ledger, st: st}
}

func (e *testEnv) commit() {
	_, err := e.st.Update()
	require.NoError(e.t, err)
	_, err = e.db.SetState(e.st)
	require.NoError(e.t, err)
	e.st = e.db.NewState()
}

type testMember struct {
	priv ed25519.PrivKey
	addr string
}

func newTestMember() testMember {
	priv := ed25519.GenPrivKey()
	return testMember{
		priv: priv,
		addr: priv.PubKey().Address().String(),
	}
}

func (e *testEnv) join(m testMember) {
	_, err := e.st.Join(&tx.JoinTx{PubKey: m.priv.PubKey().Bytes()}, m.addr, false)
	require.NoError(e.t, err)
}

func (e *testEnv) fund(m testMember, amount uint64) {
	e.ledger.Fund(m.addr, amount)
}

func (e *testEnv) member(m testMember) *dao_types.Member {
	rec, err := e.st.GetMember(m.addr)
	require.NoError(e.t, err)
	require.NotNil(e.t, rec)
	return rec
}

// pastWindow moves the working height beyond the voting window of a proposal
// created at the current height.
func (e *testEnv) pastWindow() {
	e.st.header.Height += config.VotingWindow(e.st.header.Height) + 1
}

func TestJoinRejectsDoubleRegistration(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	e.join(a)

	rec := e.member(a)
	require.Equal(t, uint64(dao_types.DefaultReputation), rec.Reputation)
	require.Equal(t, uint64(0), rec.Stake)

	_, err := e.st.Join(&tx.JoinTx{PubKey: a.priv.PubKey().Bytes()}, a.addr, false)
	require.ErrorIs(t, err, ErrAlreadyMember)
	require.Equal(t, dao_types.CodeAlreadyMember, ErrorCode(err))
}

func TestLeaveStrandsStake(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	e.join(a)
	e.fund(a, 1000)

	_, err := e.st.Stake(&tx.StakeTx{Amount: 400}, a.addr, false)
	require.NoError(t, err)
	require.Equal(t, uint64(400), e.st.TreasuryBalance())

	event, err := e.st.Leave(a.addr, false)
	require.NoError(t, err)
	require.Equal(t, uint64(400), event.StrandedStake)
	require.False(t, e.st.IsMember(a.addr))
	// forfeited stake stays in custody
	require.Equal(t, uint64(400), e.st.TreasuryBalance())

	// rejoining starts from a clean record
	e.join(a)
	rec := e.member(a)
	require.Equal(t, uint64(dao_types.DefaultReputation), rec.Reputation)
	require.Equal(t, uint64(0), rec.Stake)
}

func TestStakeRequiresFundsAndMembership(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()

	_, err := e.st.Stake(&tx.StakeTx{Amount: 10}, a.addr, false)
	require.ErrorIs(t, err, ErrNotMember)

	e.join(a)
	e.fund(a, 50)

	_, err = e.st.Stake(&tx.StakeTx{Amount: 0}, a.addr, false)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = e.st.Stake(&tx.StakeTx{Amount: 100}, a.addr, false)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, dao_types.CodeInsufficientFunds, ErrorCode(err))

	// failed stake left everything untouched
	require.Equal(t, uint64(0), e.member(a).Stake)
	require.Equal(t, uint64(0), e.st.TreasuryBalance())
	require.Equal(t, uint64(50), e.ledger.Balance(a.addr))
}

func TestUnstakeCappedByStake(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	e.join(a)
	e.fund(a, 100)
	_, err := e.st.Stake(&tx.StakeTx{Amount: 60}, a.addr, false)
	require.NoError(t, err)

	_, err = e.st.Unstake(&tx.UnstakeTx{Amount: 61}, a.addr, false)
	require.ErrorIs(t, err, ErrInsufficientStake)
	require.Equal(t, uint64(60), e.member(a).Stake)
	require.Equal(t, uint64(60), e.st.TreasuryBalance())

	event, err := e.st.Unstake(&tx.UnstakeTx{Amount: 60}, a.addr, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), event.NewStake)
	require.Equal(t, uint64(0), e.st.TreasuryBalance())
	require.Equal(t, uint64(100), e.ledger.Balance(a.addr))
}

func TestProposalLifecycle(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	b := newTestMember()
	e.join(a)
	e.join(b)
	e.fund(a, 1000)

	_, err := e.st.Stake(&tx.StakeTx{Amount: 500}, a.addr, false)
	require.NoError(t, err)

	event, err := e.st.CreateProposal(&tx.ProposalTx{
		Title:       "fund research",
		Description: "a grant",
		Amount:      300,
	}, a.addr, false)
	require.NoError(t, err)
	require.Equal(t, uint64(1), event.ProposalIndex)
	require.Equal(t, e.st.header.Height+config.VotingWindow(e.st.header.Height), event.EndHeight)
	// creating credits the proposer
	require.Equal(t, uint64(2), e.member(a).Reputation)

	vote, err := e.st.Vote(&tx.VoteTx{Proposal: 1, Approve: true}, b.addr, false)
	require.NoError(t, err)
	// b has reputation 1, no stake
	require.Equal(t, uint64(10), vote.Weight)

	e.pastWindow()
	exec, err := e.st.Execute(&tx.ExecuteTx{Proposal: 1}, b.addr, false)
	require.NoError(t, err)
	require.True(t, exec.Executed)
	require.Equal(t, uint64(300), exec.Payout)
	require.Equal(t, uint64(200), e.st.TreasuryBalance())
	// a: 1 join, +1 propose, +5 executed proposal
	require.Equal(t, uint64(7), e.member(a).Reputation)
	// payout landed on a's external balance: 1000 - 500 staked + 300 payout
	require.Equal(t, uint64(800), e.ledger.Balance(a.addr))

	proposal, err := e.st.GetProposal(1)
	require.NoError(t, err)
	require.Equal(t, dao_types.ProposalStatusExecuted, proposal.Status)
}

func TestCreateProposalValidation(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	e.join(a)
	e.fund(a, 100)
	_, err := e.st.Stake(&tx.StakeTx{Amount: 100}, a.addr, false)
	require.NoError(t, err)

	_, err = e.st.CreateProposal(&tx.ProposalTx{Title: "", Description: "d", Amount: 10}, a.addr, false)
	require.ErrorIs(t, err, ErrProposalEmptyText)
	require.Equal(t, dao_types.CodeInvalidProposal, ErrorCode(err))

	_, err = e.st.CreateProposal(&tx.ProposalTx{Title: "t", Description: "d", Amount: 101}, a.addr, false)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// a zero-amount proposal is allowed, it just pays nothing
	_, err = e.st.CreateProposal(&tx.ProposalTx{Title: "t", Description: "d", Amount: 0}, a.addr, false)
	require.NoError(t, err)
}

func TestVoteWindowAndDoubleVote(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	b := newTestMember()
	e.join(a)
	e.join(b)
	e.fund(a, 100)
	_, err := e.st.Stake(&tx.StakeTx{Amount: 100}, a.addr, false)
	require.NoError(t, err)
	_, err = e.st.CreateProposal(&tx.ProposalTx{Title: "t", Description: "d", Amount: 50}, a.addr, false)
	require.NoError(t, err)

	_, err = e.st.Vote(&tx.VoteTx{Proposal: 1, Approve: true}, b.addr, false)
	require.NoError(t, err)
	_, err = e.st.Vote(&tx.VoteTx{Proposal: 1, Approve: false}, b.addr, false)
	require.ErrorIs(t, err, ErrAlreadyVoted)
	require.Equal(t, dao_types.CodeAlreadyVoted, ErrorCode(err))

	_, err = e.st.Vote(&tx.VoteTx{Proposal: 2}, a.addr, false)
	require.ErrorIs(t, err, ErrProposalNoexists)

	e.pastWindow()
	_, err = e.st.Vote(&tx.VoteTx{Proposal: 1, Approve: true}, a.addr, false)
	require.ErrorIs(t, err, ErrVotingClosed)
	require.Equal(t, dao_types.CodeInvalidProposal, ErrorCode(err))
}

func TestVoteWeightSnapshot(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	b := newTestMember()
	e.join(a)
	e.join(b)
	e.fund(a, 1000)
	e.fund(b, 1000)
	_, err := e.st.Stake(&tx.StakeTx{Amount: 500}, a.addr, false)
	require.NoError(t, err)
	_, err = e.st.CreateProposal(&tx.ProposalTx{Title: "t", Description: "d", Amount: 100}, a.addr, false)
	require.NoError(t, err)

	_, err = e.st.Vote(&tx.VoteTx{Proposal: 1, Approve: true}, b.addr, false)
	require.NoError(t, err)

	// staking after the vote must not reweigh the tally
	_, err = e.st.Stake(&tx.StakeTx{Amount: 900}, b.addr, false)
	require.NoError(t, err)

	proposal, err := e.st.GetProposal(1)
	require.NoError(t, err)
	require.Equal(t, uint64(10), proposal.YesWeight)

	rec, err := e.st.GetVote(1, b.addr)
	require.NoError(t, err)
	require.Equal(t, uint64(10), rec.Weight)
}

func TestExecuteWindowStatusAndTie(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	b := newTestMember()
	e.join(a)
	e.join(b)
	e.fund(a, 100)
	_, err := e.st.Stake(&tx.StakeTx{Amount: 100}, a.addr, false)
	require.NoError(t, err)
	_, err = e.st.CreateProposal(&tx.ProposalTx{Title: "t", Description: "d", Amount: 50}, a.addr, false)
	require.NoError(t, err)

	_, err = e.st.Execute(&tx.ExecuteTx{Proposal: 1}, b.addr, false)
	require.ErrorIs(t, err, ErrVotingOpen)
	require.Equal(t, dao_types.CodeProposalExpired, ErrorCode(err))

	// no votes at all resolves as rejected
	e.pastWindow()
	exec, err := e.st.Execute(&tx.ExecuteTx{Proposal: 1}, b.addr, false)
	require.NoError(t, err)
	require.False(t, exec.Executed)
	require.Equal(t, uint64(100), e.st.TreasuryBalance())

	proposal, err := e.st.GetProposal(1)
	require.NoError(t, err)
	require.Equal(t, dao_types.ProposalStatusRejected, proposal.Status)

	_, err = e.st.Execute(&tx.ExecuteTx{Proposal: 1}, a.addr, false)
	require.ErrorIs(t, err, ErrProposalResolved)
}

func TestExecuteTieRejects(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	b := newTestMember()
	e.join(a)
	e.join(b)
	e.fund(a, 100)
	_, err := e.st.Stake(&tx.StakeTx{Amount: 100}, a.addr, false)
	require.NoError(t, err)
	_, err = e.st.CreateProposal(&tx.ProposalTx{Title: "t", Description: "d", Amount: 50}, a.addr, false)
	require.NoError(t, err)

	// b and c carry equal weight, one yes and one no
	c := newTestMember()
	e.join(c)
	_, err = e.st.Vote(&tx.VoteTx{Proposal: 1, Approve: true}, b.addr, false)
	require.NoError(t, err)
	_, err = e.st.Vote(&tx.VoteTx{Proposal: 1, Approve: false}, c.addr, false)
	require.NoError(t, err)

	proposal, err := e.st.GetProposal(1)
	require.NoError(t, err)
	require.Equal(t, proposal.YesWeight, proposal.NoWeight)

	e.pastWindow()
	exec, err := e.st.Execute(&tx.ExecuteTx{Proposal: 1}, a.addr, false)
	require.NoError(t, err)
	require.False(t, exec.Executed)
}

// Treasury sufficiency is only checked at creation time, so two passing
// proposals can both claim the same funds. The loser's payout fails at the
// custody ledger, the proposal stays Active, and a later donation lets the
// retry succeed.
func TestExecuteRetryAfterTreasuryDrain(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	b := newTestMember()
	e.join(a)
	e.join(b)
	e.fund(a, 400)
	_, err := e.st.Stake(&tx.StakeTx{Amount: 400}, a.addr, false)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = e.st.CreateProposal(&tx.ProposalTx{Title: "t", Description: "d", Amount: 300}, a.addr, false)
		require.NoError(t, err)
		_, err = e.st.Vote(&tx.VoteTx{Proposal: uint64(i + 1), Approve: true}, b.addr, false)
		require.NoError(t, err)
	}

	e.pastWindow()
	exec, err := e.st.Execute(&tx.ExecuteTx{Proposal: 1}, b.addr, false)
	require.NoError(t, err)
	require.True(t, exec.Executed)
	require.Equal(t, uint64(100), e.st.TreasuryBalance())

	// custody holds 100, proposal 2 wants 300
	_, err = e.st.Execute(&tx.ExecuteTx{Proposal: 2}, b.addr, false)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, dao_types.CodeInsufficientFunds, ErrorCode(err))

	// the failed payout mutated nothing: still Active, treasury untouched
	proposal, err := e.st.GetProposal(2)
	require.NoError(t, err)
	require.Equal(t, dao_types.ProposalStatusActive, proposal.Status)
	require.Equal(t, uint64(100), e.st.TreasuryBalance())

	_, err = e.st.Donate("patron", 300, false)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	e.ledger.Fund("patron", 300)
	_, err = e.st.Donate("patron", 300, false)
	require.NoError(t, err)

	exec, err = e.st.Execute(&tx.ExecuteTx{Proposal: 2}, b.addr, false)
	require.NoError(t, err)
	require.True(t, exec.Executed)
	require.Equal(t, uint64(100), e.st.TreasuryBalance())
}

func TestDonateFromNonMember(t *testing.T) {
	e := newTestEnv(t)
	e.ledger.Fund("patron", 250)

	_, err := e.st.Donate("patron", 0, false)
	require.ErrorIs(t, err, ErrInvalidAmount)

	event, err := e.st.Donate("patron", 250, false)
	require.NoError(t, err)
	require.Equal(t, uint64(250), event.Treasury)
	require.Equal(t, uint64(250), e.st.TreasuryBalance())
}

func TestVerifySignatureAndNonce(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()

	btx := &tx.DAOTx{
		Version: tx.DAOTxVersion0,
		Type:    tx.DAOTxTypeJoin,
		Nonce:   0,
		Sender:  a.addr,
		Tx:      &tx.JoinTx{PubKey: a.priv.PubKey().Bytes()},
	}
	dat, err := btx.SigData([]byte("test-chain"))
	require.NoError(t, err)
	sig, err := a.priv.Sign(dat)
	require.NoError(t, err)
	btx.Sig = [][]byte{sig}

	ok, err := e.st.Verify(btx)
	require.NoError(t, err)
	require.True(t, ok)

	// envelope signed for another chain fails
	other := *btx
	dat2, err := other.SigData([]byte("other-chain"))
	require.NoError(t, err)
	sig2, err := a.priv.Sign(dat2)
	require.NoError(t, err)
	other.Sig = [][]byte{sig2}
	_, err = e.st.Verify(&other)
	require.ErrorIs(t, err, ErrTxSigInvalid)

	// join pubkey must derive the sender address
	imposter := newTestMember()
	bad := &tx.DAOTx{
		Version: tx.DAOTxVersion0,
		Type:    tx.DAOTxTypeJoin,
		Sender:  a.addr,
		Tx:      &tx.JoinTx{PubKey: imposter.priv.PubKey().Bytes()},
	}
	_, err = e.st.Verify(bad)
	require.ErrorIs(t, err, ErrTxPubKeyMismatch)

	e.join(a)
	stakeTx := &tx.DAOTx{
		Version: tx.DAOTxVersion0,
		Type:    tx.DAOTxTypeStake,
		Nonce:   7,
		Sender:  a.addr,
		Tx:      &tx.StakeTx{Amount: 1},
	}
	dat3, err := stakeTx.SigData([]byte("test-chain"))
	require.NoError(t, err)
	sig3, err := a.priv.Sign(dat3)
	require.NoError(t, err)
	stakeTx.Sig = [][]byte{sig3}
	_, err = e.st.Verify(stakeTx)
	require.ErrorIs(t, err, ErrTxNonceInvalid)
	require.Equal(t, dao_types.CodeNotAuthorized, ErrorCode(err))
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	logger := cmtlog.NewNopLogger()
	ledger := bank.NewLedger(logger)
	dir := t.TempDir()

	db, err := NewStateDB(dir, ledger, logger)
	require.NoError(t, err)
	st := db.NewState()
	st.SetChainId("test-chain")

	a := newTestMember()
	_, err = st.Join(&tx.JoinTx{PubKey: a.priv.PubKey().Bytes()}, a.addr, false)
	require.NoError(t, err)
	ledger.Fund(a.addr, 100)
	_, err = st.Stake(&tx.StakeTx{Amount: 80}, a.addr, false)
	require.NoError(t, err)
	_, err = st.CreateProposal(&tx.ProposalTx{Title: "t", Description: "d", Amount: 10}, a.addr, false)
	require.NoError(t, err)

	_, err = st.Update()
	require.NoError(t, err)
	hash, err := db.SetState(st)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := NewStateDB(dir, ledger, logger)
	require.NoError(t, err)
	defer db2.Close()
	require.Equal(t, hash[:], []byte(db2.Header().Hash))
	require.Equal(t, "test-chain", db2.Header().ChainID)

	member, _, err := db2.GetMember(a.addr)
	require.NoError(t, err)
	require.NotNil(t, member)
	require.Equal(t, uint64(80), member.Stake)

	proposal, _, err := db2.GetProposal(1)
	require.NoError(t, err)
	require.Equal(t, "t", proposal.Title)

	treasury, _ := db2.TreasuryBalance()
	require.Equal(t, uint64(80), treasury)

	totalMembers, totalProposals, _ := db2.Counters()
	require.Equal(t, uint64(1), totalMembers)
	require.Equal(t, uint64(1), totalProposals)
}

func TestHeightAdvancesPerCommit(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	e.join(a)
	h0 := e.st.header.Height
	e.commit()
	e.commit()
	require.Equal(t, h0+2, e.st.header.Height)
	require.True(t, e.st.IsMember(a.addr))
}

// Treasury always covers the sum of live member stakes; forfeitures and
// donations only ever push it higher, payouts come out of surplus.
func TestTreasuryCoversStakes(t *testing.T) {
	e := newTestEnv(t)
	a := newTestMember()
	b := newTestMember()
	e.join(a)
	e.join(b)
	e.fund(a, 1000)
	e.fund(b, 1000)
	e.ledger.Fund("patron", 100)

	_, err := e.st.Stake(&tx.StakeTx{Amount: 600}, a.addr, false)
	require.NoError(t, err)
	_, err = e.st.Stake(&tx.StakeTx{Amount: 300}, b.addr, false)
	require.NoError(t, err)
	_, err = e.st.Donate("patron", 100, false)
	require.NoError(t, err)
	_, err = e.st.Unstake(&tx.UnstakeTx{Amount: 200}, b.addr, false)
	require.NoError(t, err)
	_, err = e.st.Leave(b.addr, false)
	require.NoError(t, err)

	members, err := e.st.Members()
	require.NoError(t, err)
	var stakes uint64
	for _, m := range members {
		stakes += m.Stake
	}
	require.GreaterOrEqual(t, e.st.TreasuryBalance(), stakes)
	require.Equal(t, uint64(800), e.st.TreasuryBalance())
}
