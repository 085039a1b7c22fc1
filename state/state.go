package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/nathaniel-cmd/bitcoin-dao/bank"
	"github.com/nathaniel-cmd/bitcoin-dao/config"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	dao_types "github.com/nathaniel-cmd/bitcoin-dao/types"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	ModifiedFlagNew = 1 << 0
	ModifiedFlagMod = 1 << 1
	ModifiedFlagDel = 1 << 2
)

var (
	ErrNotFound = errors.New("not found")
)

var (
	KeyHeader        = "s"
	KeyMemberBody    = "m%s"
	KeyProposalBody  = "p%v"
	KeyProposalIndex = "pi"
	KeyVoteRecord    = "v%v:%s"
	KeyTreasury      = "t"
)

var (
	ErrTxNonceInvalid   = errors.New("nonce invalid")
	ErrTxSigInvalid     = errors.New("signature invalid")
	ErrTxPubKeyMismatch = errors.New("pubkey does not match sender address")

	ErrAlreadyMember     = errors.New("already a member")
	ErrNotMember         = errors.New("not a member")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientStake = errors.New("stake below requested amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrProposalEmptyText = errors.New("proposal title or description empty")
	ErrProposalNoexists  = errors.New("proposal noexists")
	ErrProposalResolved  = errors.New("proposal already resolved")
	ErrVotingClosed      = errors.New("proposal voting window elapsed")
	ErrVotingOpen        = errors.New("proposal voting window still open")
	ErrAlreadyVoted      = errors.New("already voted on proposal")
)

// ErrorCode maps engine errors onto the stable result codes callers branch
// on. Bank transfer failures surface uniformly as insufficient funds no
// matter which side of the ledger ran short.
func ErrorCode(err error) uint32 {
	switch {
	case err == nil:
		return dao_types.CodeOK
	case errors.Is(err, ErrTxNonceInvalid),
		errors.Is(err, ErrTxSigInvalid),
		errors.Is(err, ErrTxPubKeyMismatch):
		return dao_types.CodeNotAuthorized
	case errors.Is(err, ErrAlreadyMember):
		return dao_types.CodeAlreadyMember
	case errors.Is(err, ErrNotMember):
		return dao_types.CodeNotMember
	case errors.Is(err, ErrProposalEmptyText),
		errors.Is(err, ErrProposalNoexists),
		errors.Is(err, ErrProposalResolved),
		errors.Is(err, ErrVotingClosed):
		return dao_types.CodeInvalidProposal
	case errors.Is(err, ErrVotingOpen):
		return dao_types.CodeProposalExpired
	case errors.Is(err, ErrAlreadyVoted):
		return dao_types.CodeAlreadyVoted
	case errors.Is(err, ErrInsufficientStake),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, bank.ErrInsufficientBalance):
		return dao_types.CodeInsufficientFunds
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, bank.ErrInvalidAmount):
		return dao_types.CodeInvalidAmount
	default:
		return dao_types.CodeUnknown
	}
}

type StateHeader struct {
	ChainID     string `json:"chainId"`
	Height      uint64 `json:"height"`
	MemberCount uint64 `json:"memberCount"`
	RootHash    []byte `json:"rootHash,omitempty"`
	Hash        []byte `json:"hash,omitempty"`
}

func (h *StateHeader) clone() *StateHeader {
	n := *h
	n.RootHash = append([]byte(nil), h.RootHash...)
	n.Hash = append([]byte(nil), h.Hash...)
	return &n
}

// State is one height's working view over the governance tree. All public
// operations run against it serially; nothing becomes visible until the
// working set is flushed by Update and committed by save.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64
	bank   bank.Transfer

	header *StateHeader

	// members caches records loaded or touched at this height. A nil entry
	// is a tombstone for a member deleted at this height.
	members         map[string]*dao_types.Member
	modifiedMembers map[string]uint32

	treasury      uint64
	treasuryDirty bool

	proposalMaxIndex  uint64
	proposals         map[uint64]*dao_types.Proposal
	modifiedProposals map[uint64]bool

	newVotes map[string]*dao_types.VoteRecord
}

func newState(db *iavl.MutableTree, bankSvc bank.Transfer, logger cmtlog.Logger) *State {
	return &State{
		logger:            logger,
		db:                db,
		dbVer:             0,
		bank:              bankSvc,
		header:            new(StateHeader),
		members:           make(map[string]*dao_types.Member),
		modifiedMembers:   make(map[string]uint32),
		proposals:         make(map[uint64]*dao_types.Proposal),
		modifiedProposals: make(map[uint64]bool),
		newVotes:          make(map[string]*dao_types.VoteRecord),
	}
}

func (s *State) nextState() *State {
	n := &State{
		logger:            s.logger,
		db:                s.db,
		dbVer:             s.dbVer,
		bank:              s.bank,
		members:           make(map[string]*dao_types.Member),
		modifiedMembers:   make(map[string]uint32),
		treasury:          s.treasury,
		proposalMaxIndex:  s.proposalMaxIndex,
		proposals:         make(map[uint64]*dao_types.Proposal),
		modifiedProposals: make(map[uint64]bool),
		newVotes:          make(map[string]*dao_types.VoteRecord),
	}
	n.header = s.header.clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyProposalIndex))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return err
		}
	}
	s.proposalMaxIndex = new(big.Int).SetBytes(val).Uint64()
	val, err = s.db.Get([]byte(KeyTreasury))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return err
		}
	}
	s.treasury = new(big.Int).SetBytes(val).Uint64()
	val, err = s.db.Get([]byte(KeyHeader))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = json.Unmarshal(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		if s.header.RootHash == nil {
			s.header.RootHash = make([]byte, len(rootHash))
		}
		copy(s.header.RootHash, rootHash)
		if s.header.Hash == nil {
			s.header.Hash = make([]byte, len(h))
		}
		copy(s.header.Hash, h[:])
	}
	return
}

// Update flushes the working set into the tree. Any write failure rolls the
// tree back so partial state never survives.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	var val []byte
	val, err = json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyHeader), val)
	if err != nil {
		return
	}

	if s.treasuryDirty {
		_, err = s.db.Set([]byte(KeyTreasury), new(big.Int).SetUint64(s.treasury).Bytes())
		if err != nil {
			return
		}
	}

	if len(s.modifiedProposals) > 0 {
		_, err = s.db.Set([]byte(KeyProposalIndex), new(big.Int).SetUint64(s.proposalMaxIndex).Bytes())
		if err != nil {
			return
		}
		idxs := make([]uint64, 0, len(s.modifiedProposals))
		for idx := range s.modifiedProposals {
			idxs = append(idxs, idx)
		}
		sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
		for _, idx := range idxs {
			key := fmt.Sprintf(KeyProposalBody, idx)
			proposalBz, _ := json.Marshal(s.proposals[idx])
			_, err = s.db.Set([]byte(key), proposalBz)
			if err != nil {
				return
			}
		}
	}

	if len(s.newVotes) > 0 {
		keys := make([]string, 0, len(s.newVotes))
		for k := range s.newVotes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			voteBz, _ := json.Marshal(s.newVotes[k])
			_, err = s.db.Set([]byte(k), voteBz)
			if err != nil {
				return
			}
		}
	}

	if len(s.modifiedMembers) > 0 {
		addrs := make([]string, 0, len(s.modifiedMembers))
		for addr := range s.modifiedMembers {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)
		for _, addr := range addrs {
			flag := s.modifiedMembers[addr]
			key := fmt.Sprintf(KeyMemberBody, addr)
			if flag&ModifiedFlagDel == ModifiedFlagDel {
				_, _, err = s.db.Remove([]byte(key))
				if err != nil {
					return
				}
				continue
			}
			val, err = json.Marshal(s.members[addr])
			if err != nil {
				return
			}
			_, err = s.db.Set([]byte(key), val)
			if err != nil {
				return
			}
		}
	}

	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedMembers = make(map[string]uint32)
	s.modifiedProposals = make(map[uint64]bool)
	s.newVotes = make(map[string]*dao_types.VoteRecord)
	s.treasuryDirty = false
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainID = chainId
}

func (s *State) Height() uint64 {
	return s.header.Height
}

func (s *State) TreasuryBalance() uint64 {
	return s.treasury
}

func (s *State) MemberCount() uint64 {
	return s.header.MemberCount
}

func (s *State) ProposalCount() uint64 {
	return s.proposalMaxIndex
}

// GetMember returns the member record for an address, or (nil, nil) when the
// address is not currently registered.
func (s *State) GetMember(addr string) (member *dao_types.Member, err error) {
	if m, ok := s.members[addr]; ok {
		if m == nil {
			return nil, nil
		}
		return m, nil
	}
	key := fmt.Sprintf(KeyMemberBody, addr)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	member = new(dao_types.Member)
	err = json.Unmarshal(val, member)
	if err != nil {
		return nil, err
	}
	s.members[addr] = member
	return
}

// IsMember is the identity guard every mutating operation consults first.
func (s *State) IsMember(addr string) bool {
	m, err := s.GetMember(addr)
	return err == nil && m != nil
}

func (s *State) touchMember(m *dao_types.Member, flag uint32) {
	m.Touch(s.header.Height)
	s.members[m.Address] = m
	s.modifiedMembers[m.Address] |= flag
}

func (s *State) GetProposal(idx uint64) (proposal *dao_types.Proposal, err error) {
	if p, ok := s.proposals[idx]; ok {
		return p, nil
	}
	if idx == 0 || idx > s.proposalMaxIndex {
		return nil, ErrProposalNoexists
	}
	key := fmt.Sprintf(KeyProposalBody, idx)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrProposalNoexists
		}
		return nil, err
	}
	if val == nil {
		return nil, ErrProposalNoexists
	}
	proposal = new(dao_types.Proposal)
	err = json.Unmarshal(val, proposal)
	if err != nil {
		return nil, err
	}
	s.proposals[idx] = proposal
	return
}

func (s *State) hasVoted(proposalIdx uint64, addr string) (bool, error) {
	key := fmt.Sprintf(KeyVoteRecord, proposalIdx, addr)
	if _, ok := s.newVotes[key]; ok {
		return true, nil
	}
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return val != nil, nil
}

// GetVote returns the recorded vote for (proposal, voter), or ErrNotFound.
func (s *State) GetVote(proposalIdx uint64, addr string) (*dao_types.VoteRecord, error) {
	key := fmt.Sprintf(KeyVoteRecord, proposalIdx, addr)
	if rec, ok := s.newVotes[key]; ok {
		return rec, nil
	}
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if val == nil {
		return nil, ErrNotFound
	}
	rec := new(dao_types.VoteRecord)
	if err := json.Unmarshal(val, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Verify authenticates a transaction envelope against the member registry:
// the nonce must match the member record and the signature must verify under
// the member's registered key. Join transactions are verified against the
// key they carry, since no record exists yet.
func (s *State) Verify(btx *tx.DAOTx) (succ bool, err error) {
	var pubkey []byte
	var nonce uint64
	if btx.Type == tx.DAOTxTypeJoin {
		jtx, ok := btx.Tx.(*tx.JoinTx)
		if !ok {
			return false, tx.ErrUnmatchedTxType
		}
		if ed25519.PubKey(jtx.PubKey).Address().String() != btx.Sender {
			return false, ErrTxPubKeyMismatch
		}
		pubkey = jtx.PubKey
		nonce = 0
	} else {
		m, err := s.GetMember(btx.Sender)
		if err != nil {
			return false, err
		}
		if m == nil {
			return false, ErrNotMember
		}
		pubkey = m.PubKey
		nonce = m.Nonce
	}
	if btx.Nonce != nonce {
		return false, ErrTxNonceInvalid
	}
	dat, err := btx.SigData([]byte(s.header.ChainID))
	if err != nil {
		return false, err
	}
	if len(btx.Sig) != 1 || !ed25519.PubKey(pubkey).VerifySignature(dat, btx.Sig[0]) {
		return false, ErrTxSigInvalid
	}
	return true, nil
}

// Join registers the sender as a member with reputation 1 and no stake.
func (s *State) Join(btx *tx.JoinTx, sender string, checkOnly bool) (event *dao_types.EventJoin, err error) {
	s.logger.Debug("apply join", "sender", sender, "height", s.header.Height)
	m, err := s.GetMember(sender)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return nil, ErrAlreadyMember
	}
	if !checkOnly {
		m = &dao_types.Member{
			Address:    sender,
			PubKey:     append([]byte(nil), btx.PubKey...),
			Reputation: dao_types.DefaultReputation,
			Stake:      0,
			Nonce:      1,
		}
		s.touchMember(m, ModifiedFlagNew)
		s.header.MemberCount += 1
		event = &dao_types.EventJoin{
			Address:    sender,
			Reputation: m.Reputation,
			Height:     s.header.Height,
		}
	}
	return
}

// Leave removes the sender's member record. Outstanding stake is NOT
// refunded; it stays in treasury custody under no claim.
func (s *State) Leave(sender string, checkOnly bool) (event *dao_types.EventLeave, err error) {
	s.logger.Debug("apply leave", "sender", sender, "height", s.header.Height)
	m, err := s.GetMember(sender)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotMember
	}
	if !checkOnly {
		event = &dao_types.EventLeave{
			Address:       sender,
			StrandedStake: m.Stake,
			Height:        s.header.Height,
		}
		s.members[sender] = nil
		s.modifiedMembers[sender] = ModifiedFlagDel
		s.header.MemberCount -= 1
	}
	return
}

// Stake moves funds from the sender's external balance into treasury
// custody and records the claim on the member record. A failed transfer
// aborts with no state change.
func (s *State) Stake(btx *tx.StakeTx, sender string, checkOnly bool) (event *dao_types.EventStake, err error) {
	s.logger.Debug("apply stake", "sender", sender, "amount", btx.Amount, "height", s.header.Height)
	m, err := s.GetMember(sender)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotMember
	}
	if btx.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !checkOnly {
		if err = s.bank.Deposit(sender, btx.Amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		m.Stake += btx.Amount
		m.Nonce += 1
		s.treasury += btx.Amount
		s.treasuryDirty = true
		s.touchMember(m, ModifiedFlagMod)
		event = &dao_types.EventStake{
			Address:  sender,
			Amount:   btx.Amount,
			NewStake: m.Stake,
			Treasury: s.treasury,
		}
	}
	return
}

// Unstake returns funds from treasury custody to the sender, capped by the
// member's recorded stake.
func (s *State) Unstake(btx *tx.UnstakeTx, sender string, checkOnly bool) (event *dao_types.EventUnstake, err error) {
	s.logger.Debug("apply unstake", "sender", sender, "amount", btx.Amount, "height", s.header.Height)
	m, err := s.GetMember(sender)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotMember
	}
	if btx.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	if m.Stake < btx.Amount {
		return nil, ErrInsufficientStake
	}
	if !checkOnly {
		if err = s.bank.Withdraw(sender, btx.Amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		m.Stake -= btx.Amount
		m.Nonce += 1
		s.treasury -= btx.Amount
		s.treasuryDirty = true
		s.touchMember(m, ModifiedFlagMod)
		event = &dao_types.EventUnstake{
			Address:  sender,
			Amount:   btx.Amount,
			NewStake: m.Stake,
			Treasury: s.treasury,
		}
	}
	return
}

// CreateProposal opens a funding proposal. Treasury sufficiency is checked
// once, here; it is deliberately not re-checked at execution time.
func (s *State) CreateProposal(btx *tx.ProposalTx, sender string, checkOnly bool) (event *dao_types.EventProposal, err error) {
	s.logger.Debug("apply proposal", "sender", sender, "amount", btx.Amount, "height", s.header.Height)
	m, err := s.GetMember(sender)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotMember
	}
	if btx.Title == "" || btx.Description == "" {
		return nil, ErrProposalEmptyText
	}
	if s.treasury < btx.Amount {
		return nil, ErrInsufficientFunds
	}
	if !checkOnly {
		s.proposalMaxIndex += 1
		proposal := &dao_types.Proposal{
			Index:       s.proposalMaxIndex,
			Creator:     sender,
			Title:       btx.Title,
			Description: btx.Description,
			Amount:      btx.Amount,
			Status:      dao_types.ProposalStatusActive,
			Height:      s.header.Height,
			EndHeight:   s.header.Height + config.VotingWindow(s.header.Height),
			PartnerOrg:  btx.PartnerOrg,
		}
		s.proposals[proposal.Index] = proposal
		s.modifiedProposals[proposal.Index] = true

		m.CreditReputation(config.ReputationCreditPropose)
		m.Nonce += 1
		s.touchMember(m, ModifiedFlagMod)

		event = &dao_types.EventProposal{
			ProposalIndex: proposal.Index,
			Creator:       sender,
			Title:         proposal.Title,
			Amount:        proposal.Amount,
			EndHeight:     proposal.EndHeight,
			PartnerOrg:    proposal.PartnerOrg,
		}
	}
	return
}

// Vote casts the sender's vote with power computed from the member record as
// it stands right now. The weight added to the tally is frozen afterwards.
func (s *State) Vote(btx *tx.VoteTx, sender string, checkOnly bool) (event *dao_types.EventVote, err error) {
	s.logger.Debug("apply vote", "sender", sender, "proposal", btx.Proposal, "height", s.header.Height)
	m, err := s.GetMember(sender)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotMember
	}
	proposal, err := s.GetProposal(btx.Proposal)
	if err != nil {
		return nil, err
	}
	if !proposal.Votable(s.header.Height) {
		if proposal.Status != dao_types.ProposalStatusActive {
			return nil, ErrProposalResolved
		}
		return nil, ErrVotingClosed
	}
	voted, err := s.hasVoted(btx.Proposal, sender)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrAlreadyVoted
	}
	if !checkOnly {
		power := dao_types.VotingPower(m)
		if btx.Approve {
			proposal.YesWeight += power
		} else {
			proposal.NoWeight += power
		}
		s.proposals[proposal.Index] = proposal
		s.modifiedProposals[proposal.Index] = true

		key := fmt.Sprintf(KeyVoteRecord, btx.Proposal, sender)
		s.newVotes[key] = &dao_types.VoteRecord{
			Proposal: btx.Proposal,
			Voter:    sender,
			Approve:  btx.Approve,
			Weight:   power,
			Height:   s.header.Height,
		}

		m.CreditReputation(config.ReputationCreditVote)
		m.Nonce += 1
		s.touchMember(m, ModifiedFlagMod)

		event = &dao_types.EventVote{
			ProposalIndex: btx.Proposal,
			Voter:         sender,
			Approve:       btx.Approve,
			Weight:        power,
		}
	}
	return
}

// Execute settles a proposal whose voting window has fully elapsed. A strict
// weight majority pays the creator out of custody and terminates in
// Executed; ties and minorities terminate in Rejected. A failed payout
// leaves the proposal Active for a later retry. Treasury sufficiency is not
// re-validated here; the custody ledger is the backstop.
func (s *State) Execute(btx *tx.ExecuteTx, sender string, checkOnly bool) (event *dao_types.EventExecute, err error) {
	s.logger.Debug("apply execute", "sender", sender, "proposal", btx.Proposal, "height", s.header.Height)
	m, err := s.GetMember(sender)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotMember
	}
	proposal, err := s.GetProposal(btx.Proposal)
	if err != nil {
		return nil, err
	}
	if s.header.Height < proposal.EndHeight {
		return nil, ErrVotingOpen
	}
	if proposal.Status != dao_types.ProposalStatusActive {
		return nil, ErrProposalResolved
	}
	if !checkOnly {
		executed := proposal.YesWeight > proposal.NoWeight
		if executed {
			// every fallible step runs before the first mutation; the
			// creator may have left, so a nil record only skips the credit
			creator, err := s.GetMember(proposal.Creator)
			if err != nil {
				return nil, err
			}
			if err = s.bank.Withdraw(proposal.Creator, proposal.Amount); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
			}
			s.treasury -= proposal.Amount
			s.treasuryDirty = true
			proposal.Status = dao_types.ProposalStatusExecuted
			if creator != nil {
				creator.CreditReputation(config.ReputationCreditExecute)
				s.touchMember(creator, ModifiedFlagMod)
			}
		} else {
			proposal.Status = dao_types.ProposalStatusRejected
		}
		s.proposals[proposal.Index] = proposal
		s.modifiedProposals[proposal.Index] = true

		m.Nonce += 1
		s.touchMember(m, ModifiedFlagMod)

		payout := uint64(0)
		if executed {
			payout = proposal.Amount
		}
		event = &dao_types.EventExecute{
			ProposalIndex: proposal.Index,
			Creator:       proposal.Creator,
			Executed:      executed,
			Payout:        payout,
			Treasury:      s.treasury,
		}
	}
	return
}

// Donate is the pass-through treasury entry point: an external account
// deposits directly into custody. No membership required.
func (s *State) Donate(from string, amount uint64, checkOnly bool) (event *dao_types.EventDonation, err error) {
	s.logger.Debug("apply donation", "from", from, "amount", amount, "height", s.header.Height)
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !checkOnly {
		if err = s.bank.Deposit(from, amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		s.treasury += amount
		s.treasuryDirty = true
		event = &dao_types.EventDonation{
			From:     from,
			Amount:   amount,
			Treasury: s.treasury,
		}
	}
	return
}

// InitGenesis seeds the founding member set and deposits their initial
// stakes into custody.
func (s *State) InitGenesis(doc *dao_types.GenesisDoc) error {
	s.SetChainId(doc.ChainID)
	for _, gm := range doc.Members {
		addr := gm.Address()
		existing, err := s.GetMember(addr)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyMember
		}
		rep := gm.Reputation
		if rep == 0 {
			rep = dao_types.DefaultReputation
		}
		m := &dao_types.Member{
			Address:    addr,
			PubKey:     append([]byte(nil), gm.PubKey...),
			Reputation: rep,
			Nonce:      0,
		}
		if gm.Stake > 0 {
			if err := s.bank.Deposit(addr, gm.Stake); err != nil {
				return fmt.Errorf("genesis stake for %s: %w", addr, err)
			}
			m.Stake = gm.Stake
			s.treasury += gm.Stake
			s.treasuryDirty = true
		}
		s.touchMember(m, ModifiedFlagNew)
		s.header.MemberCount += 1
	}
	return nil
}

// Members walks every member record in the tree and overlays the working
// set. Used by the query surface and by invariant checks.
func (s *State) Members() (members []*dao_types.Member, err error) {
	start := []byte(fmt.Sprintf(KeyMemberBody, ""))
	end := PrefixEndBytes(start)
	iter, err := s.db.Iterator(start, end, false)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	byAddr := make(map[string]*dao_types.Member)
	for ; iter.Valid(); iter.Next() {
		var m dao_types.Member
		if err = json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, err
		}
		byAddr[m.Address] = &m
	}
	for addr, m := range s.members {
		if m == nil {
			delete(byAddr, addr)
			continue
		}
		byAddr[addr] = m
	}

	addrs := make([]string, 0, len(byAddr))
	for addr := range byAddr {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		members = append(members, byAddr[addr])
	}
	return members, nil
}

func cloneMember(m *dao_types.Member) *dao_types.Member {
	if m == nil {
		return nil
	}
	n := *m
	n.PubKey = append([]byte(nil), m.PubKey...)
	return &n
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
