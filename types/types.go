package types

import (
	"fmt"
	"strconv"
)

const (
	EventJoinType     = "join"
	EventLeaveType    = "leave"
	EventStakeType    = "stake"
	EventUnstakeType  = "unstake"
	EventProposalType = "proposal"
	EventVoteType     = "vote"
	EventExecuteType  = "execute"
	EventDonationType = "donation"
)

// Result codes surfaced to callers. Callers branch on these, so the values
// are stable.
const (
	CodeOK                uint32 = 0
	CodeNotAuthorized     uint32 = 1
	CodeAlreadyMember     uint32 = 2
	CodeNotMember         uint32 = 3
	CodeInvalidProposal   uint32 = 4
	CodeProposalExpired   uint32 = 5
	CodeAlreadyVoted      uint32 = 6
	CodeInsufficientFunds uint32 = 7
	CodeInvalidAmount     uint32 = 8
	CodeUnknown           uint32 = 99
)

type Member struct {
	Address    string `json:"address"`
	PubKey     []byte `json:"pubKey"`
	Reputation uint64 `json:"reputation"`
	Stake      uint64 `json:"stake"`
	LastActive uint64 `json:"lastActive"`
	Nonce      uint64 `json:"nonce"`
}

// CreditReputation applies a signed delta, clamping at zero. Reputation is
// stored unsigned but governance credits can be negative.
func (m *Member) CreditReputation(delta int64) {
	r := int64(m.Reputation) + delta
	if r < 0 {
		r = 0
	}
	m.Reputation = uint64(r)
}

// Touch refreshes the member's activity height.
func (m *Member) Touch(height uint64) {
	m.LastActive = height
}

// VotingPower is the governance weight of a member record at the moment a
// vote is cast. A cast vote's contribution to a tally is a frozen snapshot;
// later reputation or stake changes do not reweigh it.
func VotingPower(m *Member) uint64 {
	return m.Reputation*10 + m.Stake
}

type ProposalStatus uint64

const (
	ProposalStatusActive   ProposalStatus = 1
	ProposalStatusExecuted ProposalStatus = 2
	ProposalStatusRejected ProposalStatus = 3
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusActive:
		return "active"
	case ProposalStatusExecuted:
		return "executed"
	case ProposalStatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", uint64(s))
	}
}

type Proposal struct {
	Index       uint64         `json:"index"`
	Creator     string         `json:"creator"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Amount      uint64         `json:"amount"`
	YesWeight   uint64         `json:"yesWeight"`
	NoWeight    uint64         `json:"noWeight"`
	Status      ProposalStatus `json:"status"`
	Height      uint64         `json:"height"`
	EndHeight   uint64         `json:"endHeight"`
	// PartnerOrg annotates cross-entity collaboration proposals. It is
	// stored verbatim and never interpreted by the engine.
	PartnerOrg string `json:"partnerOrg,omitempty"`
}

// Votable reports whether the proposal still accepts votes at the given
// height. A proposal whose window has elapsed accepts no votes even if its
// status has not been settled yet.
func (p *Proposal) Votable(height uint64) bool {
	return p.Status == ProposalStatusActive && height < p.EndHeight
}

type VoteRecord struct {
	Proposal uint64 `json:"proposal"`
	Voter    string `json:"voter"`
	Approve  bool   `json:"approve"`
	Weight   uint64 `json:"weight"`
	Height   uint64 `json:"height"`
}

// TxResult is the outcome of a transaction check or delivery.
type TxResult struct {
	Code   uint32  `json:"code"`
	Log    string  `json:"log,omitempty"`
	Data   []byte  `json:"data,omitempty"`
	Events []Event `json:"events,omitempty"`
}

func (r *TxResult) IsOK() bool {
	return r.Code == CodeOK
}

type Event struct {
	Type       string           `json:"type"`
	Attributes []EventAttribute `json:"attributes"`
}

type EventAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func attrUint(key string, v uint64) EventAttribute {
	return EventAttribute{Key: key, Value: strconv.FormatUint(v, 10)}
}

func attrBool(key string, v bool) EventAttribute {
	return EventAttribute{Key: key, Value: strconv.FormatBool(v)}
}

func attrStr(key, v string) EventAttribute {
	return EventAttribute{Key: key, Value: v}
}
