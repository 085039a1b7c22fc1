package types

import "strconv"

type EventJoin struct {
	Address    string `json:"address"`
	Reputation uint64 `json:"reputation"`
	Height     uint64 `json:"height"`
}

func EncodeEventJoin(event *EventJoin) Event {
	return Event{
		Type: EventJoinType,
		Attributes: []EventAttribute{
			attrStr("address", event.Address),
			attrUint("reputation", event.Reputation),
			attrUint("height", event.Height),
		},
	}
}

type EventLeave struct {
	Address       string `json:"address"`
	StrandedStake uint64 `json:"strandedStake"`
	Height        uint64 `json:"height"`
}

func EncodeEventLeave(event *EventLeave) Event {
	return Event{
		Type: EventLeaveType,
		Attributes: []EventAttribute{
			attrStr("address", event.Address),
			attrUint("strandedStake", event.StrandedStake),
			attrUint("height", event.Height),
		},
	}
}

type EventStake struct {
	Address  string `json:"address"`
	Amount   uint64 `json:"amount"`
	NewStake uint64 `json:"newStake"`
	Treasury uint64 `json:"treasury"`
}

func EncodeEventStake(event *EventStake) Event {
	return Event{
		Type: EventStakeType,
		Attributes: []EventAttribute{
			attrStr("address", event.Address),
			attrUint("amount", event.Amount),
			attrUint("newStake", event.NewStake),
			attrUint("treasury", event.Treasury),
		},
	}
}

type EventUnstake struct {
	Address  string `json:"address"`
	Amount   uint64 `json:"amount"`
	NewStake uint64 `json:"newStake"`
	Treasury uint64 `json:"treasury"`
}

func EncodeEventUnstake(event *EventUnstake) Event {
	return Event{
		Type: EventUnstakeType,
		Attributes: []EventAttribute{
			attrStr("address", event.Address),
			attrUint("amount", event.Amount),
			attrUint("newStake", event.NewStake),
			attrUint("treasury", event.Treasury),
		},
	}
}

type EventProposal struct {
	ProposalIndex uint64 `json:"proposalIndex"`
	Creator       string `json:"creator"`
	Title         string `json:"title"`
	Amount        uint64 `json:"amount"`
	EndHeight     uint64 `json:"endHeight"`
	PartnerOrg    string `json:"partnerOrg,omitempty"`
}

func EncodeEventProposal(event *EventProposal) Event {
	return Event{
		Type: EventProposalType,
		Attributes: []EventAttribute{
			attrUint("proposal", event.ProposalIndex),
			attrStr("creator", event.Creator),
			attrStr("title", event.Title),
			attrUint("amount", event.Amount),
			attrUint("endHeight", event.EndHeight),
			attrStr("partnerOrg", event.PartnerOrg),
		},
	}
}

func DecodeEventProposal(originEvent Event) *EventProposal {
	event := &EventProposal{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalIndex = proposal
		case "creator":
			event.Creator = v.Value
		case "title":
			event.Title = v.Value
		case "amount":
			amount, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Amount = amount
		case "endHeight":
			endHeight, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.EndHeight = endHeight
		case "partnerOrg":
			event.PartnerOrg = v.Value
		}
	}
	return event
}

type EventVote struct {
	ProposalIndex uint64 `json:"proposalIndex"`
	Voter         string `json:"voter"`
	Approve       bool   `json:"approve"`
	Weight        uint64 `json:"weight"`
}

func EncodeEventVote(event *EventVote) Event {
	return Event{
		Type: EventVoteType,
		Attributes: []EventAttribute{
			attrUint("proposal", event.ProposalIndex),
			attrStr("voter", event.Voter),
			attrBool("approve", event.Approve),
			attrUint("weight", event.Weight),
		},
	}
}

func DecodeEventVote(originEvent Event) *EventVote {
	event := &EventVote{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalIndex = proposal
		case "voter":
			event.Voter = v.Value
		case "approve":
			approve, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Approve = approve
		case "weight":
			weight, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Weight = weight
		}
	}
	return event
}

type EventExecute struct {
	ProposalIndex uint64 `json:"proposalIndex"`
	Creator       string `json:"creator"`
	Executed      bool   `json:"executed"`
	Payout        uint64 `json:"payout"`
	Treasury      uint64 `json:"treasury"`
}

func EncodeEventExecute(event *EventExecute) Event {
	return Event{
		Type: EventExecuteType,
		Attributes: []EventAttribute{
			attrUint("proposal", event.ProposalIndex),
			attrStr("creator", event.Creator),
			attrBool("executed", event.Executed),
			attrUint("payout", event.Payout),
			attrUint("treasury", event.Treasury),
		},
	}
}

func DecodeEventExecute(originEvent Event) *EventExecute {
	event := &EventExecute{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalIndex = proposal
		case "creator":
			event.Creator = v.Value
		case "executed":
			executed, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Executed = executed
		case "payout":
			payout, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Payout = payout
		case "treasury":
			treasury, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Treasury = treasury
		}
	}
	return event
}

type EventDonation struct {
	From     string `json:"from"`
	Amount   uint64 `json:"amount"`
	Treasury uint64 `json:"treasury"`
}

func EncodeEventDonation(event *EventDonation) Event {
	return Event{
		Type: EventDonationType,
		Attributes: []EventAttribute{
			attrStr("from", event.From),
			attrUint("amount", event.Amount),
			attrUint("treasury", event.Treasury),
		},
	}
}
