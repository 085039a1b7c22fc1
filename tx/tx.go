package tx

import (
	"encoding/json"
)

// DAOTx is the signed envelope every governance transaction travels in. The
// sender is the caller's identity; the signature binds the envelope to the
// chain id passed into SigData.
type DAOTx struct {
	Version uint8     `json:"version"`
	Type    DAOTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	Sender  string    `json:"sender"`
	Tx      any       `json:"tx"`
	Sig     [][]byte  `json:"sig"`
}

// JoinTx registers the sender. It carries the sender's public key so the
// envelope can be verified before a member record exists.
type JoinTx struct {
	PubKey []byte `json:"pubkey"`
}

type LeaveTx struct{}

type StakeTx struct {
	Amount uint64 `json:"amount"`
}

type UnstakeTx struct {
	Amount uint64 `json:"amount"`
}

type ProposalTx struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
	PartnerOrg  string `json:"partnerOrg,omitempty"`
}

type VoteTx struct {
	Proposal uint64 `json:"proposal"`
	Approve  bool   `json:"approve"`
}

type ExecuteTx struct {
	Proposal uint64 `json:"proposal"`
}

type daoTxTmpl[Tx any] struct {
	Version uint8     `json:"version"`
	Type    DAOTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	Sender  string    `json:"sender"`
	Tx      Tx        `json:"tx"`
	Sig     [][]byte  `json:"sig"`
}

// SigData is the canonical byte string a sender signs: the envelope with the
// signature slot replaced by the chain id.
func (btx *DAOTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *btx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

func parseDAOTxType(dat []byte) (DAOTxType, error) {
	var btx struct {
		Type DAOTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &btx)
	if err != nil {
		return DAOTxTypeUnknown, ErrInvalidTx
	}
	return btx.Type, nil
}

func unmarshalDAOTx[Tx any](dat []byte) (btx *DAOTx, err error) {
	var txt daoTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	btx = new(DAOTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Sender = txt.Sender
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalDAOTx(dat []byte) (btx *DAOTx, err error) {
	tp, err := parseDAOTxType(dat)
	if err != nil {
		return nil, err
	}
	switch tp {
	case DAOTxTypeJoin:
		return unmarshalDAOTx[JoinTx](dat)
	case DAOTxTypeLeave:
		return unmarshalDAOTx[LeaveTx](dat)
	case DAOTxTypeStake:
		return unmarshalDAOTx[StakeTx](dat)
	case DAOTxTypeUnstake:
		return unmarshalDAOTx[UnstakeTx](dat)
	case DAOTxTypeProposal:
		return unmarshalDAOTx[ProposalTx](dat)
	case DAOTxTypeVote:
		return unmarshalDAOTx[VoteTx](dat)
	case DAOTxTypeExecute:
		return unmarshalDAOTx[ExecuteTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalDAOTx(btx *DAOTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
