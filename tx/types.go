package tx

import "errors"

type DAOTxType uint8

const (
	DAOTxTypeUnknown  DAOTxType = 0
	DAOTxTypeJoin     DAOTxType = 1
	DAOTxTypeLeave    DAOTxType = 2
	DAOTxTypeStake    DAOTxType = 3
	DAOTxTypeUnstake  DAOTxType = 4
	DAOTxTypeProposal DAOTxType = 5
	DAOTxTypeVote     DAOTxType = 6
	DAOTxTypeExecute  DAOTxType = 7
)

const (
	DAOTxVersion0 uint8 = 0
)

var (
	ErrInvalidTx         = errors.New("invalid tx")
	ErrUnsupportedTxType = errors.New("unsupported tx type")
	ErrUnmatchedTxType   = errors.New("unmatched tx type")
)
