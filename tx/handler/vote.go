package handler

import (
	"context"

	"github.com/nathaniel-cmd/bitcoin-dao/state"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type VoteTxHandler struct {
	logger cmtlog.Logger
}

func NewVoteTxHandler(logger cmtlog.Logger) (h *VoteTxHandler) {
	logger = logger.With("module", "voteTx")
	h = &VoteTxHandler{
		logger: logger,
	}
	return
}

func (h *VoteTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	vtx := btx.Tx.(*tx.VoteTx)
	if _, err1 := st.Vote(vtx, btx.Sender, true); err1 != nil {
		h.logger.Info("CheckTx vote fail", "err", err1)
		return failResult(err1), nil
	}
	return &types.TxResult{Code: types.CodeOK}, nil
}

func (h *VoteTxHandler) Deliver(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	vtx := btx.Tx.(*tx.VoteTx)
	event, err := st.Vote(vtx, btx.Sender, false)
	if err != nil {
		return nil, err
	}
	res = &types.TxResult{Code: types.CodeOK}
	if event != nil {
		res.Events = []types.Event{types.EncodeEventVote(event)}
	}
	return
}
