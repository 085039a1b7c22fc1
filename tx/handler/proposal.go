package handler

import (
	"context"
	"strconv"

	"github.com/nathaniel-cmd/bitcoin-dao/state"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ProposalTxHandler struct {
	logger cmtlog.Logger
}

func NewProposalTxHandler(logger cmtlog.Logger) (h *ProposalTxHandler) {
	logger = logger.With("module", "proposalTx")
	h = &ProposalTxHandler{
		logger: logger,
	}
	return
}

func (h *ProposalTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	ptx := btx.Tx.(*tx.ProposalTx)
	if _, err1 := st.CreateProposal(ptx, btx.Sender, true); err1 != nil {
		h.logger.Info("CheckTx proposal fail", "err", err1)
		return failResult(err1), nil
	}
	return &types.TxResult{Code: types.CodeOK}, nil
}

func (h *ProposalTxHandler) Deliver(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	ptx := btx.Tx.(*tx.ProposalTx)
	event, err := st.CreateProposal(ptx, btx.Sender, false)
	if err != nil {
		return nil, err
	}
	res = &types.TxResult{Code: types.CodeOK}
	if event != nil {
		res.Events = []types.Event{types.EncodeEventProposal(event)}
		res.Data = []byte(strconv.FormatUint(event.ProposalIndex, 10))
	}
	return
}
