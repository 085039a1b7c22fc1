package handler

import (
	"context"

	"github.com/nathaniel-cmd/bitcoin-dao/state"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type JoinTxHandler struct {
	logger cmtlog.Logger
}

func NewJoinTxHandler(logger cmtlog.Logger) (h *JoinTxHandler) {
	logger = logger.With("module", "joinTx")
	h = &JoinTxHandler{
		logger: logger,
	}
	return
}

func (h *JoinTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	jtx := btx.Tx.(*tx.JoinTx)
	if _, err1 := st.Join(jtx, btx.Sender, true); err1 != nil {
		h.logger.Info("CheckTx join fail", "err", err1)
		return failResult(err1), nil
	}
	return &types.TxResult{Code: types.CodeOK}, nil
}

func (h *JoinTxHandler) Deliver(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	jtx := btx.Tx.(*tx.JoinTx)
	event, err := st.Join(jtx, btx.Sender, false)
	if err != nil {
		return nil, err
	}
	res = &types.TxResult{Code: types.CodeOK}
	if event != nil {
		res.Events = []types.Event{types.EncodeEventJoin(event)}
	}
	return
}

type LeaveTxHandler struct {
	logger cmtlog.Logger
}

func NewLeaveTxHandler(logger cmtlog.Logger) (h *LeaveTxHandler) {
	logger = logger.With("module", "leaveTx")
	h = &LeaveTxHandler{
		logger: logger,
	}
	return
}

func (h *LeaveTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	if _, err1 := st.Leave(btx.Sender, true); err1 != nil {
		h.logger.Info("CheckTx leave fail", "err", err1)
		return failResult(err1), nil
	}
	return &types.TxResult{Code: types.CodeOK}, nil
}

func (h *LeaveTxHandler) Deliver(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	event, err := st.Leave(btx.Sender, false)
	if err != nil {
		return nil, err
	}
	res = &types.TxResult{Code: types.CodeOK}
	if event != nil {
		res.Events = []types.Event{types.EncodeEventLeave(event)}
	}
	return
}
