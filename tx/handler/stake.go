package handler

import (
	"context"

	"github.com/nathaniel-cmd/bitcoin-dao/state"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type StakeTxHandler struct {
	logger cmtlog.Logger
}

func NewStakeTxHandler(logger cmtlog.Logger) (h *StakeTxHandler) {
	logger = logger.With("module", "stakeTx")
	h = &StakeTxHandler{
		logger: logger,
	}
	return
}

func (h *StakeTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	stx := btx.Tx.(*tx.StakeTx)
	if _, err1 := st.Stake(stx, btx.Sender, true); err1 != nil {
		h.logger.Info("CheckTx stake fail", "err", err1)
		return failResult(err1), nil
	}
	return &types.TxResult{Code: types.CodeOK}, nil
}

func (h *StakeTxHandler) Deliver(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	stx := btx.Tx.(*tx.StakeTx)
	event, err := st.Stake(stx, btx.Sender, false)
	if err != nil {
		return nil, err
	}
	res = &types.TxResult{Code: types.CodeOK}
	if event != nil {
		res.Events = []types.Event{types.EncodeEventStake(event)}
	}
	return
}

type UnstakeTxHandler struct {
	logger cmtlog.Logger
}

func NewUnstakeTxHandler(logger cmtlog.Logger) (h *UnstakeTxHandler) {
	logger = logger.With("module", "unstakeTx")
	h = &UnstakeTxHandler{
		logger: logger,
	}
	return
}

func (h *UnstakeTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	utx := btx.Tx.(*tx.UnstakeTx)
	if _, err1 := st.Unstake(utx, btx.Sender, true); err1 != nil {
		h.logger.Info("CheckTx unstake fail", "err", err1)
		return failResult(err1), nil
	}
	return &types.TxResult{Code: types.CodeOK}, nil
}

func (h *UnstakeTxHandler) Deliver(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	utx := btx.Tx.(*tx.UnstakeTx)
	event, err := st.Unstake(utx, btx.Sender, false)
	if err != nil {
		return nil, err
	}
	res = &types.TxResult{Code: types.CodeOK}
	if event != nil {
		res.Events = []types.Event{types.EncodeEventUnstake(event)}
	}
	return
}
