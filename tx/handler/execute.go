package handler

import (
	"context"
	"strconv"

	"github.com/nathaniel-cmd/bitcoin-dao/state"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ExecuteTxHandler struct {
	logger cmtlog.Logger
}

func NewExecuteTxHandler(logger cmtlog.Logger) (h *ExecuteTxHandler) {
	logger = logger.With("module", "executeTx")
	h = &ExecuteTxHandler{
		logger: logger,
	}
	return
}

func (h *ExecuteTxHandler) Check(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	etx := btx.Tx.(*tx.ExecuteTx)
	if _, err1 := st.Execute(etx, btx.Sender, true); err1 != nil {
		h.logger.Info("CheckTx execute fail", "err", err1)
		return failResult(err1), nil
	}
	return &types.TxResult{Code: types.CodeOK}, nil
}

// Deliver settles the proposal. Data carries "true" when funds moved and
// "false" when the proposal was rejected; both are successful deliveries.
func (h *ExecuteTxHandler) Deliver(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error) {
	etx := btx.Tx.(*tx.ExecuteTx)
	event, err := st.Execute(etx, btx.Sender, false)
	if err != nil {
		return nil, err
	}
	res = &types.TxResult{Code: types.CodeOK}
	if event != nil {
		res.Data = []byte(strconv.FormatBool(event.Executed))
		res.Events = []types.Event{types.EncodeEventExecute(event)}
	}
	return
}
