package handler

import (
	"context"

	"github.com/nathaniel-cmd/bitcoin-dao/state"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	"github.com/nathaniel-cmd/bitcoin-dao/types"
)

// TxHandler applies one transaction type. Check dry-runs the preconditions
// against the working state; Deliver applies the mutation and emits events.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error)
	Deliver(ctx context.Context, st *state.State, btx *tx.DAOTx) (res *types.TxResult, err error)
}

func failResult(err error) *types.TxResult {
	return &types.TxResult{
		Code: state.ErrorCode(err),
		Log:  err.Error(),
	}
}
