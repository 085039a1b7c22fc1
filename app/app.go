package app

import (
	"context"
	"sync"
	"time"

	"github.com/nathaniel-cmd/bitcoin-dao/bank"
	"github.com/nathaniel-cmd/bitcoin-dao/config"
	"github.com/nathaniel-cmd/bitcoin-dao/state"
	"github.com/nathaniel-cmd/bitcoin-dao/tx"
	"github.com/nathaniel-cmd/bitcoin-dao/tx/handler"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

// DAOApp wires the governance engine together: the state db, the bank
// service and one handler per transaction type. Public operations are
// serialized behind its mutex; each height's working state is committed as a
// unit and the logical clock advances once per commit.
type DAOApp struct {
	cfg    *config.DAOAppConfig
	logger cmtlog.Logger

	db      *state.StateDB
	bankSvc bank.Transfer
	txHdlrs map[tx.DAOTxType]handler.TxHandler

	mtx sync.Mutex
	st  *state.State
}

func NewDAOApp(cfg *config.DAOAppConfig, bankSvc bank.Transfer, logger cmtlog.Logger) (app *DAOApp, err error) {
	logger = logger.With("module", "app")

	dir := cfg.Home + "/data"
	db, err := state.NewStateDB(dir, bankSvc, logger)
	if err != nil {
		return nil, err
	}

	app = &DAOApp{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		bankSvc: bankSvc,
		txHdlrs: make(map[tx.DAOTxType]handler.TxHandler),
	}
	app.registerTxHandler()
	app.st = db.NewState()
	return
}

func (app *DAOApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("DAO app stopped")
}

func (app *DAOApp) registerTxHandler() {
	app.txHdlrs = map[tx.DAOTxType]handler.TxHandler{
		tx.DAOTxTypeJoin:     handler.NewJoinTxHandler(app.logger),
		tx.DAOTxTypeLeave:    handler.NewLeaveTxHandler(app.logger),
		tx.DAOTxTypeStake:    handler.NewStakeTxHandler(app.logger),
		tx.DAOTxTypeUnstake:  handler.NewUnstakeTxHandler(app.logger),
		tx.DAOTxTypeProposal: handler.NewProposalTxHandler(app.logger),
		tx.DAOTxTypeVote:     handler.NewVoteTxHandler(app.logger),
		tx.DAOTxTypeExecute:  handler.NewExecuteTxHandler(app.logger),
	}
}

func (app *DAOApp) DB() *state.StateDB {
	return app.db
}

// InitChain seeds the state from a genesis doc. A second call on an already
// initialized db is a no-op.
func (app *DAOApp) InitChain(doc *types.GenesisDoc) (err error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	if app.db.Header().Hash != nil {
		return nil
	}
	st := app.db.NewState()
	if err = st.InitGenesis(doc); err != nil {
		app.logger.Error("InitChain genesis fail", "err", err)
		return err
	}
	if _, err = st.Update(); err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return err
	}
	if _, err = app.db.SetState(st); err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return err
	}
	app.st = app.db.NewState()
	return nil
}

// CheckTx dry-runs a transaction's preconditions against the working state.
func (app *DAOApp) CheckTx(ctx context.Context, dat []byte) (res *types.TxResult) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	btx, err := tx.UnmarshalDAOTx(dat)
	if err != nil {
		return &types.TxResult{Code: types.CodeUnknown, Log: err.Error()}
	}
	return app.runTx(ctx, btx, true)
}

// DeliverTx authenticates and applies a transaction to the working state.
// Either every effect of the transaction lands or none does.
func (app *DAOApp) DeliverTx(ctx context.Context, dat []byte) (res *types.TxResult) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	btx, err := tx.UnmarshalDAOTx(dat)
	if err != nil {
		return &types.TxResult{Code: types.CodeUnknown, Log: err.Error()}
	}
	return app.runTx(ctx, btx, false)
}

func (app *DAOApp) runTx(ctx context.Context, btx *tx.DAOTx, checkOnly bool) (res *types.TxResult) {
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		return &types.TxResult{Code: types.CodeUnknown, Log: tx.ErrUnsupportedTxType.Error()}
	}
	if _, err := app.st.Verify(btx); err != nil {
		app.logger.Info("tx verify fail", "type", btx.Type, "sender", btx.Sender, "err", err)
		return &types.TxResult{Code: state.ErrorCode(err), Log: err.Error()}
	}
	var err error
	if checkOnly {
		res, err = h.Check(ctx, app.st, btx)
	} else {
		res, err = h.Deliver(ctx, app.st, btx)
	}
	if err != nil {
		return &types.TxResult{Code: state.ErrorCode(err), Log: err.Error()}
	}
	return res
}

// Donate credits the treasury from an external account. Pass-through entry
// point; no membership or signature involved.
func (app *DAOApp) Donate(from string, amount uint64) (event *types.EventDonation, err error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	return app.st.Donate(from, amount, false)
}

// Commit flushes the working state, makes it the committed view and starts
// the next height. The logical clock ticks here and nowhere else.
func (app *DAOApp) Commit() (hash common.Hash, err error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	if _, err = app.st.Update(); err != nil {
		app.logger.Error("commit update fail", "err", err)
		app.st = app.db.NewState()
		return
	}
	hash, err = app.db.SetState(app.st)
	if err != nil {
		app.logger.Error("commit save fail", "err", err)
		return
	}
	app.st = app.db.NewState()
	return
}

func (app *DAOApp) Height() uint64 {
	return app.db.Header().Height
}

// Run commits heights on a fixed interval until the context is cancelled.
func (app *DAOApp) Run(ctx context.Context) {
	interval := app.cfg.CommitInterval
	if interval <= 0 {
		interval = time.Second * 5
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hash, err := app.Commit()
			if err != nil {
				app.logger.Error("commit fail", "err", err)
				continue
			}
			app.logger.Debug("committed height", "height", app.Height(), "hash", hash.Hex())
		}
	}
}
