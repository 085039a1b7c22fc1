package state

import (
	"sync"

	"github.com/nathaniel-cmd/bitcoin-dao/bank"
	dao_types "github.com/nathaniel-cmd/bitcoin-dao/types"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

// StateDB owns the governance tree and the committed state. It is the
// transactional boundary: working states are produced by NewState, mutated
// serially, and swapped in atomically by SetState.
type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, bankSvc bank.Transfer, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "daodb")
	ldb, err := dbm.NewDB(dao_types.DAOModuleName, "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	tdb := iavl.NewMutableTree(ldb, 128, true, WrapCosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, bankSvc, logger)
	err = st.load()
	if err != nil {
		logger.Error("from daodb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		db:     tdb,
		state:  st,
	}
	return
}

func (db *StateDB) Close() (err error) {
	err = db.db.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

// NewState derives the working state for the next height.
func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

// SetState commits the working state and makes it the new committed view.
func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

func (db *StateDB) GetMember(addr string) (member *dao_types.Member, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	member, err = db.state.GetMember(addr)
	if err != nil {
		return
	}
	member = cloneMember(member)
	height = db.state.header.Height
	return
}

func (db *StateDB) GetProposal(idx uint64) (proposal *dao_types.Proposal, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	proposal, err = db.state.GetProposal(idx)
	if err != nil {
		return
	}
	if proposal != nil {
		p := *proposal
		proposal = &p
	}
	height = db.state.header.Height
	return
}

func (db *StateDB) GetVote(proposalIdx uint64, addr string) (rec *dao_types.VoteRecord, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	rec, err = db.state.GetVote(proposalIdx, addr)
	if err != nil {
		return
	}
	if rec != nil {
		r := *rec
		rec = &r
	}
	height = db.state.header.Height
	return
}

func (db *StateDB) Members() (members []*dao_types.Member, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	members, err = db.state.Members()
	if err != nil {
		return
	}
	for i := range members {
		members[i] = cloneMember(members[i])
	}
	height = db.state.header.Height
	return
}

func (db *StateDB) TreasuryBalance() (balance uint64, height uint64) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state.treasury, db.state.header.Height
}

func (db *StateDB) Counters() (totalMembers uint64, totalProposals uint64, height uint64) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state.header.MemberCount, db.state.proposalMaxIndex, db.state.header.Height
}
