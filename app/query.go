package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nathaniel-cmd/bitcoin-dao/state"
	"github.com/nathaniel-cmd/bitcoin-dao/types"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/gin-gonic/gin"
)

// QueryService exposes the committed state over HTTP plus the two write
// entry points that do not require membership: transaction submission and
// treasury donations.
type QueryService struct {
	engine     *gin.Engine
	app        *DAOApp
	logger     cmtlog.Logger
	listenAddr string
}

func NewQueryService(listenAddr string, app *DAOApp, logger cmtlog.Logger) *QueryService {
	r := gin.Default()
	s := &QueryService{
		engine:     r,
		app:        app,
		logger:     logger.With("module", "query"),
		listenAddr: listenAddr,
	}
	s.engine.GET("/proposals/:id", s.handleGetProposal)
	s.engine.GET("/proposals/:id/votes/:address", s.handleGetVote)
	s.engine.GET("/members", s.handleGetMembers)
	s.engine.GET("/members/:address", s.handleGetMember)
	s.engine.GET("/members/:address/reputation", s.handleGetReputation)
	s.engine.GET("/treasury", s.handleGetTreasury)
	s.engine.GET("/stats", s.handleGetStats)
	s.engine.POST("/donate", s.handleDonate)
	s.engine.POST("/txs", s.handleSubmitTx)
	return s
}

func (s *QueryService) Start() {
	if err := s.engine.Run(s.listenAddr); err != nil {
		s.logger.Error("query service stopped", "err", err)
	}
}

type MemberInfo struct {
	Member      *types.Member `json:"member"`
	VotingPower uint64        `json:"votingPower"`
	Height      uint64        `json:"height"`
}

func (s *QueryService) handleGetMember(c *gin.Context) {
	addr := c.Param("address")
	member, height, err := s.app.DB().GetMember(addr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found", "height": height})
		return
	}
	c.JSON(http.StatusOK, MemberInfo{
		Member:      member,
		VotingPower: types.VotingPower(member),
		Height:      height,
	})
}

func (s *QueryService) handleGetReputation(c *gin.Context) {
	addr := c.Param("address")
	member, height, err := s.app.DB().GetMember(addr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found", "height": height})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":    member.Address,
		"reputation": member.Reputation,
		"height":     height,
	})
}

func (s *QueryService) handleGetMembers(c *gin.Context) {
	members, height, err := s.app.DB().Members()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	infos := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		infos = append(infos, MemberInfo{Member: m, VotingPower: types.VotingPower(m), Height: height})
	}
	c.JSON(http.StatusOK, gin.H{"members": infos, "total": len(infos), "height": height})
}

type ProposalInfo struct {
	Proposal *types.Proposal `json:"proposal"`
	Status   string          `json:"status"`
	Height   uint64          `json:"height"`
}

func (s *QueryService) handleGetProposal(c *gin.Context) {
	idx, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proposal, height, err := s.app.DB().GetProposal(idx)
	if err != nil {
		if errors.Is(err, state.ErrProposalNoexists) {
			c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found", "height": height})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProposalInfo{
		Proposal: proposal,
		Status:   proposal.Status.String(),
		Height:   height,
	})
}

func (s *QueryService) handleGetVote(c *gin.Context) {
	idx, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, height, err := s.app.DB().GetVote(idx, c.Param("address"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "vote not found", "height": height})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vote": rec, "height": height})
}

func (s *QueryService) handleGetTreasury(c *gin.Context) {
	balance, height := s.app.DB().TreasuryBalance()
	c.JSON(http.StatusOK, gin.H{"balance": balance, "height": height})
}

func (s *QueryService) handleGetStats(c *gin.Context) {
	totalMembers, totalProposals, height := s.app.DB().Counters()
	balance, _ := s.app.DB().TreasuryBalance()
	c.JSON(http.StatusOK, gin.H{
		"totalMembers":   totalMembers,
		"totalProposals": totalProposals,
		"treasury":       balance,
		"height":         height,
	})
}

type DonateReq struct {
	From   string `json:"from"`
	Amount uint64 `json:"amount"`
}

func (s *QueryService) handleDonate(c *gin.Context) {
	var req DonateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event, err := s.app.Donate(req.From, req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": state.ErrorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"treasury": event.Treasury})
}

// handleSubmitTx delivers a signed envelope directly to the working state.
// The result lands in the committed view at the next height.
func (s *QueryService) handleSubmitTx(c *gin.Context) {
	dat, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := s.app.DeliverTx(c.Request.Context(), dat)
	if !res.IsOK() {
		c.JSON(http.StatusBadRequest, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
