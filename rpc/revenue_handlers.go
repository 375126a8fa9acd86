package rpc

import (
	"net/http"

	"promptledger/native/revenue"
)

type revenueDistributeParams struct {
	From    string `json:"from"`
	Creator string `json:"creator"`
	Amount  string `json:"amount"`
}

type revenueWithdrawParams struct {
	Creator string `json:"creator"`
}

type revenueSingletonParams struct {
	Caller string `json:"caller"`
}

type revenueUpdateSharesParams struct {
	Caller      string `json:"caller"`
	CreatorBps  uint32 `json:"creatorBps"`
	PlatformBps uint32 `json:"platformBps"`
	TreasuryBps uint32 `json:"treasuryBps"`
}

type revenueAvailableParams struct {
	Address string `json:"address"`
}

type revenueDistributionResult struct {
	Creator        string `json:"creator"`
	CreatorAmount  string `json:"creatorAmount"`
	PlatformAmount string `json:"platformAmount"`
	TreasuryAmount string `json:"treasuryAmount"`
	Total          string `json:"total"`
}

type revenueSharesResult struct {
	CreatorBps  uint32 `json:"creatorBps"`
	PlatformBps uint32 `json:"platformBps"`
	TreasuryBps uint32 `json:"treasuryBps"`
}

func formatDistribution(dist *revenue.Distribution) revenueDistributionResult {
	return revenueDistributionResult{
		Creator:        formatAddress(dist.Creator),
		CreatorAmount:  bigString(dist.CreatorAmount),
		PlatformAmount: bigString(dist.PlatformAmount),
		TreasuryAmount: bigString(dist.TreasuryAmount),
		Total:          bigString(dist.Total),
	}
}

func (s *Server) handleRevenueDistribute(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params revenueDistributeParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	fromAddr, err := decodeBech32(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid from address", err.Error())
		return
	}
	creatorAddr, err := decodeBech32(params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid creator address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	dist, err := s.node.DistributeRevenue(fromAddr, creatorAddr, amount)
	if err != nil {
		writeEngineError(w, req.ID, "failed to distribute revenue", err)
		return
	}
	writeResult(w, req.ID, formatDistribution(dist))
}

func (s *Server) handleRevenueWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params revenueWithdrawParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	creatorAddr, err := decodeBech32(params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid creator address", err.Error())
		return
	}
	amount, err := s.node.WithdrawEarnings(creatorAddr)
	if err != nil {
		writeEngineError(w, req.ID, "failed to withdraw earnings", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"creator": params.Creator, "amount": bigString(amount)})
}

func (s *Server) handleRevenueWithdrawPlatform(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params revenueSingletonParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := s.node.WithdrawPlatform(callerAddr)
	if err != nil {
		writeEngineError(w, req.ID, "failed to withdraw platform earnings", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": bigString(amount)})
}

func (s *Server) handleRevenueWithdrawTreasury(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params revenueSingletonParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := s.node.WithdrawTreasury(callerAddr)
	if err != nil {
		writeEngineError(w, req.ID, "failed to withdraw treasury earnings", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": bigString(amount)})
}

func (s *Server) handleRevenueUpdateShares(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params revenueUpdateSharesParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.UpdateRevenueShares(callerAddr, params.CreatorBps, params.PlatformBps, params.TreasuryBps); err != nil {
		writeEngineError(w, req.ID, "failed to update shares", err)
		return
	}
	writeResult(w, req.ID, revenueSharesResult{
		CreatorBps:  params.CreatorBps,
		PlatformBps: params.PlatformBps,
		TreasuryBps: params.TreasuryBps,
	})
}

func (s *Server) handleRevenueAvailable(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params revenueAvailableParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	amount, err := s.node.AvailableEarnings(addr)
	if err != nil {
		writeEngineError(w, req.ID, "failed to load earnings", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": bigString(amount)})
}

func (s *Server) handleRevenuePlatform(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	amount, err := s.node.PlatformEarnings()
	if err != nil {
		writeEngineError(w, req.ID, "failed to load platform earnings", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": bigString(amount)})
}

func (s *Server) handleRevenueTreasury(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	amount, err := s.node.TreasuryEarnings()
	if err != nil {
		writeEngineError(w, req.ID, "failed to load treasury earnings", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": bigString(amount)})
}

func (s *Server) handleRevenueShares(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	shares, err := s.node.RevenueShares()
	if err != nil {
		writeEngineError(w, req.ID, "failed to load shares", err)
		return
	}
	writeResult(w, req.ID, revenueSharesResult{
		CreatorBps:  shares.CreatorBps,
		PlatformBps: shares.PlatformBps,
		TreasuryBps: shares.TreasuryBps,
	})
}
