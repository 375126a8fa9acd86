package rpc

import "net/http"

type ledgerBalanceParams struct {
	Address string `json:"address"`
}

type ledgerDepositParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type ledgerEventsParams struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type ledgerEventResult struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) handleLedgerBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params ledgerBalanceParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	balance, err := s.node.Balance(addr)
	if err != nil {
		writeEngineError(w, req.ID, "failed to load balance", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"address": params.Address, "balance": bigString(balance)})
}

func (s *Server) handleLedgerDeposit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params ledgerDepositParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Deposit(addr, amount); err != nil {
		writeEngineError(w, req.ID, "failed to deposit", err)
		return
	}
	balance, err := s.node.Balance(addr)
	if err != nil {
		writeEngineError(w, req.ID, "failed to load balance", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"address": params.Address, "balance": bigString(balance)})
}

// handleLedgerEvents pages through the canonical event log. Params are
// optional; with none supplied the full log is returned.
func (s *Server) handleLedgerEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params ledgerEventsParams
	if len(req.Params) > 0 {
		if err := singleParam(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
	}
	events := s.node.Events()
	total := uint64(len(events))
	start := params.Offset
	if start > total {
		start = total
	}
	end := total
	if params.Limit > 0 && params.Limit < end-start {
		end = start + params.Limit
	}
	out := make([]ledgerEventResult, 0, end-start)
	for _, evt := range events[start:end] {
		out = append(out, ledgerEventResult{Type: evt.Type, Attributes: evt.Attributes})
	}
	writeResult(w, req.ID, map[string]interface{}{"total": total, "events": out})
}
