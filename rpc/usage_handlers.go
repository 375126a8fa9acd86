package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"promptledger/native/usage"
)

type usageRecordParams struct {
	Invoker   string `json:"invoker"`
	PromptID  uint64 `json:"promptId"`
	Caller    string `json:"caller"`
	Fee       string `json:"fee,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type usageListParams struct {
	PromptID uint64 `json:"promptId"`
	Offset   uint64 `json:"offset"`
	Limit    uint64 `json:"limit"`
}

type usagePromptCountParams struct {
	PromptID uint64 `json:"promptId"`
}

type usageCallerCallsParams struct {
	Caller string `json:"caller"`
}

type usageRecordResult struct {
	PromptID  uint64 `json:"promptId"`
	Caller    string `json:"caller"`
	Fee       string `json:"fee"`
	Timestamp int64  `json:"timestamp"`
	SessionID string `json:"sessionId"`
}

func formatUsageRecord(record *usage.Record) usageRecordResult {
	return usageRecordResult{
		PromptID:  record.PromptID,
		Caller:    formatAddress(record.Caller),
		Fee:       bigString(record.Fee),
		Timestamp: record.Timestamp,
		SessionID: record.SessionID,
	}
}

func (s *Server) handleUsageRecord(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params usageRecordParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	invokerAddr, err := decodeBech32(params.Invoker)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid invoker address", err.Error())
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	fee := big.NewInt(0)
	if strings.TrimSpace(params.Fee) != "" {
		fee, err = parseAmount(params.Fee)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
	}
	sessionID := strings.TrimSpace(params.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	record, err := s.node.RecordUsage(invokerAddr, params.PromptID, callerAddr, fee, sessionID)
	if err != nil {
		writeEngineError(w, req.ID, "failed to record usage", err)
		return
	}
	writeResult(w, req.ID, formatUsageRecord(record))
}

func (s *Server) handleUsageList(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params usageListParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	records, err := s.node.UsageRecords(params.PromptID, params.Offset, params.Limit)
	if err != nil {
		writeEngineError(w, req.ID, "failed to list usage records", err)
		return
	}
	out := make([]usageRecordResult, 0, len(records))
	for _, record := range records {
		out = append(out, formatUsageRecord(record))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleUsagePromptCount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params usagePromptCountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	count, err := s.node.PromptUsageCount(params.PromptID)
	if err != nil {
		writeEngineError(w, req.ID, "failed to count prompt usage", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"count": count})
}

func (s *Server) handleUsageCallerCalls(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params usageCallerCallsParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	calls, err := s.node.CallerTotalCalls(callerAddr)
	if err != nil {
		writeEngineError(w, req.ID, "failed to count caller calls", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"calls": calls})
}

func (s *Server) handleUsageTotal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	total, err := s.node.TotalUsageRecords()
	if err != nil {
		writeEngineError(w, req.ID, "failed to count usage records", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"total": total})
}
