package rpc

import (
	"net/http"

	"promptledger/native/creator"
)

type creatorRegisterParams struct {
	Caller     string `json:"caller"`
	Username   string `json:"username"`
	ProfileURI string `json:"profileUri"`
}

type creatorUpdateProfileParams struct {
	Caller     string `json:"caller"`
	ProfileURI string `json:"profileUri"`
}

type creatorUpdateReputationParams struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
	Score  uint64 `json:"score"`
}

type creatorVerifyParams struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
}

type creatorGetParams struct {
	Address string `json:"address"`
}

type creatorProfileResult struct {
	Address         string `json:"address"`
	Username        string `json:"username"`
	ProfileURI      string `json:"profileUri"`
	TotalPrompts    uint64 `json:"totalPrompts"`
	TotalUsage      uint64 `json:"totalUsage"`
	TotalEarnings   string `json:"totalEarnings"`
	ReputationScore uint64 `json:"reputationScore"`
	JoinedAt        int64  `json:"joinedAt"`
	Verified        bool   `json:"verified"`
}

func formatCreatorProfile(profile *creator.Profile) creatorProfileResult {
	return creatorProfileResult{
		Address:         formatAddress(profile.Address),
		Username:        profile.Username,
		ProfileURI:      profile.ProfileURI,
		TotalPrompts:    profile.TotalPrompts,
		TotalUsage:      profile.TotalUsage,
		TotalEarnings:   bigString(profile.TotalEarnings),
		ReputationScore: profile.ReputationScore,
		JoinedAt:        profile.JoinedAt,
		Verified:        profile.Verified,
	}
}

func (s *Server) handleCreatorRegister(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params creatorRegisterParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	profile, err := s.node.RegisterCreator(callerAddr, params.Username, params.ProfileURI)
	if err != nil {
		writeEngineError(w, req.ID, "failed to register creator", err)
		return
	}
	writeResult(w, req.ID, formatCreatorProfile(profile))
}

func (s *Server) handleCreatorUpdateProfile(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params creatorUpdateProfileParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	profile, err := s.node.UpdateCreatorProfile(callerAddr, params.ProfileURI)
	if err != nil {
		writeEngineError(w, req.ID, "failed to update profile", err)
		return
	}
	writeResult(w, req.ID, formatCreatorProfile(profile))
}

func (s *Server) handleCreatorUpdateReputation(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params creatorUpdateReputationParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	targetAddr, err := decodeBech32(params.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid target address", err.Error())
		return
	}
	if err := s.node.UpdateCreatorReputation(callerAddr, targetAddr, params.Score); err != nil {
		writeEngineError(w, req.ID, "failed to update reputation", err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"target": params.Target, "score": params.Score})
}

func (s *Server) handleCreatorVerify(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params creatorVerifyParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	targetAddr, err := decodeBech32(params.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid target address", err.Error())
		return
	}
	if err := s.node.VerifyCreator(callerAddr, targetAddr); err != nil {
		writeEngineError(w, req.ID, "failed to verify creator", err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"target": params.Target, "verified": true})
}

func (s *Server) handleCreatorGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params creatorGetParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	profile, ok, err := s.node.CreatorProfile(addr)
	if err != nil {
		writeEngineError(w, req.ID, "failed to load profile", err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeNotFound, "creator not registered", nil)
		return
	}
	writeResult(w, req.ID, formatCreatorProfile(profile))
}

func (s *Server) handleCreatorTotal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	total, err := s.node.TotalCreators()
	if err != nil {
		writeEngineError(w, req.ID, "failed to count creators", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"total": total})
}
