package rpc

import "net/http"

type authzGrantParams struct {
	Resource string `json:"resource"`
	Caller   string `json:"caller"`
	Identity string `json:"identity"`
}

type authzCheckParams struct {
	Resource string `json:"resource"`
	Identity string `json:"identity"`
}

type authzAdminParams struct {
	Resource string `json:"resource"`
}

func (s *Server) handleAuthzGrant(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params authzGrantParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	identityAddr, err := decodeBech32(params.Identity)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid identity address", err.Error())
		return
	}
	if err := s.node.Authorize(params.Resource, callerAddr, identityAddr); err != nil {
		writeEngineError(w, req.ID, "failed to grant authorization", err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"resource": params.Resource, "identity": params.Identity, "authorized": true})
}

func (s *Server) handleAuthzRevoke(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params authzGrantParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	identityAddr, err := decodeBech32(params.Identity)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid identity address", err.Error())
		return
	}
	if err := s.node.RevokeAuthorization(params.Resource, callerAddr, identityAddr); err != nil {
		writeEngineError(w, req.ID, "failed to revoke authorization", err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"resource": params.Resource, "identity": params.Identity, "authorized": false})
}

func (s *Server) handleAuthzCheck(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params authzCheckParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	identityAddr, err := decodeBech32(params.Identity)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid identity address", err.Error())
		return
	}
	authorized, err := s.node.IsAuthorized(params.Resource, identityAddr)
	if err != nil {
		writeEngineError(w, req.ID, "failed to check authorization", err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"authorized": authorized})
}

func (s *Server) handleAuthzAdmin(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params authzAdminParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	admin, err := s.node.ResourceAdmin(params.Resource)
	if err != nil {
		writeEngineError(w, req.ID, "failed to load resource admin", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"resource": params.Resource, "admin": formatAddress(admin)})
}
