package rpc

import (
	"encoding/base64"
	"errors"
	"net/http"

	"promptledger/metadata"
)

type metadataPutParams struct {
	Content string `json:"content"`
}

type metadataGetParams struct {
	Ref string `json:"ref"`
}

func (s *Server) handleMetadataPut(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params metadataPutParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	content, err := base64.StdEncoding.DecodeString(params.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "content must be base64 encoded", err.Error())
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "content required", nil)
		return
	}
	ref, err := s.metadata.Put(content)
	if err != nil {
		if errors.Is(err, metadata.ErrMetadataUnavailable) {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidState, "metadata store unavailable", nil)
			return
		}
		writeEngineError(w, req.ID, "failed to store metadata", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"ref": ref})
}

func (s *Server) handleMetadataGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params metadataGetParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	content, err := s.metadata.Get(params.Ref)
	if err != nil {
		switch {
		case errors.Is(err, metadata.ErrInvalidRef):
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid metadata reference", nil)
		case errors.Is(err, metadata.ErrMetadataUnavailable):
			writeError(w, http.StatusBadRequest, req.ID, codeNotFound, "metadata not found", nil)
		default:
			writeEngineError(w, req.ID, "failed to load metadata", err)
		}
		return
	}
	writeResult(w, req.ID, map[string]string{
		"ref":     params.Ref,
		"content": base64.StdEncoding.EncodeToString(content),
	})
}
