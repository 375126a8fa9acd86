package rpc

import (
	"encoding/hex"
	"net/http"

	"promptledger/native/prompt"
)

type promptMintParams struct {
	Caller      string `json:"caller"`
	ContentHash string `json:"contentHash"`
	ModelType   string `json:"modelType"`
	RoyaltyBps  uint32 `json:"royaltyBps"`
	MetadataURI string `json:"metadataUri"`
}

type promptGetParams struct {
	ID uint64 `json:"id"`
}

type promptAssetResult struct {
	ID          uint64 `json:"id"`
	ContentHash string `json:"contentHash"`
	ModelType   string `json:"modelType"`
	Creator     string `json:"creator"`
	UsageCount  uint64 `json:"usageCount"`
	RoyaltyBps  uint32 `json:"royaltyBps"`
	MetadataURI string `json:"metadataUri"`
	CreatedAt   int64  `json:"createdAt"`
}

func formatPromptAsset(asset *prompt.Asset) promptAssetResult {
	return promptAssetResult{
		ID:          asset.ID,
		ContentHash: "0x" + hex.EncodeToString(asset.ContentHash[:]),
		ModelType:   asset.ModelType,
		Creator:     formatAddress(asset.Creator),
		UsageCount:  asset.UsageCount,
		RoyaltyBps:  asset.RoyaltyBps,
		MetadataURI: asset.MetadataURI,
		CreatedAt:   asset.CreatedAt,
	}
}

func (s *Server) handlePromptMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params promptMintParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	hash, err := parseHash(params.ContentHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := s.node.MintPrompt(callerAddr, hash, params.ModelType, params.RoyaltyBps, params.MetadataURI)
	if err != nil {
		writeEngineError(w, req.ID, "failed to mint prompt", err)
		return
	}
	writeResult(w, req.ID, formatPromptAsset(asset))
}

func (s *Server) handlePromptGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params promptGetParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, ok, err := s.node.PromptAsset(params.ID)
	if err != nil {
		writeEngineError(w, req.ID, "failed to load prompt", err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeNotFound, "prompt does not exist", nil)
		return
	}
	writeResult(w, req.ID, formatPromptAsset(asset))
}

func (s *Server) handlePromptURI(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params promptGetParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	uri, err := s.node.PromptURI(params.ID)
	if err != nil {
		writeEngineError(w, req.ID, "failed to load prompt URI", err)
		return
	}
	writeResult(w, req.ID, map[string]string{"metadataUri": uri})
}

func (s *Server) handlePromptTotal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	total, err := s.node.TotalPrompts()
	if err != nil {
		writeEngineError(w, req.ID, "failed to count prompts", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"total": total})
}
