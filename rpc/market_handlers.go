package rpc

import (
	"net/http"

	"promptledger/native/market"
)

type marketListParams struct {
	Seller   string `json:"seller"`
	PromptID uint64 `json:"promptId"`
	Price    string `json:"price"`
	Duration int64  `json:"duration"`
}

type marketCancelParams struct {
	Caller    string `json:"caller"`
	ListingID uint64 `json:"listingId"`
}

type marketPurchaseParams struct {
	Buyer     string `json:"buyer"`
	ListingID uint64 `json:"listingId"`
	Payment   string `json:"payment"`
}

type marketAccessParams struct {
	Address  string `json:"address"`
	PromptID uint64 `json:"promptId"`
}

type marketGetListingParams struct {
	ID uint64 `json:"id"`
}

type marketUpdateFeeParams struct {
	Caller string `json:"caller"`
	FeeBps uint64 `json:"feeBps"`
}

type marketListingResult struct {
	ID        uint64 `json:"id"`
	PromptID  uint64 `json:"promptId"`
	Seller    string `json:"seller"`
	Price     string `json:"price"`
	Duration  int64  `json:"duration"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"createdAt"`
}

type marketGrantResult struct {
	Buyer       string `json:"buyer"`
	PromptID    uint64 `json:"promptId"`
	ListingID   uint64 `json:"listingId"`
	PurchasedAt int64  `json:"purchasedAt"`
	ExpiresAt   int64  `json:"expiresAt"`
}

func formatListing(listing *market.Listing) marketListingResult {
	return marketListingResult{
		ID:        listing.ID,
		PromptID:  listing.PromptID,
		Seller:    formatAddress(listing.Seller),
		Price:     bigString(listing.Price),
		Duration:  listing.Duration,
		Active:    listing.Active,
		CreatedAt: listing.CreatedAt,
	}
}

func formatGrant(grant *market.AccessGrant) marketGrantResult {
	return marketGrantResult{
		Buyer:       formatAddress(grant.Buyer),
		PromptID:    grant.PromptID,
		ListingID:   grant.ListingID,
		PurchasedAt: grant.PurchasedAt,
		ExpiresAt:   grant.ExpiresAt,
	}
}

func (s *Server) handleMarketList(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketListParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sellerAddr, err := decodeBech32(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid seller address", err.Error())
		return
	}
	price, err := parseAmount(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	listing, err := s.node.CreateListing(sellerAddr, params.PromptID, price, params.Duration)
	if err != nil {
		writeEngineError(w, req.ID, "failed to create listing", err)
		return
	}
	writeResult(w, req.ID, formatListing(listing))
}

func (s *Server) handleMarketCancel(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketCancelParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.CancelListing(callerAddr, params.ListingID); err != nil {
		writeEngineError(w, req.ID, "failed to cancel listing", err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"listingId": params.ListingID, "active": false})
}

func (s *Server) handleMarketPurchase(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketPurchaseParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	buyerAddr, err := decodeBech32(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid buyer address", err.Error())
		return
	}
	payment, err := parseAmount(params.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	grant, err := s.node.PurchaseAccess(buyerAddr, params.ListingID, payment)
	if err != nil {
		writeEngineError(w, req.ID, "failed to purchase access", err)
		return
	}
	writeResult(w, req.ID, formatGrant(grant))
}

func (s *Server) handleMarketHasAccess(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketAccessParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	ok, err := s.node.HasActiveAccess(addr, params.PromptID)
	if err != nil {
		writeEngineError(w, req.ID, "failed to check access", err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"active": ok})
}

func (s *Server) handleMarketGetListing(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketGetListingParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	listing, ok, err := s.node.MarketListing(params.ID)
	if err != nil {
		writeEngineError(w, req.ID, "failed to load listing", err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeNotFound, "listing not found", nil)
		return
	}
	writeResult(w, req.ID, formatListing(listing))
}

func (s *Server) handleMarketGetAccess(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketAccessParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	grant, ok, err := s.node.AccessGrant(addr, params.PromptID)
	if err != nil {
		writeEngineError(w, req.ID, "failed to load access grant", err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeNotFound, "no access grant", nil)
		return
	}
	writeResult(w, req.ID, formatGrant(grant))
}

func (s *Server) handleMarketTotal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	total, err := s.node.TotalListings()
	if err != nil {
		writeEngineError(w, req.ID, "failed to count listings", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"total": total})
}

func (s *Server) handleMarketFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	fee, err := s.node.MarketFee()
	if err != nil {
		writeEngineError(w, req.ID, "failed to load fee", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"feeBps": fee})
}

func (s *Server) handleMarketUpdateFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketUpdateFeeParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	callerAddr, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.UpdateMarketFee(callerAddr, params.FeeBps); err != nil {
		writeEngineError(w, req.ID, "failed to update fee", err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"feeBps": params.FeeBps})
}
