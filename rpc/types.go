package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"promptledger/crypto"
	"promptledger/native/authz"
	"promptledger/native/common"
	"promptledger/native/creator"
	"promptledger/native/market"
	"promptledger/native/prompt"
	"promptledger/native/revenue"
	"promptledger/native/usage"
)

const jsonRPCVersion = "2.0"

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeRateLimited    = -32020
	codeConflict       = -32030
	codeNotFound       = -32040
	codeInvalidState   = -32050
	codeTransferFailed = -32060
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// errorCode classifies engine errors into the wire-level taxonomy.
func errorCode(err error) int {
	switch {
	case errors.Is(err, creator.ErrAlreadyRegistered),
		errors.Is(err, creator.ErrUsernameTaken),
		errors.Is(err, prompt.ErrDuplicatePrompt):
		return codeConflict
	case errors.Is(err, creator.ErrUnauthorized),
		errors.Is(err, creator.ErrNotAdmin),
		errors.Is(err, usage.ErrUnauthorized),
		errors.Is(err, revenue.ErrNotAdmin),
		errors.Is(err, market.ErrNotAdmin),
		errors.Is(err, market.ErrNotSeller),
		errors.Is(err, authz.ErrNotAdmin):
		return codeUnauthorized
	case errors.Is(err, creator.ErrNotRegistered),
		errors.Is(err, prompt.ErrNotFound),
		errors.Is(err, market.ErrListingNotFound),
		errors.Is(err, authz.ErrUnknownResource):
		return codeNotFound
	case errors.Is(err, revenue.ErrNoEarnings),
		errors.Is(err, market.ErrListingInactive),
		errors.Is(err, common.ErrInsufficientFunds),
		errors.Is(err, common.ErrModulePaused):
		return codeInvalidState
	case errors.Is(err, revenue.ErrTransferFailed):
		return codeTransferFailed
	case errors.Is(err, creator.ErrEmptyUsername),
		errors.Is(err, creator.ErrInvalidEarnings),
		errors.Is(err, prompt.ErrInvalidRoyalty),
		errors.Is(err, prompt.ErrEmptyMetadata),
		errors.Is(err, usage.ErrInvalidPromptID),
		errors.Is(err, usage.ErrInvalidCaller),
		errors.Is(err, usage.ErrInvalidFee),
		errors.Is(err, revenue.ErrNoValue),
		errors.Is(err, revenue.ErrInvalidCreator),
		errors.Is(err, revenue.ErrInvalidShares),
		errors.Is(err, market.ErrInvalidPromptID),
		errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrInvalidDuration),
		errors.Is(err, market.ErrInsufficientPayment),
		errors.Is(err, market.ErrFeeTooHigh),
		errors.Is(err, authz.ErrZeroAddress),
		errors.Is(err, common.ErrInvalidAmount):
		return codeInvalidParams
	default:
		return codeServerError
	}
}

func statusForCode(code int) int {
	switch code {
	case codeUnauthorized:
		return http.StatusUnauthorized
	case codeServerError, codeTransferFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeEngineError maps a node error onto the taxonomy and writes it.
func writeEngineError(w http.ResponseWriter, id interface{}, message string, err error) {
	code := errorCode(err)
	writeError(w, statusForCode(code), id, code, message, err.Error())
}

func decodeBech32(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("address is required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func formatAddress(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.PromptPrefix, addr[:]).String()
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func parseHash(raw string) ([32]byte, error) {
	var hash [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return hash, fmt.Errorf("invalid content hash: %w", err)
	}
	if len(decoded) != 32 {
		return hash, fmt.Errorf("content hash must be 32 bytes, got %d", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
