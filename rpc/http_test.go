package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"promptledger/core"
	"promptledger/metadata"
	"promptledger/storage"
)

var (
	rpcAdmin    = [20]byte{0xad}
	rpcPlatform = [20]byte{0x02}
	rpcTreasury = [20]byte{0x03}
	rpcCreator  = [20]byte{0x10}
)

type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func newTestServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), core.NodeConfig{
		Admin:    rpcAdmin,
		Platform: rpcPlatform,
		Treasury: rpcTreasury,
	})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	store, err := metadata.Open(filepath.Join(t.TempDir(), "metadata.db"))
	if err != nil {
		t.Fatalf("open metadata store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return NewServer(node, store, cfg)
}

func call(t *testing.T, s *Server, method string, params interface{}, token string) testResponse {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handle(rr, req)

	var resp testResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return resp
}

func TestHandleRejectsUnknownMethod(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{})
	resp := call(t, s, "ledger_frobnicate", nil, "")
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}

func TestHandleRejectsMalformedJSON(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	s.handle(rr, req)
	var resp testResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
}

func TestCreatorRegisterAndGetFlow(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{})
	creatorBech := formatAddress(rpcCreator)

	resp := call(t, s, "creator_register", map[string]string{
		"caller":     creatorBech,
		"username":   "alice",
		"profileUri": "ipfs://profile",
	}, "")
	if resp.Error != nil {
		t.Fatalf("register: %+v", resp.Error)
	}

	resp = call(t, s, "creator_get", map[string]string{"address": creatorBech}, "")
	if resp.Error != nil {
		t.Fatalf("get: %+v", resp.Error)
	}
	var profile creatorProfileResult
	if err := json.Unmarshal(resp.Result, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Username != "alice" {
		t.Fatalf("expected username alice, got %q", profile.Username)
	}
	if profile.ReputationScore != 100 {
		t.Fatalf("expected initial reputation 100, got %d", profile.ReputationScore)
	}
	if profile.Address != creatorBech {
		t.Fatalf("expected address %s, got %s", creatorBech, profile.Address)
	}
}

func TestDuplicateRegisterMapsToConflict(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{})
	params := map[string]string{
		"caller":     formatAddress(rpcCreator),
		"username":   "alice",
		"profileUri": "",
	}
	if resp := call(t, s, "creator_register", params, ""); resp.Error != nil {
		t.Fatalf("first register: %+v", resp.Error)
	}
	resp := call(t, s, "creator_register", params, "")
	if resp.Error == nil || resp.Error.Code != codeConflict {
		t.Fatalf("expected conflict, got %+v", resp.Error)
	}
}

func TestInvalidAddressMapsToInvalidParams(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{})
	resp := call(t, s, "ledger_balance", map[string]string{"address": "not-bech32"}, "")
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp.Error)
	}
}

func TestMutatingMethodRequiresToken(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "sekrit")
	s := newTestServer(t, ServerConfig{})
	params := map[string]string{
		"caller":     formatAddress(rpcCreator),
		"username":   "alice",
		"profileUri": "",
	}

	resp := call(t, s, "creator_register", params, "")
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized without token, got %+v", resp.Error)
	}
	resp = call(t, s, "creator_register", params, "wrong")
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized with wrong token, got %+v", resp.Error)
	}
	if resp := call(t, s, "creator_register", params, "sekrit"); resp.Error != nil {
		t.Fatalf("register with valid token: %+v", resp.Error)
	}

	// Queries stay open even with auth configured.
	if resp := call(t, s, "creator_total", nil, ""); resp.Error != nil {
		t.Fatalf("query with auth configured: %+v", resp.Error)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{RateLimitPerMinute: 60})

	limited := false
	for i := 0; i < 20; i++ {
		resp := call(t, s, "creator_total", nil, "")
		if resp.Error != nil && resp.Error.Code == codeRateLimited {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected rate limit to trip")
	}
}

func TestLedgerDepositAndBalance(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{})
	addr := formatAddress(rpcCreator)

	resp := call(t, s, "ledger_deposit", map[string]string{"address": addr, "amount": "1000"}, "")
	if resp.Error != nil {
		t.Fatalf("deposit: %+v", resp.Error)
	}
	resp = call(t, s, "ledger_balance", map[string]string{"address": addr}, "")
	if resp.Error != nil {
		t.Fatalf("balance: %+v", resp.Error)
	}
	var out map[string]string
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if out["balance"] != "1000" {
		t.Fatalf("expected balance 1000, got %q", out["balance"])
	}
}

func TestMetadataPutAndGet(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{})

	resp := call(t, s, "metadata_put", map[string]string{"content": "eyJuYW1lIjoiYWxpY2UifQ=="}, "")
	if resp.Error != nil {
		t.Fatalf("put: %+v", resp.Error)
	}
	var put map[string]string
	if err := json.Unmarshal(resp.Result, &put); err != nil {
		t.Fatalf("decode put result: %v", err)
	}
	if put["ref"] == "" {
		t.Fatal("expected a reference")
	}

	resp = call(t, s, "metadata_get", map[string]string{"ref": put["ref"]}, "")
	if resp.Error != nil {
		t.Fatalf("get: %+v", resp.Error)
	}
	var got map[string]string
	if err := json.Unmarshal(resp.Result, &got); err != nil {
		t.Fatalf("decode get result: %v", err)
	}
	if got["content"] != "eyJuYW1lIjoiYWxpY2UifQ==" {
		t.Fatalf("round trip mismatch: %q", got["content"])
	}

	resp = call(t, s, "metadata_get", map[string]string{"ref": fmt.Sprintf("b3:%064x", 0)}, "")
	if resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Fatalf("expected not found for unknown ref, got %+v", resp.Error)
	}
}

func TestLedgerEventsPagination(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{})
	for i := 0; i < 3; i++ {
		params := map[string]string{
			"caller":     formatAddress([20]byte{0x40, byte(i)}),
			"username":   fmt.Sprintf("creator-%d", i),
			"profileUri": "",
		}
		if resp := call(t, s, "creator_register", params, ""); resp.Error != nil {
			t.Fatalf("register %d: %+v", i, resp.Error)
		}
	}

	resp := call(t, s, "ledger_events", map[string]uint64{"offset": 1, "limit": 1}, "")
	if resp.Error != nil {
		t.Fatalf("events: %+v", resp.Error)
	}
	var out struct {
		Total  uint64              `json:"total"`
		Events []ledgerEventResult `json:"events"`
	}
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if out.Total != 3 {
		t.Fatalf("expected 3 events, got %d", out.Total)
	}
	if len(out.Events) != 1 {
		t.Fatalf("expected 1 page entry, got %d", len(out.Events))
	}
	if out.Events[0].Attributes["username"] != "creator-1" {
		t.Fatalf("unexpected page content: %+v", out.Events[0])
	}

	// The maximum limit pages to the end without wrapping the arithmetic.
	resp = call(t, s, "ledger_events", map[string]uint64{"offset": 2, "limit": math.MaxUint64}, "")
	if resp.Error != nil {
		t.Fatalf("events with max limit: %+v", resp.Error)
	}
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(out.Events) != 1 {
		t.Fatalf("expected the final event, got %d", len(out.Events))
	}
}

func TestHealthzEndpoint(t *testing.T) {
	t.Setenv("PROMPT_RPC_TOKEN", "")
	s := newTestServer(t, ServerConfig{})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
