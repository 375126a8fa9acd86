package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"promptledger/core"
	"promptledger/metadata"
	"promptledger/observability"
)

const (
	maxRequestBytes = 1 << 20 // 1 MiB

	visitorTTL = 10 * time.Minute
)

// ServerConfig carries the transport-level knobs of the RPC surface.
type ServerConfig struct {
	// JWTSecret enables HS256 bearer tokens on mutating methods. When empty,
	// the PROMPT_RPC_TOKEN environment variable supplies a static token
	// instead; with neither set, mutating methods are open (local dev).
	JWTSecret string
	// RateLimitPerMinute caps requests per client address. Zero disables.
	RateLimitPerMinute int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Server struct {
	node     *core.Node
	metadata *metadata.Store
	logger   *slog.Logger

	jwtSecret []byte
	authToken string

	mu           sync.Mutex
	visitors     map[string]*visitor
	limitPerMin  int
	lastSweep    time.Time
	nowFn        func() time.Time
	metricsPanel *observability.RPCMetrics
}

// NewServer wires the RPC surface over a node. The metadata store may be nil,
// in which case the metadata methods report unavailability.
func NewServer(node *core.Node, store *metadata.Store, cfg ServerConfig) *Server {
	return &Server{
		node:         node,
		metadata:     store,
		logger:       slog.Default(),
		jwtSecret:    []byte(strings.TrimSpace(cfg.JWTSecret)),
		authToken:    strings.TrimSpace(os.Getenv("PROMPT_RPC_TOKEN")),
		visitors:     make(map[string]*visitor),
		limitPerMin:  cfg.RateLimitPerMinute,
		nowFn:        time.Now,
		metricsPanel: observability.RPC(),
	}
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	s.logger = logger
}

// Router assembles the HTTP surface: the JSON-RPC endpoint plus the health
// and metrics side doors.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

// Start blocks serving the RPC surface on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) allow(r *http.Request) bool {
	if s.limitPerMin <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	if now.Sub(s.lastSweep) > visitorTTL {
		for key, v := range s.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(s.visitors, key)
			}
		}
		s.lastSweep = now
	}
	key := clientKey(r)
	v, ok := s.visitors[key]
	if !ok {
		burst := s.limitPerMin / 10
		if burst < 1 {
			burst = 1
		}
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(float64(s.limitPerMin)/60.0), burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if len(s.jwtSecret) == 0 && s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "authorization required"}
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return &RPCError{Code: codeUnauthorized, Message: "bearer token required"}
	}
	token = strings.TrimSpace(token)

	if s.authToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1 {
		return nil
	}
	if len(s.jwtSecret) > 0 {
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.jwtSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err == nil && parsed.Valid {
			return nil
		}
	}
	return &RPCError{Code: codeUnauthorized, Message: "invalid token"}
}

// mutatingMethods require authentication; everything else is an open query.
var mutatingMethods = map[string]bool{
	"authz_grant":              true,
	"authz_revoke":             true,
	"creator_register":         true,
	"creator_updateProfile":    true,
	"creator_updateReputation": true,
	"creator_verify":           true,
	"prompt_mint":              true,
	"usage_record":             true,
	"revenue_distribute":       true,
	"revenue_withdraw":         true,
	"revenue_withdrawPlatform": true,
	"revenue_withdrawTreasury": true,
	"revenue_updateShares":     true,
	"market_list":              true,
	"market_cancel":            true,
	"market_purchase":          true,
	"market_updateFee":         true,
	"ledger_deposit":           true,
	"metadata_put":             true,
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	if !s.allow(r) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	if mutatingMethods[req.Method] {
		if authErr := s.requireAuth(r); authErr != nil {
			s.metricsPanel.Errors.WithLabelValues(req.Method, fmt.Sprint(authErr.Code)).Inc()
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	s.metricsPanel.Requests.WithLabelValues(req.Method).Inc()
	started := s.nowFn()
	s.dispatch(w, r, req)
	s.metricsPanel.Duration.WithLabelValues(req.Method).Observe(s.nowFn().Sub(started).Seconds())
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "authz_grant":
		s.handleAuthzGrant(w, r, req)
	case "authz_revoke":
		s.handleAuthzRevoke(w, r, req)
	case "authz_check":
		s.handleAuthzCheck(w, r, req)
	case "authz_admin":
		s.handleAuthzAdmin(w, r, req)
	case "creator_register":
		s.handleCreatorRegister(w, r, req)
	case "creator_updateProfile":
		s.handleCreatorUpdateProfile(w, r, req)
	case "creator_updateReputation":
		s.handleCreatorUpdateReputation(w, r, req)
	case "creator_verify":
		s.handleCreatorVerify(w, r, req)
	case "creator_get":
		s.handleCreatorGet(w, r, req)
	case "creator_total":
		s.handleCreatorTotal(w, r, req)
	case "prompt_mint":
		s.handlePromptMint(w, r, req)
	case "prompt_get":
		s.handlePromptGet(w, r, req)
	case "prompt_uri":
		s.handlePromptURI(w, r, req)
	case "prompt_total":
		s.handlePromptTotal(w, r, req)
	case "usage_record":
		s.handleUsageRecord(w, r, req)
	case "usage_list":
		s.handleUsageList(w, r, req)
	case "usage_promptCount":
		s.handleUsagePromptCount(w, r, req)
	case "usage_callerCalls":
		s.handleUsageCallerCalls(w, r, req)
	case "usage_total":
		s.handleUsageTotal(w, r, req)
	case "revenue_distribute":
		s.handleRevenueDistribute(w, r, req)
	case "revenue_withdraw":
		s.handleRevenueWithdraw(w, r, req)
	case "revenue_withdrawPlatform":
		s.handleRevenueWithdrawPlatform(w, r, req)
	case "revenue_withdrawTreasury":
		s.handleRevenueWithdrawTreasury(w, r, req)
	case "revenue_updateShares":
		s.handleRevenueUpdateShares(w, r, req)
	case "revenue_available":
		s.handleRevenueAvailable(w, r, req)
	case "revenue_platform":
		s.handleRevenuePlatform(w, r, req)
	case "revenue_treasury":
		s.handleRevenueTreasury(w, r, req)
	case "revenue_shares":
		s.handleRevenueShares(w, r, req)
	case "market_list":
		s.handleMarketList(w, r, req)
	case "market_cancel":
		s.handleMarketCancel(w, r, req)
	case "market_purchase":
		s.handleMarketPurchase(w, r, req)
	case "market_hasAccess":
		s.handleMarketHasAccess(w, r, req)
	case "market_getListing":
		s.handleMarketGetListing(w, r, req)
	case "market_getAccess":
		s.handleMarketGetAccess(w, r, req)
	case "market_total":
		s.handleMarketTotal(w, r, req)
	case "market_fee":
		s.handleMarketFee(w, r, req)
	case "market_updateFee":
		s.handleMarketUpdateFee(w, r, req)
	case "ledger_balance":
		s.handleLedgerBalance(w, r, req)
	case "ledger_deposit":
		s.handleLedgerDeposit(w, r, req)
	case "ledger_events":
		s.handleLedgerEvents(w, r, req)
	case "metadata_put":
		s.handleMetadataPut(w, r, req)
	case "metadata_get":
		s.handleMetadataGet(w, r, req)
	default:
		s.metricsPanel.Errors.WithLabelValues(req.Method, fmt.Sprint(codeMethodNotFound)).Inc()
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

// singleParam unmarshals the single expected parameter object.
func singleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameter object: %w", err)
	}
	return nil
}
