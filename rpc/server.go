package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/honehone12/token-objects-marketplace/core"
	"github.com/honehone12/token-objects-marketplace/observability"
	"github.com/honehone12/token-objects-marketplace/observability/logging"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// Config controls RPC authentication and throttling.
type Config struct {
	// JWTSecret signs bearer tokens with HMAC. Empty disables auth.
	JWTSecret []byte
	// AllowUnauthRead exempts read-only methods from auth.
	AllowUnauthRead bool
	RatePerSecond   float64
	RateBurst       int
}

type methodFunc func(ctx context.Context, params []json.RawMessage) (interface{}, error)

// Server dispatches JSON-RPC marketplace calls onto the node.
type Server struct {
	node    *core.Node
	cfg     Config
	logger  *slog.Logger
	metrics *observability.RPCMetrics
	router  chi.Router

	methods      map[string]methodFunc
	writeMethods map[string]bool

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewServer creates an RPC server over the node.
func NewServer(node *core.Node, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 50
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 100
	}
	s := &Server{
		node:     node,
		cfg:      cfg,
		logger:   logger,
		metrics:  observability.RPC(),
		limiters: make(map[string]*rate.Limiter),
	}
	s.methods = map[string]methodFunc{
		"market_createListing":  s.handleCreateListing,
		"market_placeBid":       s.handlePlaceBid,
		"market_closeListing":   s.handleCloseListing,
		"market_sweepExpired":   s.handleSweepExpired,
		"market_registerObject": s.handleRegisterObject,
		"market_getListing":     s.handleGetListing,
		"market_highestBid":     s.handleHighestBid,
		"market_listCatalog":    s.handleListCatalog,
		"market_escrowRecords":  s.handleEscrowRecords,
		"market_getBalance":     s.handleGetBalance,
	}
	s.writeMethods = map[string]bool{
		"market_createListing":  true,
		"market_placeBid":       true,
		"market_closeListing":   true,
		"market_sweepExpired":   true,
		"market_registerObject": true,
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handleRPC)
	s.router = r
	return s
}

// Handler returns the HTTP handler, wrapped for trace propagation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "rpc")
}

// Serve runs the server until the context is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("rpc server listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)

	if !s.allow(clientID(r)) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "unable to read request", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version", nil)
		return
	}
	handler, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}
	if s.writeMethods[req.Method] || !s.cfg.AllowUnauthRead {
		if err := s.authorize(r); err != nil {
			s.metrics.ObserveError(req.Method, strconv.Itoa(codeUnauthorized))
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, err.Error(), nil)
			return
		}
	}

	start := time.Now()
	result, err := handler(r.Context(), req.Params)
	took := time.Since(start)
	if err != nil {
		code := errorCode(err)
		s.metrics.ObserveRequest(req.Method, "error", took)
		s.metrics.ObserveError(req.Method, strconv.Itoa(code))
		level := slog.LevelInfo
		if code == codeInternalFault || code == codeServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "rpc call failed",
			"method", req.Method,
			"requestId", requestID,
			"code", code,
			"error", err.Error(),
		)
		status := http.StatusBadRequest
		if code == codeInternalFault || code == codeServerError {
			status = http.StatusInternalServerError
		}
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	s.metrics.ObserveRequest(req.Method, "ok", took)
	s.logger.Debug("rpc call",
		"method", req.Method,
		"requestId", requestID,
		"tookMs", took.Milliseconds(),
	)
	writeResult(w, req.ID, result)
}

// authorize validates the bearer token when a secret is configured.
func (s *Server) authorize(r *http.Request) error {
	if len(s.cfg.JWTSecret) == 0 {
		return nil
	}
	raw := extractBearer(r.Header.Get("Authorization"))
	if raw == "" {
		return fmt.Errorf("missing bearer token")
	}
	_, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.cfg.JWTSecret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithExpirationRequired())
	if err != nil {
		s.logger.Info("rejected token", logging.MaskField("token", raw), "error", err.Error())
		return fmt.Errorf("invalid bearer token")
	}
	return nil
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func (s *Server) allow(client string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[client]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RatePerSecond), s.cfg.RateBurst)
		s.limiters[client] = limiter
	}
	return limiter.Allow()
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}
