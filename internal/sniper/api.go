package sniper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"solana-sniper-bot-go/internal/ledger"
	"solana-sniper-bot-go/internal/market"
	"solana-sniper-bot-go/internal/models"
	"solana-sniper-bot-go/internal/registry"
	"solana-sniper-bot-go/internal/solana"
	"solana-sniper-bot-go/internal/wallet"

	"go.uber.org/zap"
)

// APIServer provides the HTTP interface over the sniper core. It is a thin
// JSON layer; all semantics live in the engine, registry, ledger and wallet.
type APIServer struct {
	server    *http.Server
	logger    *zap.Logger
	engine    *Engine
	registry  *registry.Registry
	store     *ledger.Store
	chain     solana.QueryClient
	wallet    *wallet.Wallet
	traders   *market.Watchlist
	tokens    *market.Watchlist
	startTime time.Time
}

// NewAPIServer creates a new APIServer listening on the given port.
func NewAPIServer(
	port int,
	engine *Engine,
	reg *registry.Registry,
	store *ledger.Store,
	chain solana.QueryClient,
	wlt *wallet.Wallet,
	traders, tokens *market.Watchlist,
	logger *zap.Logger,
) *APIServer {
	s := &APIServer{
		logger:    logger.Named("api-server"),
		engine:    engine,
		registry:  reg,
		store:     store,
		chain:     chain,
		wallet:    wlt,
		traders:   traders,
		tokens:    tokens,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /status", s.statusHandler)

	mux.HandleFunc("GET /orders", s.listOrdersHandler)
	mux.HandleFunc("DELETE /orders/{id}", s.deleteOrderHandler)
	mux.HandleFunc("POST /orders/clear", s.clearOrdersHandler)

	mux.HandleFunc("GET /configs", s.listConfigsHandler)
	mux.HandleFunc("POST /configs", s.addConfigHandler)
	mux.HandleFunc("PATCH /configs/{id}", s.updateConfigHandler)
	mux.HandleFunc("DELETE /configs/{id}", s.deleteConfigHandler)

	mux.HandleFunc("POST /snipe", s.snipeHandler)
	mux.HandleFunc("GET /balances", s.balancesHandler)

	mux.HandleFunc("GET /wallet", s.walletHandler)
	mux.HandleFunc("POST /wallet/connect", s.walletConnectHandler)
	mux.HandleFunc("POST /wallet/disconnect", s.walletDisconnectHandler)

	mux.HandleFunc("GET /traders", s.listTradersHandler)
	mux.HandleFunc("POST /traders", s.followTraderHandler)
	mux.HandleFunc("DELETE /traders/{address}", s.unfollowTraderHandler)
	mux.HandleFunc("GET /tokens", s.listTokensHandler)
	mux.HandleFunc("POST /tokens", s.watchTokenHandler)
	mux.HandleFunc("DELETE /tokens/{address}", s.unwatchTokenHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		StartTime       string `json:"start_time"`
		Uptime          string `json:"uptime"`
		Orders          int    `json:"orders"`
		Configs         int    `json:"configs"`
		ActiveWatchers  int    `json:"active_watchers"`
		PendingResolves int    `json:"pending_resolutions"`
		WalletConnected bool   `json:"wallet_connected"`
	}{
		StartTime:       s.startTime.Format(time.RFC3339),
		Uptime:          time.Since(s.startTime).String(),
		Orders:          s.store.Len(),
		Configs:         len(s.registry.List()),
		ActiveWatchers:  s.engine.Watcher().Count(),
		PendingResolves: s.engine.PendingResolutions(),
		WalletConnected: s.wallet.Connected(),
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *APIServer) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.List())
}

func (s *APIServer) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.engine.CancelResolution(id)
	if !s.store.DeleteByID(id) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) clearOrdersHandler(w http.ResponseWriter, r *http.Request) {
	var guard ledger.ClearGuard
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&guard); err != nil {
			http.Error(w, "invalid clear guard", http.StatusBadRequest)
			return
		}
	}
	cleared := s.engine.ClearLedger(guard)
	s.writeJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

func (s *APIServer) listConfigsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *APIServer) addConfigHandler(w http.ResponseWriter, r *http.Request) {
	var cfg models.SniperConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid config payload", http.StatusBadRequest)
		return
	}
	saved, err := s.registry.Add(cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *APIServer) updateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var patch registry.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid patch payload", http.StatusBadRequest)
		return
	}
	updated, err := s.registry.Update(r.PathValue("id"), patch)
	if err != nil {
		s.configError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *APIServer) deleteConfigHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveConfig(r.PathValue("id")); err != nil {
		s.configError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) snipeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string               `json:"configId"`
		Config   *models.SniperConfig `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid snipe payload", http.StatusBadRequest)
		return
	}

	var cfg models.SniperConfig
	switch {
	case req.ConfigID != "":
		stored, ok := s.registry.Get(req.ConfigID)
		if !ok {
			http.Error(w, "sniper config not found", http.StatusNotFound)
			return
		}
		cfg = stored
	case req.Config != nil:
		cfg = *req.Config
	default:
		http.Error(w, "configId or config is required", http.StatusBadRequest)
		return
	}

	pending, err := s.engine.StartSnipe(cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusAccepted, pending)
}

func (s *APIServer) balancesHandler(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" && s.wallet.Connected() {
		address = s.wallet.Address()
	}
	if !solana.IsValidAddress(address) {
		http.Error(w, "invalid or missing address", http.StatusBadRequest)
		return
	}

	balances := struct {
		Address string  `json:"address"`
		SOL     float64 `json:"sol"`
		WSOL    float64 `json:"wsol"`
	}{
		Address: address,
		SOL:     s.chain.GetNativeBalance(r.Context(), address),
		WSOL:    s.chain.GetWrappedBalance(r.Context(), address),
	}
	s.writeJSON(w, http.StatusOK, balances)
}

func (s *APIServer) walletHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.wallet.State())
}

func (s *APIServer) walletConnectHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Secret == "" {
		http.Error(w, "secret is required", http.StatusBadRequest)
		return
	}
	address, err := s.wallet.Connect(req.Secret)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"address": address})
}

func (s *APIServer) walletDisconnectHandler(w http.ResponseWriter, r *http.Request) {
	s.wallet.Disconnect()
	w.WriteHeader(http.StatusNoContent)
}

// History sample sizes per watchlist row: how many signatures to list and how
// many of those to resolve into full transactions for balance deltas.
const (
	signatureSampleSize   = 50
	transactionSampleSize = 10
)

func (s *APIServer) listTradersHandler(w http.ResponseWriter, r *http.Request) {
	addrs := s.traders.List()
	rows := make([]market.TraderMetrics, 0, len(addrs))
	for _, a := range addrs {
		rows = append(rows, s.traderRow(r.Context(), a))
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// traderRow tries live chain history first and falls back to the seeded mock
// row when the chain-query service cannot serve it.
func (s *APIServer) traderRow(ctx context.Context, address string) market.TraderMetrics {
	sigs, err := s.chain.GetSignaturesForAddress(ctx, address, signatureSampleSize)
	if err != nil {
		s.logger.Warn("Chain history unavailable, using mock trader metrics",
			zap.String("address", address), zap.Error(err))
		return market.TraderMetricsFor(address)
	}

	deltas := make([]float64, 0, transactionSampleSize)
	for i := 0; i < len(sigs) && i < transactionSampleSize; i++ {
		tx, err := s.chain.GetTransaction(ctx, sigs[i].Signature)
		if err != nil || tx == nil {
			continue
		}
		deltas = append(deltas, tx.BalanceDelta())
	}
	return market.TraderMetricsFromActivity(address, sigs, deltas)
}

func (s *APIServer) followTraderHandler(w http.ResponseWriter, r *http.Request) {
	s.addToWatchlist(w, r, s.traders)
}

func (s *APIServer) unfollowTraderHandler(w http.ResponseWriter, r *http.Request) {
	s.removeFromWatchlist(w, r, s.traders)
}

func (s *APIServer) listTokensHandler(w http.ResponseWriter, r *http.Request) {
	addrs := s.tokens.List()
	rows := make([]market.TokenMetrics, 0, len(addrs))
	for _, a := range addrs {
		rows = append(rows, s.tokenRow(r.Context(), a))
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// tokenRow overlays live mint activity when the chain answers, mock otherwise.
func (s *APIServer) tokenRow(ctx context.Context, address string) market.TokenMetrics {
	sigs, err := s.chain.GetSignaturesForAddress(ctx, address, signatureSampleSize)
	if err != nil {
		s.logger.Warn("Chain history unavailable, using mock token metrics",
			zap.String("address", address), zap.Error(err))
		return market.TokenMetricsFor(address)
	}
	return market.TokenMetricsFromActivity(address, sigs)
}

func (s *APIServer) watchTokenHandler(w http.ResponseWriter, r *http.Request) {
	s.addToWatchlist(w, r, s.tokens)
}

func (s *APIServer) unwatchTokenHandler(w http.ResponseWriter, r *http.Request) {
	s.removeFromWatchlist(w, r, s.tokens)
}

func (s *APIServer) addToWatchlist(w http.ResponseWriter, r *http.Request, list *market.Watchlist) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if !solana.IsValidAddress(req.Address) {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	if !list.Add(req.Address) {
		http.Error(w, "already on the list", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *APIServer) removeFromWatchlist(w http.ResponseWriter, r *http.Request, list *market.Watchlist) {
	if !list.Remove(r.PathValue("address")) {
		http.Error(w, "not on the list", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) configError(w http.ResponseWriter, err error) {
	if errors.Is(err, registry.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}
