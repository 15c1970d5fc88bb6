package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"termswap/native/bank"
	"termswap/native/termswap"
	"termswap/observability"
	"termswap/services/termswapd/middleware"
)

const (
	serviceName      = "termswapd"
	requestBodyLimit = 1 << 20 // 1 MiB
	poolPath         = "/pairs/{pair}/pools/{maturity}"
)

// PauseSwitch is the runtime pause flag for the termswap module.
type PauseSwitch struct {
	paused atomic.Bool
}

// NewPauseSwitch returns a switch in the given state.
func NewPauseSwitch(paused bool) *PauseSwitch {
	s := &PauseSwitch{}
	s.paused.Store(paused)
	return s
}

// IsPaused implements the pause view consulted by the termswap module.
func (s *PauseSwitch) IsPaused(module string) bool {
	if s == nil || module != termswap.ModuleName {
		return false
	}
	return s.paused.Load()
}

func (s *PauseSwitch) Set(paused bool) {
	if s != nil {
		s.paused.Store(paused)
	}
}

// Config wires the server to the running module.
type Config struct {
	Factory   *termswap.Factory
	Ledger    *bank.Ledger
	Events    *observability.EventSink
	Pauses    *PauseSwitch
	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimit
	// DevMode mounts the balance credit endpoint used by local setups.
	DevMode bool
	Logger  *slog.Logger
	Now     func() time.Time
}

// Server exposes the termswap module over HTTP.
type Server struct {
	factory *termswap.Factory
	ledger  *bank.Ledger
	events  *observability.EventSink
	pauses  *PauseSwitch
	devMode bool
	logger  *slog.Logger
	now     func() time.Time
	metrics *observability.TermswapMetrics
	handler http.Handler
}

// New validates cfg and builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("factory required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Pauses == nil {
		cfg.Pauses = NewPauseSwitch(false)
	}
	s := &Server{
		factory: cfg.Factory,
		ledger:  cfg.Ledger,
		events:  cfg.Events,
		pauses:  cfg.Pauses,
		devMode: cfg.DevMode,
		logger:  cfg.Logger,
		now:     cfg.Now,
		metrics: observability.Termswap(),
	}
	auth := middleware.NewAuthenticator(cfg.Auth, cfg.Logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Logger)
	s.handler = otelhttp.NewHandler(s.routes(auth, limiter), serviceName)
	return s, nil
}

func (s *Server) routes(auth *middleware.Authenticator, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Observe(serviceName, s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v chi.Router) {
		v.Use(limiter.Middleware(serviceName))

		v.Get("/pairs", s.handleListPairs)
		v.Get("/pairs/{pair}", s.handleGetPair)
		v.Get(poolPath, s.handleGetPool)
		v.Get(poolPath+"/liquidity/{owner}", s.handleLiquidityOf)
		v.Get(poolPath+"/claims/{owner}", s.handleClaimsOf)
		v.Get(poolPath+"/dues/{owner}", s.handleDuesOf)
		v.Get(poolPath+"/dues/{owner}/{id}", s.handleDueOf)
		v.Get("/balances/{token}/{owner}", s.handleBalance)
		v.Get("/events", s.handleEvents)
		v.Get("/events/stream", s.handleEventStream)

		v.Group(func(a chi.Router) {
			a.Use(auth.Middleware)
			a.Post("/pairs", s.handleCreatePair)
			a.Post("/pairs/{pair}/fees/collect", s.handleCollectFee)
			a.Post(poolPath+"/mint", s.handleMint)
			a.Post(poolPath+"/lend", s.handleLend)
			a.Post(poolPath+"/borrow", s.handleBorrow)
			a.Post(poolPath+"/burn", s.handleBurn)
			a.Post(poolPath+"/withdraw", s.handleWithdraw)
			a.Post(poolPath+"/pay", s.handlePay)
			a.Post(poolPath+"/transfer/liquidity", s.handleTransferLiquidity)
			a.Post(poolPath+"/transfer/claims", s.handleTransferClaims)
			a.Post(poolPath+"/transfer/due", s.handleTransferDue)
			a.Post("/owner/pending", s.handleSetPendingOwner)
			a.Post("/owner/accept", s.handleAcceptOwner)
			a.Post("/admin/pause", s.handlePause)
			if s.devMode {
				a.Post("/dev/credit", s.handleCredit)
			}
		})
	})
	return r
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("termswapd: http server listening", slog.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"paused": s.pauses.IsPaused(termswap.ModuleName),
		"pairs":  len(s.factory.Pairs()),
	})
}
