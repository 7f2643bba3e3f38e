package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/doorman/internal/verify/service"
	"github.com/aussiebroadwan/doorman/internal/verify/store"
	"github.com/aussiebroadwan/doorman/pkg/httpx"
	"github.com/aussiebroadwan/doorman/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *httpx.TokenVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	Flow      *service.Flow
	Directory *service.Directory
	Ledger    *service.Ledger
	Decisions *service.Decisions
}

func NewRouter(
	verifier *httpx.TokenVerifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerEvents()
	r.registerOperator()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerEvents() {
	h := &EventsHandler{Flow: r.Flow}

	// Event ingestion is driven by the chat transport, authenticated as a
	// service principal. The domain limiter throttles individual
	// requesters; these limits only guard the transport itself.
	r.Mux.Handle("POST /v1/events/start",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("events:write"),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/events/join-request",
		httpx.Chain(http.HandlerFunc(h.HandleJoinRequest),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("events:write"),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/events/contact",
		httpx.Chain(http.HandlerFunc(h.HandleContact),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("events:write"),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)

	// Keypad events arrive once per keypress, so the cap is lenient.
	r.Mux.Handle("POST /v1/events/keypad",
		httpx.Chain(http.HandlerFunc(h.HandleKeypad),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("events:write"),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerOperator() {
	decisionHandler := &DecisionHandler{Decisions: r.Decisions}
	r.Mux.Handle("POST /v1/decisions",
		httpx.Chain(decisionHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("operator"),
			httpx.RateLimitBySubject(httpx.StrictLimit),
		),
	)

	pendingHandler := &PendingHandler{Directory: r.Directory}
	r.Mux.Handle("GET /v1/registrants/pending",
		httpx.Chain(pendingHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("operator"),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)

	statsHandler := &StatsHandler{Directory: r.Directory, Ledger: r.Ledger}
	r.Mux.Handle("GET /v1/stats",
		httpx.Chain(statsHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("operator"),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
